package ws

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestConnectionRegistry(t *testing.T) {
	s := NewWs()
	conn := &websocket.Conn{}

	_, ok := s.GetConnection("missing")
	require.False(t, ok)

	s.StoreConnection("abc", conn)
	got, ok := s.GetConnection("abc")
	require.True(t, ok)
	require.Same(t, conn, got)

	s.HandleDisconnect("abc")
	_, ok = s.GetConnection("abc")
	require.False(t, ok)
}
