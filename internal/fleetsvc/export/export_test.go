package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountingWriterRunsOnFirstBeforeFirstByte(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	cw := &CountingWriter{W: &buf, OnFirst: func() {
		calls++
		require.Zero(t, buf.Len())
	}}

	_, err := cw.Write([]byte("ab"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("cd"))
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, int64(4), cw.Written())
}

func TestCountingWriterOnFirstNotRunWithoutWrites(t *testing.T) {
	calls := 0
	cw := &CountingWriter{W: &bytes.Buffer{}, OnFirst: func() { calls++ }}
	require.Zero(t, calls)
	require.Zero(t, cw.Written())
}
