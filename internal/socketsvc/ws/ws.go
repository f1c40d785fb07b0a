package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Ws keeps the ops console connections; the broker broadcasts audit
// events to every one of them.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
}

// Broadcast writes the payload to every connection, dropping the ones
// that fail.
func (s *Ws) Broadcast(payload []byte) {
	s.connMap.Range(func(key, value interface{}) bool {
		conn := value.(*websocket.Conn)
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warnf("broadcast to %s failed, dropping connection: %v", key, err)
			conn.Close()
			s.connMap.Delete(key)
		}
		return true
	})
}
