package comm

import (
	"encoding/json"
	"time"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "init", "audit-event"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// AuditEvent is the structured record fleetsvc publishes on the
// fleet.audit subject. auditsvc persists it, socketsvc fans it out
// to ops console clients.
type AuditEvent struct {
	Service   string    `json:"service"`
	Method    string    `json:"method"`
	Resource  string    `json:"resource"`
	Action    string    `json:"action"` // create, list, get, update, delete, export
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	ElapsedMs int64     `json:"elapsed_ms"`
	At        time.Time `json:"at"`
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}

type ServiceShutdown struct {
	ID string `json:"id"` // service id
}
