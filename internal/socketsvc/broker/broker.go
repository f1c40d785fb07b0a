package broker

import (
	"encoding/json"

	"github.com/fleetwise/fleet-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker bridges the NATS audit subject to the WebSocket fan-out.
type Broker struct {
	conn      *nats.Conn
	broadcast func(payload []byte)
}

func NewBroker(conn *nats.Conn, broadcast func(payload []byte)) *Broker {
	return &Broker{conn: conn, broadcast: broadcast}
}

// Subscribe relays every audit event to the connected consoles, wrapped
// in the usual WSMessage envelope.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	return b.conn.Subscribe(topic, func(m *nats.Msg) {
		var ev comm.AuditEvent
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			log.Errorf("invalid AuditEvent on %s: %v", topic, err)
			return
		}

		msg := comm.WSMessage{
			Type: "audit-event",
			Data: m.Data,
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Errorf("marshal WSMessage: %v", err)
			return
		}

		b.broadcast(payload)
	})
}

func (b *Broker) Publish(topic string, data []byte) error {
	return b.conn.Publish(topic, data)
}
