package audit

import (
	"encoding/json"
	"time"

	"github.com/fleetwise/fleet-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const Subject = "fleet.audit"

// Publisher ships audit events over NATS, best effort. Publishing never
// blocks the request path beyond a marshal: the flush runs in its own
// goroutine with a bounded wait and is abandoned silently past that.
type Publisher struct {
	conn    *nats.Conn
	service string
	timeout time.Duration
}

func NewPublisher(conn *nats.Conn, service string) *Publisher {
	return &Publisher{
		conn:    conn,
		service: service,
		timeout: 3 * time.Second,
	}
}

func (p *Publisher) Event(ev comm.AuditEvent) {
	if p == nil || p.conn == nil {
		return
	}

	ev.Service = p.service
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Warnf("audit event marshal: %v", err)
		return
	}

	go func() {
		if err := p.conn.Publish(Subject, data); err != nil {
			log.Debugf("audit publish: %v", err)
			return
		}
		if err := p.conn.FlushTimeout(p.timeout); err != nil {
			log.Debugf("audit flush: %v", err)
		}
	}()
}
