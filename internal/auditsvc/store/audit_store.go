package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetwise/fleet-services/internal/comm"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRow struct {
	ID        int64     `json:"id"`
	Service   string    `json:"service"`
	Method    string    `json:"method"`
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	ElapsedMs int64     `json:"elapsed_ms"`
	At        time.Time `json:"at"`
}

type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(db *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Insert(ctx context.Context, ev comm.AuditEvent) (int64, error) {
	var id int64

	query := `
        INSERT INTO audit_events (service, method, resource, action, outcome, detail, elapsed_ms, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id;
    `

	err := s.db.QueryRow(ctx, query,
		ev.Service, ev.Method, ev.Resource, ev.Action,
		ev.Outcome, ev.Detail, ev.ElapsedMs, ev.At,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("could not insert audit event: %w", err)
	}

	return id, nil
}

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]*AuditRow, error) {
	query := `
		SELECT id, service, method, resource, action, outcome, detail, elapsed_ms, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AuditRow
	for rows.Next() {
		var a AuditRow
		err := rows.Scan(
			&a.ID,
			&a.Service,
			&a.Method,
			&a.Resource,
			&a.Action,
			&a.Outcome,
			&a.Detail,
			&a.ElapsedMs,
			&a.At,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, &a)
	}

	return out, nil
}
