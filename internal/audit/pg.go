package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSink persists audit events into the audit_logs table.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink returns a sink writing to PostgreSQL.
func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

// Emit inserts the event row.
func (s *PGSink) Emit(ctx context.Context, event Event) error {
	if s == nil || s.pool == nil {
		return errors.New("audit: pg sink not initialised")
	}
	if event.Message == "" {
		return errors.New("audit: event message required")
	}
	fieldsJSON, err := json.Marshal(event.Fields)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_logs (level, message, fields, occurred_at) VALUES ($1, $2, $3, COALESCE($4, NOW()))`,
		string(event.Level), event.Message, fieldsJSON, event.At)
	return err
}
