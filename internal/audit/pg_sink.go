package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgSink appends audit entries to event_logs.
type PgSink struct {
	db execer
}

func NewPgSink(pool *pgxpool.Pool) *PgSink {
	return &PgSink{db: pool}
}

func (s *PgSink) Append(ctx context.Context, e dispatch.AuditEntry) error {
	payload, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, actor_id, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, e.Action, e.ActorID, appointmentID(e.Metadata), payload, nullableTime(e.At))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func appointmentID(meta map[string]any) *uuid.UUID {
	raw, ok := meta["appointment_id"].(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
