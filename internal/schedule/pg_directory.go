package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgDirectory struct {
	pool querier
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &PgDirectory{pool: pool}
}

func newPgDirectoryWithQuerier(q querier) *PgDirectory {
	return &PgDirectory{pool: q}
}

const providerColumns = `id, display_name, start_time, end_time, slot_duration_minutes, working_days, active, deleted, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var (
		p           Provider
		start, end  string
		slotMinutes int32
		workingDays []int32
	)

	err := row.Scan(
		&p.ID,
		&p.DisplayName,
		&start,
		&end,
		&slotMinutes,
		&workingDays,
		&p.Active,
		&p.Deleted,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	if p.Schedule.Start, err = ParseClock(start); err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.ID, err)
	}
	if p.Schedule.End, err = ParseClock(end); err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.ID, err)
	}
	p.Schedule.SlotDuration = time.Duration(slotMinutes) * time.Minute
	for _, d := range workingDays {
		p.Schedule.WorkingDays = append(p.Schedule.WorkingDays, time.Weekday(d))
	}

	return &p, nil
}

func (d *PgDirectory) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+providerColumns+`
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (d *PgDirectory) ListBookableProviders(ctx context.Context) ([]Provider, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+providerColumns+`
		FROM providers
		WHERE active AND NOT deleted
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var result []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (d *PgDirectory) ExceptionsOn(ctx context.Context, date time.Time) (ExceptionRegistry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, date, provider_id, reason
		FROM exception_days
		WHERE date = $1
	`, DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("list exception days: %w", err)
	}
	defer rows.Close()

	var result ExceptionRegistry
	for rows.Next() {
		var e ExceptionDay
		if err := rows.Scan(&e.ID, &e.Date, &e.ProviderID, &e.Reason); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
