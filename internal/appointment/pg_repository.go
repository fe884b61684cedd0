package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

// pgPool is the subset of *pgxpool.Pool the repository needs; pgxmock satisfies it in tests.
type pgPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool pgPool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	if pool == nil {
		panic("appointment: pgx pool required")
	}
	return &PgRepository{pool: pool}
}

func newPgRepositoryWithPool(pool pgPool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, provider_id, patient_id, patient_name, patient_email, patient_phone,
	date, time, status, created_at, updated_at, arrived_at, medical_notes, attachments`

// Postgres SQLSTATE codes the reservation path cares about.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a           Appointment
		status      string
		arrivedAt   *time.Time
		notes       *string
		attachments []string
	)

	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&a.PatientID,
		&a.Patient.Name,
		&a.Patient.Email,
		&a.Patient.Phone,
		&a.Date,
		&a.Time,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&arrivedAt,
		&notes,
		&attachments,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if a.Status, err = ParseStatus(status); err != nil {
		return nil, err
	}
	a.Date = schedule.DateOf(a.Date)
	a.ArrivedAt = arrivedAt
	a.MedicalNotes = notes
	a.Attachments = attachments
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func liveStatusArgs() []string {
	live := LiveStatuses()
	out := make([]string, len(live))
	for i, s := range live {
		out[i] = string(s)
	}
	return out
}

// classifyTxError turns Postgres contention errors into the store contract errors.
func classifyTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrTxConflict, pgErr.Message)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrSlotTaken, pgErr.ConstraintName)
		}
	}
	return err
}

// Interface methods

func (r *PgRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND date BETWEEN $2 AND $3
		ORDER BY date, time
	`, providerID, schedule.DateOf(from), schedule.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("list appointments by provider: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListLive(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date BETWEEN $1 AND $2
		  AND status = ANY($3)
		ORDER BY date, time, provider_id
	`, schedule.DateOf(from), schedule.DateOf(to), liveStatusArgs())
	if err != nil {
		return nil, fmt.Errorf("list live appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CountLiveForPatient(ctx context.Context, patientID, providerID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE patient_id = $1
		  AND provider_id = $2
		  AND status = ANY($3)
	`, patientID, providerID, liveStatusArgs()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live appointments: %w", err)
	}
	return n, nil
}

// Reserve re-reads the provider's day and inserts inside one serializable
// transaction. Two concurrent reservations of the same slot either see each
// other's row or fail serialization; the partial unique index on live slots
// backs this up.
func (r *PgRepository) Reserve(ctx context.Context, appt Appointment) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classifyTxError(fmt.Errorf("begin reservation: %w", err))
	}

	if err := reserveInTx(ctx, tx, appt); err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, ErrSlotTaken) {
			return ErrSlotTaken
		}
		return classifyTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyTxError(fmt.Errorf("commit reservation: %w", err))
	}
	return nil
}

func reserveInTx(ctx context.Context, tx pgx.Tx, appt Appointment) error {
	date := schedule.DateOf(appt.Date)

	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND date = $2
	`, appt.ProviderID, date)
	if err != nil {
		return fmt.Errorf("load day: %w", err)
	}
	existing, err := collectAppointments(rows)
	if err != nil {
		return fmt.Errorf("load day: %w", err)
	}

	if conflicting(existing, date, appt.Time) != nil {
		return ErrSlotTaken
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, provider_id, patient_id, patient_name, patient_email, patient_phone,
			date, time, status, created_at, updated_at, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, appt.ID, appt.ProviderID, appt.PatientID, appt.Patient.Name, appt.Patient.Email, appt.Patient.Phone,
		date, appt.Time, string(appt.Status), appt.CreatedAt, appt.UpdatedAt, nonNilStrings(appt.Attachments))
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, appt Appointment, from Status) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = $3,
		    arrived_at = $4
		WHERE id = $1
		  AND status = $5
	`, appt.ID, string(appt.Status), appt.UpdatedAt, appt.ArrivedAt, string(from))
	if err != nil {
		return classifyTxError(fmt.Errorf("update appointment status: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *PgRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string, updatedAt time.Time) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET medical_notes = $2,
		    updated_at = $3
		WHERE id = $1
	`, id, notes, updatedAt)
	if err != nil {
		return fmt.Errorf("update medical notes: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
