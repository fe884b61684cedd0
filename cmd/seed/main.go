package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-booking-engine/internal/appointment"
	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/db"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

var shifts = []struct {
	start, end string
	minutes    int
}{
	{"08:00", "12:00", 20},
	{"09:00", "17:00", 30},
	{"13:00", "18:00", 15},
	{"07:30", "11:30", 25},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	providers, err := seedProviders(context.Background(), pool, faker, 20)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedExceptionDays(context.Background(), pool, faker, providers, cfg.ClinicTimezone); err != nil {
		log.Fatalf("seed exception days: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, faker, cfg, 400); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		shift := shifts[faker.Number(0, len(shifts)-1)]
		days := []int32{1, 2, 3, 4, 5}
		if faker.Bool() {
			days = append(days, 6)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, display_name, start_time, end_time, slot_duration_minutes, working_days, active, deleted, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, true, false, now(), now())
		`, id, "Dr. "+faker.LastName(), shift.start, shift.end, shift.minutes, days)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedExceptionDays(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, providers []uuid.UUID, loc *time.Location) error {
	today := schedule.Today(time.Now(), loc)

	// One clinic-wide closure a month out and a few personal leave days.
	_, err := pool.Exec(ctx, `
		INSERT INTO exception_days (id, date, provider_id, reason) VALUES ($1, $2, NULL, $3)
	`, uuid.New(), today.AddDate(0, 1, 0), "clinic closed")
	if err != nil {
		return err
	}

	for i := 0; i < len(providers)/4; i++ {
		providerID := providers[faker.Number(0, len(providers)-1)]
		_, err := pool.Exec(ctx, `
			INSERT INTO exception_days (id, date, provider_id, reason) VALUES ($1, $2, $3, $4)
		`, uuid.New(), today.AddDate(0, 0, faker.Number(1, 28)), providerID, "leave")
		if err != nil {
			return err
		}
	}

	log.Println("exception days seeded")
	return nil
}

// seedAppointments books through the coordinator so seeded data obeys the
// same slot and per-provider rules as live traffic.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, cfg config.Config, count int) error {
	log.Printf("seeding up to %d appointments", count)

	directory := schedule.NewPgDirectory(pool)
	coord := appointment.NewCoordinator(appointment.NewPgRepository(pool), directory, nil, nil, cfg, nil)

	providers, err := directory.ListBookableProviders(ctx)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		return errors.New("no providers to book")
	}

	today := schedule.Today(time.Now(), cfg.ClinicTimezone)
	booked, skipped := 0, 0
	for i := 0; i < count; i++ {
		p := providers[faker.Number(0, len(providers)-1)]
		labels := p.Schedule.Labels()
		if len(labels) == 0 {
			continue
		}

		_, err := coord.Book(ctx, appointment.BookRequest{
			ProviderID: p.ID,
			PatientID:  uuid.New(),
			ActorID:    "seed",
			Date:       today.AddDate(0, 0, faker.Number(1, 14)),
			Time:       labels[faker.Number(0, len(labels)-1)].String(),
			Patient: appointment.PatientSnapshot{
				Name:  faker.Name(),
				Email: faker.Email(),
				Phone: faker.Phone(),
			},
		})
		switch {
		case err == nil:
			booked++
		case errors.Is(err, appointment.ErrSlotTaken), errors.Is(err, appointment.ErrSlotUnavailable):
			skipped++
		default:
			return err
		}
	}

	log.Printf("appointments seeded: %d booked, %d skipped", booked, skipped)
	return nil
}
