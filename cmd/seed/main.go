package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichub/clinic-scheduling/internal/db"
	"github.com/clinichub/clinic-scheduling/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	practitioners, err := seedPractitioners(context.Background(), pool, 10)
	if err != nil {
		log.Fatalf("seed practitioners: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedWeeklyRules(context.Background(), pool, practitioners); err != nil {
		log.Fatalf("seed weekly rules: %v", err)
	}
	if err := seedClosures(context.Background(), pool, practitioners); err != nil {
		log.Fatalf("seed closures: %v", err)
	}

	log.Println("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d practitioners", count)

	specialties := []string{
		"General Dentistry",
		"Orthodontics",
		"Endodontics",
		"Periodontics",
		"Oral Surgery",
		"Pediatric Dentistry",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, specialty)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("practitioners seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, active, created_at, updated_at)
				VALUES ($1, $2, $3, true, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedWeeklyRules gives every practitioner a Monday-Friday agenda with a
// morning and an afternoon window.
func seedWeeklyRules(ctx context.Context, pool *pgxpool.Pool, practitioners []uuid.UUID) error {
	log.Printf("seeding weekly rules for %d practitioners", len(practitioners))

	windows := []struct {
		start, end schedule.TimeOfDay
	}{
		{start: schedule.TimeOfDayOf(9, 0), end: schedule.TimeOfDayOf(12, 0)},
		{start: schedule.TimeOfDayOf(14, 0), end: schedule.TimeOfDayOf(18, 0)},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, pid := range practitioners {
		slotMinutes := []int{15, 30, 30, 60}[gofakeit.Number(0, 3)]
		capacity := gofakeit.Number(1, 2)

		for weekday := time.Monday; weekday <= time.Friday; weekday++ {
			for _, w := range windows {
				_, err := tx.Exec(ctx, `
					INSERT INTO weekly_rules (id, practitioner_id, weekday, start_min, end_min,
						slot_minutes, capacity, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())
				`, uuid.New(), pid, int(weekday), int(w.start), int(w.end), slotMinutes, capacity)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("weekly rules seeded")
	return nil
}

// seedClosures creates one clinic-wide holiday next month and a vacation
// week for one practitioner.
func seedClosures(ctx context.Context, pool *pgxpool.Pool, practitioners []uuid.UUID) error {
	log.Println("seeding closures")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	holiday := time.Now().AddDate(0, 1, 0)
	_, err = tx.Exec(ctx, `
		INSERT INTO closures (id, practitioner_id, date_start, date_end, start_min, end_min,
			kind, reason, active, created_by, created_at)
		VALUES ($1, NULL, $2, $2, NULL, NULL, 'holiday', 'National holiday', true, NULL, now())
	`, uuid.New(), holiday)
	if err != nil {
		return err
	}

	if len(practitioners) > 0 {
		vacStart := time.Now().AddDate(0, 2, 0)
		vacEnd := vacStart.AddDate(0, 0, 6)
		_, err = tx.Exec(ctx, `
			INSERT INTO closures (id, practitioner_id, date_start, date_end, start_min, end_min,
				kind, reason, active, created_by, created_at)
			VALUES ($1, $2, $3, $4, NULL, NULL, 'vacation', 'Summer vacation', true, NULL, now())
		`, uuid.New(), practitioners[0], vacStart, vacEnd)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("closures seeded")
	return nil
}
