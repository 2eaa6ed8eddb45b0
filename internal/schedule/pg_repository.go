package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanRule(row pgx.Row) (*WeeklyRule, error) {
	var r WeeklyRule
	var weekday, startMin, endMin int

	err := row.Scan(
		&r.ID,
		&r.PractitionerID,
		&weekday,
		&startMin,
		&endMin,
		&r.SlotMinutes,
		&r.Capacity,
		&r.Active,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	r.Weekday = time.Weekday(weekday)
	r.Start = TimeOfDay(startMin)
	r.End = TimeOfDay(endMin)
	return &r, nil
}

func scanClosure(row pgx.Row) (*Closure, error) {
	var c Closure
	var startMin, endMin *int

	err := row.Scan(
		&c.ID,
		&c.PractitionerID,
		&c.DateStart,
		&c.DateEnd,
		&startMin,
		&endMin,
		&c.Kind,
		&c.Reason,
		&c.Active,
		&c.CreatedBy,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClosureNotFound
		}
		return nil, err
	}

	if startMin != nil {
		s := TimeOfDay(*startMin)
		c.Start = &s
	}
	if endMin != nil {
		e := TimeOfDay(*endMin)
		c.End = &e
	}
	return &c, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var startMin int

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PractitionerID,
		&a.Date,
		&startMin,
		&a.Minutes,
		&a.Reason,
		&a.Status,
		&a.Notes,
		&a.ReminderSent,
		&a.ConfirmedAt,
		&a.AttendedAt,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Start = TimeOfDay(startMin)
	return &a, nil
}

const appointmentColumns = `
	id, patient_id, practitioner_id, date, start_min, minutes, reason,
	status, notes, reminder_sent, confirmed_at, attended_at,
	created_by, created_at, updated_at`

const closureColumns = `
	id, practitioner_id, date_start, date_end, start_min, end_min,
	kind, reason, active, created_by, created_at`

const ruleColumns = `
	id, practitioner_id, weekday, start_min, end_min, slot_minutes,
	capacity, active, created_at, updated_at`

// Interface methods

func (r *PgRepository) PatientActive(ctx context.Context, id uuid.UUID) error {
	var active bool
	err := r.pool.QueryRow(ctx, `
		SELECT active
		FROM patients
		WHERE id = $1
	`, id).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPatientNotFound
		}
		return err
	}
	if !active {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) PractitionerExists(ctx context.Context, id uuid.UUID) error {
	var one int
	err := r.pool.QueryRow(ctx, `
		SELECT 1
		FROM practitioners
		WHERE id = $1
	`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPractitionerNotFound
		}
		return err
	}
	return nil
}

func (r *PgRepository) RulesForPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]WeeklyRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM weekly_rules
		WHERE practitioner_id = $1 AND active
		ORDER BY weekday, start_min
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

func (r *PgRepository) RulesForWeekday(ctx context.Context, practitionerID uuid.UUID, weekday time.Weekday) ([]WeeklyRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM weekly_rules
		WHERE practitioner_id = $1 AND weekday = $2 AND active
		ORDER BY start_min
	`, practitionerID, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]WeeklyRule, error) {
	var result []WeeklyRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) CreateRule(ctx context.Context, rule WeeklyRule) (*WeeklyRule, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO weekly_rules (id, practitioner_id, weekday, start_min, end_min,
			slot_minutes, capacity, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())
		RETURNING `+ruleColumns+`
	`, id, rule.PractitionerID, int(rule.Weekday), int(rule.Start), int(rule.End),
		rule.SlotMinutes, rule.Capacity)

	created, err := scanRule(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateRule
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE weekly_rules
		SET active = false,
		    updated_at = now()
		WHERE id = $1 AND active
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *PgRepository) ClosuresForDate(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Closure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+closureColumns+`
		FROM closures
		WHERE active
		  AND date_start <= $2 AND date_end >= $2
		  AND (practitioner_id IS NULL OR practitioner_id = $1)
		ORDER BY date_start, start_min NULLS FIRST
	`, practitionerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectClosures(rows)
}

func (r *PgRepository) ListClosures(ctx context.Context, f ClosureFilter) ([]Closure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+closureColumns+`
		FROM closures
		WHERE (active OR $1)
		  AND ($2::uuid IS NULL OR practitioner_id IS NULL OR practitioner_id = $2)
		  AND ($3::date IS NULL OR (date_start <= $3 AND date_end >= $3))
		ORDER BY date_start DESC, created_at DESC
	`, f.IncludeInactive, f.PractitionerID, f.Date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectClosures(rows)
}

func collectClosures(rows pgx.Rows) ([]Closure, error) {
	var result []Closure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) CreateClosure(ctx context.Context, c Closure) (*Closure, error) {
	id := uuid.New()

	var startMin, endMin *int
	if c.Start != nil {
		s := int(*c.Start)
		startMin = &s
	}
	if c.End != nil {
		e := int(*c.End)
		endMin = &e
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO closures (id, practitioner_id, date_start, date_end, start_min,
			end_min, kind, reason, active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, $9, now())
		RETURNING `+closureColumns+`
	`, id, c.PractitionerID, c.DateStart, c.DateEnd, startMin, endMin,
		string(c.Kind), c.Reason, c.CreatedBy)

	return scanClosure(row)
}

func (r *PgRepository) DeactivateClosure(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE closures
		SET active = false
		WHERE id = $1 AND active
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClosureNotFound
	}
	return nil
}

func (r *PgRepository) BlockingAppointments(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND date = $2
		  AND status IN ('pending', 'confirmed', 'in_progress')
		ORDER BY start_min
	`, practitionerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
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

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, practitioner_id, date, start_min,
			minutes, reason, status, notes, reminder_sent, created_by,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, a.PatientID, a.PractitionerID, a.Date, int(a.Start), a.Minutes,
		a.Reason, string(a.Status), a.Notes, a.CreatedBy)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1::date IS NULL OR date >= $1)
		  AND ($2::date IS NULL OR date <= $2)
		  AND ($3::uuid IS NULL OR practitioner_id = $3)
		  AND ($4::uuid IS NULL OR patient_id = $4)
		  AND ($5::text IS NULL OR status = $5)
		ORDER BY date, start_min
		LIMIT $6 OFFSET $7
	`, f.DateFrom, f.DateTo, f.PractitionerID, f.PatientID, statusArg(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func statusArg(s *Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, change StatusChange) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    confirmed_at = COALESCE($3, confirmed_at),
		    attended_at = COALESCE($4, attended_at),
		    notes = CASE WHEN $5 = '' THEN notes
		                 WHEN notes = '' THEN $5
		                 ELSE notes || E'\n' || $5 END,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($6)
		RETURNING `+appointmentColumns+`
	`, id, string(change.To), change.ConfirmedAt, change.AttendedAt,
		change.AppendNote, statusStrings(from))

	return scanAppointment(row)
}

func (r *PgRepository) RescheduleAppointment(ctx context.Context, id uuid.UUID, newDate time.Time, newStart TimeOfDay, from []Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    start_min = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($4)
		RETURNING `+appointmentColumns+`
	`, id, newDate, int(newStart), statusStrings(from))

	return scanAppointment(row)
}

func (r *PgRepository) RemindersDue(ctx context.Context, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1
		  AND status IN ('pending', 'confirmed')
		  AND NOT reminder_sent
		ORDER BY start_min
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
