package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrRuleNotFound         = errors.New("availability rule not found")
	ErrClosureNotFound      = errors.New("closure not found")
	ErrDuplicateRule        = errors.New("an active rule with this practitioner, weekday and start already exists")
)

// StatusChange is a compare-and-swap payload for lifecycle transitions:
// the update only applies while the row is still in an allowed status.
type StatusChange struct {
	To          Status
	ConfirmedAt *time.Time
	AttendedAt  *time.Time
	AppendNote  string
}

// AppointmentFilter narrows appointment listings. Nil fields match all.
type AppointmentFilter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	PractitionerID *uuid.UUID
	PatientID      *uuid.UUID
	Status         *Status
	Limit          int
	Offset         int
}

// ClosureFilter narrows closure listings.
type ClosureFilter struct {
	PractitionerID  *uuid.UUID
	Date            *time.Time
	IncludeInactive bool
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// External entities, referenced by id only.
	PatientActive(ctx context.Context, id uuid.UUID) error
	PractitionerExists(ctx context.Context, id uuid.UUID) error

	// Weekly availability rules.
	RulesForPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]WeeklyRule, error)
	RulesForWeekday(ctx context.Context, practitionerID uuid.UUID, weekday time.Weekday) ([]WeeklyRule, error)
	CreateRule(ctx context.Context, r WeeklyRule) (*WeeklyRule, error)
	DeactivateRule(ctx context.Context, id uuid.UUID) error

	// Closure calendar.
	ClosuresForDate(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Closure, error)
	ListClosures(ctx context.Context, f ClosureFilter) ([]Closure, error)
	CreateClosure(ctx context.Context, c Closure) (*Closure, error)
	DeactivateClosure(ctx context.Context, id uuid.UUID) error

	// Appointments.
	BlockingAppointments(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error)
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)

	// Lifecycle: compare-and-swap while status is in from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, change StatusChange) (*Appointment, error)
	RescheduleAppointment(ctx context.Context, id uuid.UUID, newDate time.Time, newStart TimeOfDay, from []Status) (*Appointment, error)

	// Reminder dispatch.
	RemindersDue(ctx context.Context, date time.Time) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}
