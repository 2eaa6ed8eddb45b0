package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/clinichub/clinic-scheduling/internal/redis"
)

type NotificationKind string

const (
	NotifyBooked    NotificationKind = "booked"
	NotifyCancelled NotificationKind = "cancelled"
	NotifyReminder  NotificationKind = "reminder"
)

// Notifier delivers appointment events to an external sender (email/SMS).
// Delivery failure must never roll back the state change that caused it.
type Notifier interface {
	Notify(ctx context.Context, kind NotificationKind, appt *Appointment) error
}

// ErrScheduleBusy means another request currently holds the practitioner's
// schedule lock for that day; the caller should retry.
var ErrScheduleBusy = errors.New("schedule is being modified, please retry")

// Service orchestrates slot generation, conflict checking and the
// appointment lifecycle behind a per-(practitioner, date) lock.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier
	clock    Clock
	loc      *time.Location
	log      zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, clock Clock, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		clock:    clock,
		loc:      loc,
		log:      log,
	}
}

// AvailableSlots lists the bookable start times for a practitioner on a
// date. Advisory read: it runs outside the schedule lock.
func (s *Service) AvailableSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Slot, error) {
	date = DateOnly(date, s.loc)

	rules, err := s.repo.RulesForWeekday(ctx, practitionerID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	closures, err := s.repo.ClosuresForDate(ctx, practitionerID, date)
	if err != nil {
		return nil, fmt.Errorf("load closures: %w", err)
	}

	return BuildSlots(rules, closures, practitionerID, date), nil
}

type BookingRequest struct {
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	Date           time.Time
	Start          TimeOfDay
	Minutes        int
	Reason         string
	Notes          string
	CreatedBy      uuid.UUID
}

func (req BookingRequest) validate() error {
	if req.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient id is required", ErrValidation)
	}
	if req.PractitionerID == uuid.Nil {
		return fmt.Errorf("%w: practitioner id is required", ErrValidation)
	}
	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if !req.Start.Valid() {
		return fmt.Errorf("%w: start time out of range", ErrValidation)
	}
	if req.Minutes < MinAppointmentMinutes || req.Minutes > MaxAppointmentMinutes {
		return fmt.Errorf("%w: duration must be between %d and %d minutes",
			ErrValidation, MinAppointmentMinutes, MaxAppointmentMinutes)
	}
	if req.Start.Add(req.Minutes) > minutesPerDay {
		return fmt.Errorf("%w: appointment must end within the day", ErrValidation)
	}
	if req.Reason == "" {
		return fmt.Errorf("%w: consultation reason is required", ErrValidation)
	}
	return nil
}

// Book creates a pending appointment once the slot is verified conflict-free
// inside the practitioner's schedule lock, then emits a booked notification.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if err := s.repo.PatientActive(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.repo.PractitionerExists(ctx, req.PractitionerID); err != nil {
		return nil, err
	}

	date := DateOnly(req.Date, s.loc)

	var created *Appointment

	err := s.locker.WithScheduleLock(ctx, req.PractitionerID, date, func(lockCtx context.Context) error {
		// Re-check inside the critical section to close the
		// check-then-act race.
		res, err := s.CheckConflict(lockCtx, req.PractitionerID, date, req.Start, req.Minutes, nil)
		if err != nil {
			return err
		}
		if res.Conflict {
			return &ConflictError{Result: res}
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			PatientID:      req.PatientID,
			PractitionerID: req.PractitionerID,
			Date:           date,
			Start:          req.Start,
			Minutes:        req.Minutes,
			Reason:         req.Reason,
			Status:         StatusPending,
			Notes:          req.Notes,
			CreatedBy:      req.CreatedBy,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.notify(ctx, NotifyBooked, created)

	return created, nil
}

// Reschedule moves an appointment to a new date and start, preserving its
// identity and history. Only pending and confirmed appointments move.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newStart TimeOfDay) (*Appointment, error) {
	if !newStart.Valid() {
		return nil, fmt.Errorf("%w: start time out of range", ErrValidation)
	}
	if newDate.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPending && appt.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot reschedule an appointment in status %q", ErrInvalidTransition, appt.Status)
	}
	if newStart.Add(appt.Minutes) > minutesPerDay {
		return nil, fmt.Errorf("%w: appointment must end within the day", ErrValidation)
	}

	date := DateOnly(newDate, s.loc)

	var moved *Appointment

	err = s.locker.WithScheduleLock(ctx, appt.PractitionerID, date, func(lockCtx context.Context) error {
		res, err := s.CheckConflict(lockCtx, appt.PractitionerID, date, newStart, appt.Minutes, &appt.ID)
		if err != nil {
			return err
		}
		if res.Conflict {
			return &ConflictError{Result: res}
		}

		updated, err := s.repo.RescheduleAppointment(lockCtx, appt.ID, date, newStart, []Status{StatusPending, StatusConfirmed})
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// The row exists; its status moved under us.
				return fmt.Errorf("%w: appointment changed concurrently", ErrInvalidTransition)
			}
			return fmt.Errorf("reschedule appointment: %w", err)
		}
		moved = updated
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return moved, nil
}

// Confirm moves a pending appointment to confirmed and stamps ConfirmedAt.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, EventConfirm, "")
}

// StartAttention marks the patient as being attended.
func (s *Service) StartAttention(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, EventStartAttention, "")
}

// FinishAttention closes the visit and stamps AttendedAt.
func (s *Service) FinishAttention(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, EventFinishAttention, "")
}

// Cancel cancels a pending or confirmed appointment, appending the optional
// reason to its notes, and emits a cancelled notification.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	note := ""
	if reason != "" {
		note = "Cancelled: " + reason
	}
	appt, err := s.transition(ctx, id, EventCancel, note)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, NotifyCancelled, appt)

	return appt, nil
}

// MarkAbsent records that the patient did not show up.
func (s *Service) MarkAbsent(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, EventMarkAbsent, "")
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, ev Event, note string) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := NextStatus(appt.Status, ev)
	if err != nil {
		return nil, err
	}

	change := StatusChange{To: next, AppendNote: note}
	now := s.clock.Now().In(s.loc)
	switch ev {
	case EventConfirm:
		change.ConfirmedAt = &now
	case EventFinishAttention:
		change.AttendedAt = &now
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, allowedFrom(ev), change)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%w: appointment changed concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("apply %s: %w", ev, err)
	}

	return updated, nil
}

// GetAppointment retrieves one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

// ListAppointments returns appointments matching the filter, ordered by
// date then start time.
func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.DateFrom != nil {
		d := DateOnly(*f.DateFrom, s.loc)
		f.DateFrom = &d
	}
	if f.DateTo != nil {
		d := DateOnly(*f.DateTo, s.loc)
		f.DateTo = &d
	}
	return s.repo.ListAppointments(ctx, f)
}

// CreateRule registers a weekly availability rule after validation. The
// (practitioner, weekday, start) triple must be unique among active rules.
func (s *Service) CreateRule(ctx context.Context, r WeeklyRule) (*WeeklyRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.PractitionerExists(ctx, r.PractitionerID); err != nil {
		return nil, err
	}
	r.Active = true
	return s.repo.CreateRule(ctx, r)
}

// Rules lists a practitioner's active rules, ordered by weekday and start.
func (s *Service) Rules(ctx context.Context, practitionerID uuid.UUID) ([]WeeklyRule, error) {
	return s.repo.RulesForPractitioner(ctx, practitionerID)
}

// DeactivateRule retires a rule without deleting it.
func (s *Service) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateRule(ctx, id)
}

// CreateClosure registers a closure after validation.
func (s *Service) CreateClosure(ctx context.Context, c Closure) (*Closure, error) {
	c.DateStart = DateOnly(c.DateStart, s.loc)
	c.DateEnd = DateOnly(c.DateEnd, s.loc)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.PractitionerID != nil {
		if err := s.repo.PractitionerExists(ctx, *c.PractitionerID); err != nil {
			return nil, err
		}
	}
	c.Active = true
	return s.repo.CreateClosure(ctx, c)
}

// Closures lists closures matching the filter.
func (s *Service) Closures(ctx context.Context, f ClosureFilter) ([]Closure, error) {
	if f.Date != nil {
		d := DateOnly(*f.Date, s.loc)
		f.Date = &d
	}
	return s.repo.ListClosures(ctx, f)
}

// DeactivateClosure retires a closure without deleting it.
func (s *Service) DeactivateClosure(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateClosure(ctx, id)
}

// DispatchReminders notifies patients of tomorrow's pending and confirmed
// appointments that have not been reminded yet. At-least-once: a partial
// failure leaves reminder_sent unset and the next run re-attempts it.
func (s *Service) DispatchReminders(ctx context.Context) (int, error) {
	tomorrow := DateOnly(s.clock.Now().In(s.loc), s.loc).AddDate(0, 0, 1)

	due, err := s.repo.RemindersDue(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("find reminders due: %w", err)
	}

	sent := 0
	for i := range due {
		appt := &due[i]
		if err := s.notifier.Notify(ctx, NotifyReminder, appt); err != nil {
			s.log.Warn().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("reminder delivery failed, will retry next run")
			continue
		}
		if err := s.repo.MarkReminderSent(ctx, appt.ID); err != nil {
			s.log.Warn().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("could not mark reminder as sent")
			continue
		}
		sent++
	}

	return sent, nil
}

func (s *Service) notify(ctx context.Context, kind NotificationKind, appt *Appointment) {
	if s.notifier == nil || appt == nil {
		return
	}
	if err := s.notifier.Notify(ctx, kind, appt); err != nil {
		s.log.Warn().Err(err).
			Str("event", string(kind)).
			Str("appointment_id", appt.ID.String()).
			Msg("notification delivery failed")
	}
}
