package schedule

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// In-memory repository, serial locker, recording notifier and fixed clock
// used by the service tests.

type fakeRepo struct {
	patients      map[uuid.UUID]bool // id -> active
	practitioners map[uuid.UUID]bool
	rules         []WeeklyRule
	closures      []Closure
	appts         map[uuid.UUID]*Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:      make(map[uuid.UUID]bool),
		practitioners: make(map[uuid.UUID]bool),
		appts:         make(map[uuid.UUID]*Appointment),
	}
}

func (f *fakeRepo) PatientActive(_ context.Context, id uuid.UUID) error {
	active, ok := f.patients[id]
	if !ok || !active {
		return ErrPatientNotFound
	}
	return nil
}

func (f *fakeRepo) PractitionerExists(_ context.Context, id uuid.UUID) error {
	if !f.practitioners[id] {
		return ErrPractitionerNotFound
	}
	return nil
}

func (f *fakeRepo) RulesForPractitioner(_ context.Context, practitionerID uuid.UUID) ([]WeeklyRule, error) {
	var out []WeeklyRule
	for _, r := range f.rules {
		if r.PractitionerID == practitionerID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) RulesForWeekday(_ context.Context, practitionerID uuid.UUID, weekday time.Weekday) ([]WeeklyRule, error) {
	var out []WeeklyRule
	for _, r := range f.rules {
		if r.PractitionerID == practitionerID && r.Weekday == weekday && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateRule(_ context.Context, r WeeklyRule) (*WeeklyRule, error) {
	for _, existing := range f.rules {
		if existing.Active && existing.PractitionerID == r.PractitionerID &&
			existing.Weekday == r.Weekday && existing.Start == r.Start {
			return nil, ErrDuplicateRule
		}
	}
	r.ID = uuid.New()
	r.Active = true
	f.rules = append(f.rules, r)
	return &r, nil
}

func (f *fakeRepo) DeactivateRule(_ context.Context, id uuid.UUID) error {
	for i := range f.rules {
		if f.rules[i].ID == id && f.rules[i].Active {
			f.rules[i].Active = false
			return nil
		}
	}
	return ErrRuleNotFound
}

func (f *fakeRepo) ClosuresForDate(_ context.Context, practitionerID uuid.UUID, date time.Time) ([]Closure, error) {
	var out []Closure
	for _, c := range f.closures {
		if c.Covers(practitionerID, date) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListClosures(_ context.Context, filter ClosureFilter) ([]Closure, error) {
	var out []Closure
	for _, c := range f.closures {
		if !c.Active && !filter.IncludeInactive {
			continue
		}
		if filter.PractitionerID != nil && c.PractitionerID != nil && *c.PractitionerID != *filter.PractitionerID {
			continue
		}
		if filter.Date != nil {
			d := dayOrdinal(*filter.Date)
			if d < dayOrdinal(c.DateStart) || d > dayOrdinal(c.DateEnd) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) CreateClosure(_ context.Context, c Closure) (*Closure, error) {
	c.ID = uuid.New()
	c.Active = true
	f.closures = append(f.closures, c)
	return &c, nil
}

func (f *fakeRepo) DeactivateClosure(_ context.Context, id uuid.UUID) error {
	for i := range f.closures {
		if f.closures[i].ID == id && f.closures[i].Active {
			f.closures[i].Active = false
			return nil
		}
	}
	return ErrClosureNotFound
}

func (f *fakeRepo) BlockingAppointments(_ context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if a.PractitionerID == practitionerID && dayOrdinal(a.Date) == dayOrdinal(date) && a.Status.Blocks() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.appts[a.ID] = &a
	cp := a
	return &cp, nil
}

func (f *fakeRepo) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ListAppointments(_ context.Context, filter AppointmentFilter) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if filter.PractitionerID != nil && a.PractitionerID != *filter.PractitionerID {
			continue
		}
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.DateFrom != nil && dayOrdinal(a.Date) < dayOrdinal(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && dayOrdinal(a.Date) > dayOrdinal(*filter.DateTo) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from []Status, change StatusChange) (*Appointment, error) {
	a, ok := f.appts[id]
	if !ok || !statusIn(a.Status, from) {
		return nil, ErrAppointmentNotFound
	}
	a.Status = change.To
	if change.ConfirmedAt != nil {
		a.ConfirmedAt = change.ConfirmedAt
	}
	if change.AttendedAt != nil {
		a.AttendedAt = change.AttendedAt
	}
	if change.AppendNote != "" {
		if a.Notes == "" {
			a.Notes = change.AppendNote
		} else {
			a.Notes = a.Notes + "\n" + change.AppendNote
		}
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) RescheduleAppointment(_ context.Context, id uuid.UUID, newDate time.Time, newStart TimeOfDay, from []Status) (*Appointment, error) {
	a, ok := f.appts[id]
	if !ok || !statusIn(a.Status, from) {
		return nil, ErrAppointmentNotFound
	}
	a.Date = newDate
	a.Start = newStart
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) RemindersDue(_ context.Context, date time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if dayOrdinal(a.Date) != dayOrdinal(date) || a.ReminderSent {
			continue
		}
		if a.Status != StatusPending && a.Status != StatusConfirmed {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeRepo) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	a, ok := f.appts[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.ReminderSent = true
	return nil
}

func statusIn(s Status, set []Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// serialLocker runs the critical section inline.
type serialLocker struct {
	calls int
}

func (l *serialLocker) WithScheduleLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.calls++
	return fn(ctx)
}

// recordingNotifier captures events and can be told to fail.
type recordingNotifier struct {
	events []string // "kind:appointment_id"
	fail   bool
}

func (n *recordingNotifier) Notify(_ context.Context, kind NotificationKind, appt *Appointment) error {
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.events = append(n.events, string(kind)+":"+appt.ID.String())
	return nil
}

func (n *recordingNotifier) kinds() []string {
	var out []string
	for _, e := range n.events {
		out = append(out, strings.SplitN(e, ":", 2)[0])
	}
	return out
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }
