package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrValidation marks malformed input rejected before any mutation.
var ErrValidation = errors.New("validation failed")

const (
	MinAppointmentMinutes = 15
	MaxAppointmentMinutes = 120
	MinCapacity           = 1
	MaxCapacity           = 5

	minutesPerDay = 24 * 60
)

// TimeOfDay is a clock time expressed as minutes since midnight,
// clinic-local. It carries no date and no timezone of its own.
type TimeOfDay int

func TimeOfDayOf(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "15:04" style clock times.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid time %q, want HH:MM", ErrValidation, s)
	}
	return TimeOfDayOf(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// At anchors the clock time on the given day in the day's location.
func (t TimeOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("%w: time of day must be a %q string", ErrValidation, "HH:MM")
	}
	parsed, err := ParseTimeOfDay(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DateOnly re-anchors t's calendar day at midnight in the given location.
// It deliberately reads the day in t's own location, so a date parsed as
// UTC midnight keeps the day it was written as. Callers holding an instant
// (e.g. a clock reading) must convert with In(loc) first.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// WeeklyRule is a per-practitioner recurring availability window for one
// weekday: open interval, slot granularity and concurrent capacity.
type WeeklyRule struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Weekday        time.Weekday
	Start          TimeOfDay
	End            TimeOfDay
	SlotMinutes    int
	Capacity       int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r WeeklyRule) Validate() error {
	if r.PractitionerID == uuid.Nil {
		return fmt.Errorf("%w: practitioner id is required", ErrValidation)
	}
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday out of range", ErrValidation)
	}
	if !r.Start.Valid() || !r.End.Valid() {
		return fmt.Errorf("%w: rule times out of range", ErrValidation)
	}
	if r.End <= r.Start {
		return fmt.Errorf("%w: rule end time must be after start time", ErrValidation)
	}
	if r.SlotMinutes < MinAppointmentMinutes || r.SlotMinutes > MaxAppointmentMinutes {
		return fmt.Errorf("%w: slot duration must be between %d and %d minutes",
			ErrValidation, MinAppointmentMinutes, MaxAppointmentMinutes)
	}
	if r.Capacity < MinCapacity || r.Capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity must be between %d and %d", ErrValidation, MinCapacity, MaxCapacity)
	}
	return nil
}

// Window is the rule's open interval [Start, End).
func (r WeeklyRule) Window() Interval {
	return Interval{Start: r.Start, End: r.End}
}

type ClosureKind string

const (
	ClosureHoliday  ClosureKind = "holiday"
	ClosureVacation ClosureKind = "vacation"
	ClosureAbsence  ClosureKind = "absence"
	ClosureOther    ClosureKind = "other"
)

func (k ClosureKind) Valid() bool {
	switch k {
	case ClosureHoliday, ClosureVacation, ClosureAbsence, ClosureOther:
		return true
	}
	return false
}

// Closure blanks out or restricts availability over a date range. A nil
// PractitionerID means clinic-wide; nil times mean whole day(s).
type Closure struct {
	ID             uuid.UUID
	PractitionerID *uuid.UUID
	DateStart      time.Time
	DateEnd        time.Time
	Start          *TimeOfDay
	End            *TimeOfDay
	Kind           ClosureKind
	Reason         string
	Active         bool
	CreatedBy      *uuid.UUID
	CreatedAt      time.Time
}

func (c Closure) Validate() error {
	if c.DateStart.IsZero() || c.DateEnd.IsZero() {
		return fmt.Errorf("%w: closure date range is required", ErrValidation)
	}
	if dayOrdinal(c.DateEnd) < dayOrdinal(c.DateStart) {
		return fmt.Errorf("%w: closure end date must not precede start date", ErrValidation)
	}
	if (c.Start == nil) != (c.End == nil) {
		return fmt.Errorf("%w: closure times must be given together or not at all", ErrValidation)
	}
	if c.Start != nil {
		if !c.Start.Valid() || !c.End.Valid() {
			return fmt.Errorf("%w: closure times out of range", ErrValidation)
		}
		if *c.End <= *c.Start {
			return fmt.Errorf("%w: closure end time must be after start time", ErrValidation)
		}
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown closure kind %q", ErrValidation, c.Kind)
	}
	if c.Reason == "" {
		return fmt.Errorf("%w: closure reason is required", ErrValidation)
	}
	return nil
}

// WholeDay reports whether the closure suppresses entire days.
func (c Closure) WholeDay() bool {
	return c.Start == nil
}

// Covers reports whether the closure applies to the given practitioner
// on the given date. Clinic-wide closures apply to every practitioner.
// Dates compare as calendar days so it does not matter whether they were
// normalized in the clinic timezone or scanned from a DATE column as UTC.
func (c Closure) Covers(practitionerID uuid.UUID, date time.Time) bool {
	if !c.Active {
		return false
	}
	if c.PractitionerID != nil && *c.PractitionerID != practitionerID {
		return false
	}
	d := dayOrdinal(date)
	return d >= dayOrdinal(c.DateStart) && d <= dayOrdinal(c.DateEnd)
}

func dayOrdinal(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// Blocked returns the closure's blocked interval for a single day.
func (c Closure) Blocked() Interval {
	if c.WholeDay() {
		return Interval{Start: 0, End: minutesPerDay}
	}
	return Interval{Start: *c.Start, End: *c.End}
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusAttended   Status = "attended"
	StatusCancelled  Status = "cancelled"
	StatusAbsent     Status = "absent"
)

// Blocks reports whether an appointment in this status still occupies
// its slot for conflict purposes. Terminal states never block.
func (s Status) Blocks() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusAttended, StatusCancelled, StatusAbsent:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	return s.Blocks() || s.Terminal()
}

// Appointment is the booked unit of the schedule. It is created through
// booking, mutated only via lifecycle transitions and never hard-deleted:
// cancellation is a status, not removal.
type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	Date           time.Time
	Start          TimeOfDay
	Minutes        int
	Reason         string
	Status         Status
	Notes          string
	ReminderSent   bool
	ConfirmedAt    *time.Time
	AttendedAt     *time.Time
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// End is the appointment's exclusive end time.
func (a Appointment) End() TimeOfDay {
	return a.Start.Add(a.Minutes)
}

// Span is the occupied interval [Start, Start+Minutes).
func (a Appointment) Span() Interval {
	return Interval{Start: a.Start, End: a.End()}
}

// StartsAt anchors the appointment's start on its date.
func (a Appointment) StartsAt() time.Time {
	return a.Start.At(a.Date)
}
