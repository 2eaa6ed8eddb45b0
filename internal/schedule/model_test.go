package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != TimeOfDayOf(9, 30) {
		t.Fatalf("got %v, want 09:30", got)
	}
	if got.String() != "09:30" {
		t.Fatalf("String() = %q, want %q", got.String(), "09:30")
	}

	for _, bad := range []string{"", "9:30pm", "25:00", "12:60", "noon"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		} else if !errors.Is(err, ErrValidation) {
			t.Fatalf("error for %q should wrap ErrValidation, got %v", bad, err)
		}
	}
}

func TestTimeOfDayAt(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, loc)

	at := TimeOfDayOf(14, 30).At(day)
	if at.Hour() != 14 || at.Minute() != 30 || at.Location() != loc {
		t.Fatalf("unexpected anchored time %v", at)
	}
}

func TestDateOnlyKeepsCalendarDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// A date parsed from JSON is UTC midnight; re-anchoring must not
	// shift it to the previous day in a western timezone.
	parsed := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	got := DateOnly(parsed, loc)
	if got.Year() != 2026 || got.Month() != time.September || got.Day() != 1 {
		t.Fatalf("DateOnly moved the calendar day: %v", got)
	}
	if got.Location() != loc {
		t.Fatalf("DateOnly should anchor in the clinic location, got %v", got.Location())
	}
}

func TestWeeklyRuleValidate(t *testing.T) {
	valid := WeeklyRule{
		PractitionerID: uuid.New(),
		Weekday:        time.Monday,
		Start:          TimeOfDayOf(9, 0),
		End:            TimeOfDayOf(12, 0),
		SlotMinutes:    30,
		Capacity:       1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*WeeklyRule)
	}{
		{"missing practitioner", func(r *WeeklyRule) { r.PractitionerID = uuid.Nil }},
		{"end before start", func(r *WeeklyRule) { r.End = TimeOfDayOf(8, 0) }},
		{"end equals start", func(r *WeeklyRule) { r.End = r.Start }},
		{"duration too short", func(r *WeeklyRule) { r.SlotMinutes = 10 }},
		{"duration too long", func(r *WeeklyRule) { r.SlotMinutes = 180 }},
		{"capacity zero", func(r *WeeklyRule) { r.Capacity = 0 }},
		{"capacity too high", func(r *WeeklyRule) { r.Capacity = 6 }},
		{"weekday out of range", func(r *WeeklyRule) { r.Weekday = 7 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)
			err := r.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error should wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestClosureValidate(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	from := TimeOfDayOf(10, 0)
	to := TimeOfDayOf(11, 0)

	valid := Closure{
		DateStart: day,
		DateEnd:   day.AddDate(0, 0, 2),
		Kind:      ClosureVacation,
		Reason:    "Summer vacation",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid whole-day closure rejected: %v", err)
	}

	withTimes := valid
	withTimes.Start = &from
	withTimes.End = &to
	if err := withTimes.Validate(); err != nil {
		t.Fatalf("valid partial closure rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Closure)
	}{
		{"end date before start date", func(c *Closure) { c.DateEnd = day.AddDate(0, 0, -1) }},
		{"only start time", func(c *Closure) { c.Start = &from }},
		{"only end time", func(c *Closure) { c.End = &to }},
		{"end time before start time", func(c *Closure) {
			bad := TimeOfDayOf(9, 0)
			c.Start = &from
			c.End = &bad
		}},
		{"unknown kind", func(c *Closure) { c.Kind = "strike" }},
		{"missing reason", func(c *Closure) { c.Reason = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error should wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestClosureCovers(t *testing.T) {
	practitioner := uuid.New()
	other := uuid.New()

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)

	clinicWide := Closure{DateStart: start, DateEnd: end, Kind: ClosureHoliday, Reason: "x", Active: true}
	personal := clinicWide
	personal.PractitionerID = &other

	inside := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	after := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	if !clinicWide.Covers(practitioner, inside) {
		t.Fatal("clinic-wide closure should cover every practitioner")
	}
	if !clinicWide.Covers(practitioner, start) || !clinicWide.Covers(practitioner, end) {
		t.Fatal("date range bounds are inclusive")
	}
	if clinicWide.Covers(practitioner, before) || clinicWide.Covers(practitioner, after) {
		t.Fatal("closure covers dates outside its range")
	}
	if personal.Covers(practitioner, inside) {
		t.Fatal("personal closure leaked to another practitioner")
	}
	if !personal.Covers(other, inside) {
		t.Fatal("personal closure should cover its own practitioner")
	}

	inactive := clinicWide
	inactive.Active = false
	if inactive.Covers(practitioner, inside) {
		t.Fatal("inactive closure should not cover anything")
	}

	// Dates scanned from Postgres come back as UTC midnight while the
	// service normalizes to clinic-local midnight; coverage must still
	// compare by calendar day.
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	clinicDay := time.Date(2026, 1, 7, 0, 0, 0, 0, loc)
	if !clinicWide.Covers(practitioner, clinicDay) {
		t.Fatal("coverage must be timezone-insensitive for calendar days")
	}
}

func TestStatusSets(t *testing.T) {
	blocking := []Status{StatusPending, StatusConfirmed, StatusInProgress}
	terminal := []Status{StatusAttended, StatusCancelled, StatusAbsent}

	for _, s := range blocking {
		if !s.Blocks() || s.Terminal() {
			t.Fatalf("%s should block and not be terminal", s)
		}
	}
	for _, s := range terminal {
		if s.Blocks() || !s.Terminal() {
			t.Fatalf("%s should be terminal and not block", s)
		}
	}
	if Status("unknown").Valid() {
		t.Fatal("unknown status should not be valid")
	}
}
