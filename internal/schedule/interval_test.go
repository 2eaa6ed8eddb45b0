package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIntervalOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "disjoint",
			a:    Interval{TimeOfDayOf(9, 0), TimeOfDayOf(9, 30)},
			b:    Interval{TimeOfDayOf(10, 0), TimeOfDayOf(10, 30)},
			want: false,
		},
		{
			name: "touching endpoints do not conflict",
			a:    Interval{TimeOfDayOf(9, 0), TimeOfDayOf(9, 30)},
			b:    Interval{TimeOfDayOf(9, 30), TimeOfDayOf(10, 0)},
			want: false,
		},
		{
			name: "partial overlap",
			a:    Interval{TimeOfDayOf(9, 0), TimeOfDayOf(9, 30)},
			b:    Interval{TimeOfDayOf(9, 15), TimeOfDayOf(9, 45)},
			want: true,
		},
		{
			name: "contained",
			a:    Interval{TimeOfDayOf(9, 0), TimeOfDayOf(12, 0)},
			b:    Interval{TimeOfDayOf(10, 0), TimeOfDayOf(10, 30)},
			want: true,
		},
		{
			name: "identical",
			a:    Interval{TimeOfDayOf(9, 0), TimeOfDayOf(9, 30)},
			b:    Interval{TimeOfDayOf(9, 0), TimeOfDayOf(9, 30)},
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			// The intersection predicate is commutative.
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v (not commutative)", tc.b, tc.a, got, tc.want)
			}
		})
	}
}

func TestIntervalContains(t *testing.T) {
	outer := Interval{TimeOfDayOf(9, 0), TimeOfDayOf(12, 0)}

	if !outer.Contains(Interval{TimeOfDayOf(9, 0), TimeOfDayOf(12, 0)}) {
		t.Fatal("interval should contain itself")
	}
	if !outer.Contains(Interval{TimeOfDayOf(11, 30), TimeOfDayOf(12, 0)}) {
		t.Fatal("interval should contain a sub-interval ending at its end")
	}
	if outer.Contains(Interval{TimeOfDayOf(11, 30), TimeOfDayOf(12, 30)}) {
		t.Fatal("interval should not contain a sub-interval spilling past its end")
	}
}

func TestBlockedIntervals(t *testing.T) {
	practitioner := uuid.New()
	other := uuid.New()
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	from := TimeOfDayOf(10, 0)
	to := TimeOfDayOf(11, 0)

	closures := []Closure{
		{ // clinic-wide partial closure
			DateStart: date, DateEnd: date,
			Start: &from, End: &to,
			Kind: ClosureOther, Reason: "staff meeting", Active: true,
		},
		{ // someone else's whole-day vacation
			PractitionerID: &other,
			DateStart:      date, DateEnd: date,
			Kind: ClosureVacation, Reason: "vacation", Active: true,
		},
		{ // inactive closure
			DateStart: date, DateEnd: date,
			Kind: ClosureHoliday, Reason: "cancelled holiday", Active: false,
		},
	}

	blocked := blockedIntervals(closures, practitioner, date)
	if len(blocked) != 1 {
		t.Fatalf("expected 1 blocked interval, got %d", len(blocked))
	}
	if blocked[0].Start != from || blocked[0].End != to {
		t.Fatalf("unexpected blocked interval %v", blocked[0])
	}
}
