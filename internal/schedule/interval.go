package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Interval is a half-open clock-time range [Start, End) within one day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps uses the strict half-open intersection test: touching
// endpoints do not conflict.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether other lies fully within iv.
func (iv Interval) Contains(other Interval) bool {
	return iv.Start <= other.Start && other.End <= iv.End
}

// ContainsTime reports whether t lies in [Start, End).
func (iv Interval) ContainsTime(t TimeOfDay) bool {
	return iv.Start <= t && t < iv.End
}

func (iv Interval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}

// blockedIntervals collapses the closures applicable to one practitioner
// and date into the day's blocked interval set.
func blockedIntervals(closures []Closure, practitionerID uuid.UUID, date time.Time) []Interval {
	var blocked []Interval
	for _, c := range closures {
		if !c.Covers(practitionerID, date) {
			continue
		}
		blocked = append(blocked, c.Blocked())
	}
	return blocked
}

func overlapsAny(iv Interval, set []Interval) bool {
	for _, other := range set {
		if iv.Overlaps(other) {
			return true
		}
	}
	return false
}
