package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Slot is a candidate bookable start time derived from a weekly rule.
type Slot struct {
	Start    TimeOfDay `json:"start"`
	End      TimeOfDay `json:"end"`
	Capacity int       `json:"capacity"`
}

// BuildSlots derives the ordered bookable start times for one practitioner
// and date: the weekday's active rules walked in slot-duration steps, minus
// every candidate whose interval intersects an applicable closure. It is a
// pure function of its inputs and is recomputed on every call.
//
// Candidates are not checked against existing appointments here; capacity
// may allow several bookings per slot, so that is the conflict checker's
// job at booking time.
func BuildSlots(rules []WeeklyRule, closures []Closure, practitionerID uuid.UUID, date time.Time) []Slot {
	weekday := date.Weekday()
	blocked := blockedIntervals(closures, practitionerID, date)

	var slots []Slot
	for _, r := range rules {
		if !r.Active || r.PractitionerID != practitionerID || r.Weekday != weekday {
			continue
		}
		for start := r.Start; start.Add(r.SlotMinutes) <= r.End; start = start.Add(r.SlotMinutes) {
			iv := Interval{Start: start, End: start.Add(r.SlotMinutes)}
			if overlapsAny(iv, blocked) {
				continue
			}
			slots = append(slots, Slot{Start: iv.Start, End: iv.End, Capacity: r.Capacity})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].End < slots[j].End
	})

	// Rules for the same weekday may interleave; collapse candidates that
	// landed on the same interval, keeping the widest capacity. Candidates
	// sharing only a start stay distinct so the reported capacity always
	// belongs to the interval it is reported with.
	merged := slots[:0]
	for _, s := range slots {
		if n := len(merged); n > 0 && merged[n-1].Start == s.Start && merged[n-1].End == s.End {
			if s.Capacity > merged[n-1].Capacity {
				merged[n-1].Capacity = s.Capacity
			}
			continue
		}
		merged = append(merged, s)
	}

	return merged
}
