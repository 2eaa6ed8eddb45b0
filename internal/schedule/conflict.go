package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrConflict is the sentinel every ConflictError unwraps to.
var ErrConflict = errors.New("scheduling conflict")

type ConflictReason string

const (
	ReasonNone    ConflictReason = "NONE"
	ReasonPast    ConflictReason = "PAST"
	ReasonOverlap ConflictReason = "OVERLAP"
	ReasonClosure ConflictReason = "CLOSURE"
)

type ConflictResult struct {
	Conflict bool           `json:"conflict"`
	Reason   ConflictReason `json:"reason"`
	Detail   string         `json:"detail,omitempty"`
}

func noConflict() ConflictResult {
	return ConflictResult{Conflict: false, Reason: ReasonNone}
}

// ConflictError reports a booking attempt rejected by the conflict checker.
type ConflictError struct {
	Result ConflictResult
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict (%s): %s", e.Result.Reason, e.Result.Detail)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// CheckConflict determines whether a proposed (practitioner, date, start,
// duration) collides with the past, an applicable closure, or existing
// blocking appointments beyond the slot's concurrent capacity. excludeID
// skips one appointment, used when re-validating an appointment against
// itself during reschedule.
func (s *Service) CheckConflict(ctx context.Context, practitionerID uuid.UUID, date time.Time, start TimeOfDay, minutes int, excludeID *uuid.UUID) (ConflictResult, error) {
	date = DateOnly(date, s.loc)
	span := Interval{Start: start, End: start.Add(minutes)}

	if start.At(date).Before(s.clock.Now().In(s.loc)) {
		return ConflictResult{
			Conflict: true,
			Reason:   ReasonPast,
			Detail:   fmt.Sprintf("%s %s is in the past", date.Format("2006-01-02"), start),
		}, nil
	}

	closures, err := s.repo.ClosuresForDate(ctx, practitionerID, date)
	if err != nil {
		return ConflictResult{}, fmt.Errorf("load closures: %w", err)
	}
	for _, c := range closures {
		if !c.Covers(practitionerID, date) {
			continue
		}
		if span.Overlaps(c.Blocked()) {
			return ConflictResult{
				Conflict: true,
				Reason:   ReasonClosure,
				Detail:   fmt.Sprintf("%s: %s", c.Kind, c.Reason),
			}, nil
		}
	}

	rules, err := s.repo.RulesForWeekday(ctx, practitionerID, date.Weekday())
	if err != nil {
		return ConflictResult{}, fmt.Errorf("load rules: %w", err)
	}
	capacity := capacityAt(rules, start)

	existing, err := s.repo.BlockingAppointments(ctx, practitionerID, date)
	if err != nil {
		return ConflictResult{}, fmt.Errorf("load appointments: %w", err)
	}

	overlapping := 0
	for _, a := range existing {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if span.Overlaps(a.Span()) {
			overlapping++
		}
	}
	if overlapping >= capacity {
		return ConflictResult{
			Conflict: true,
			Reason:   ReasonOverlap,
			Detail: fmt.Sprintf("%d overlapping appointment(s) at %s, capacity %d",
				overlapping, span, capacity),
		}, nil
	}

	return noConflict(), nil
}

// capacityAt resolves the concurrent capacity governing a start time: the
// widest capacity among active rules whose window contains it, default 1
// when no rule matches.
func capacityAt(rules []WeeklyRule, start TimeOfDay) int {
	capacity := 1
	for _, r := range rules {
		if !r.Active {
			continue
		}
		if r.Window().ContainsTime(start) && r.Capacity > capacity {
			capacity = r.Capacity
		}
	}
	return capacity
}
