package schedule

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a lifecycle event is applied to an
// appointment whose current status does not permit it. Rejected events
// leave the appointment unchanged.
var ErrInvalidTransition = errors.New("invalid status transition")

type Event string

const (
	EventConfirm         Event = "confirm"
	EventStartAttention  Event = "start_attention"
	EventFinishAttention Event = "finish_attention"
	EventCancel          Event = "cancel"
	EventMarkAbsent      Event = "mark_absent"
)

type transition struct {
	from []Status
	to   Status
}

// pending (initial) -> confirmed -> in_progress -> attended; cancelled and
// absent are terminal alternatives reachable from pending/confirmed.
var transitions = map[Event]transition{
	EventConfirm:         {from: []Status{StatusPending}, to: StatusConfirmed},
	EventStartAttention:  {from: []Status{StatusPending, StatusConfirmed}, to: StatusInProgress},
	EventFinishAttention: {from: []Status{StatusConfirmed, StatusInProgress}, to: StatusAttended},
	EventCancel:          {from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelled},
	EventMarkAbsent:      {from: []Status{StatusPending, StatusConfirmed}, to: StatusAbsent},
}

// NextStatus resolves the status an event leads to from the current one.
func NextStatus(current Status, ev Event) (Status, error) {
	tr, ok := transitions[ev]
	if !ok {
		return "", fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}
	for _, from := range tr.from {
		if current == from {
			return tr.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s an appointment in status %q", ErrInvalidTransition, ev, current)
}

// allowedFrom lists the statuses an event may fire from, for CAS updates.
func allowedFrom(ev Event) []Status {
	return transitions[ev].from
}
