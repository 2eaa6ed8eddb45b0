package schedule

import (
	"errors"
	"testing"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
		want  Status
		ok    bool
	}{
		{StatusPending, EventConfirm, StatusConfirmed, true},
		{StatusPending, EventStartAttention, StatusInProgress, true},
		{StatusPending, EventCancel, StatusCancelled, true},
		{StatusPending, EventMarkAbsent, StatusAbsent, true},
		{StatusPending, EventFinishAttention, "", false},

		{StatusConfirmed, EventStartAttention, StatusInProgress, true},
		{StatusConfirmed, EventFinishAttention, StatusAttended, true},
		{StatusConfirmed, EventCancel, StatusCancelled, true},
		{StatusConfirmed, EventMarkAbsent, StatusAbsent, true},
		{StatusConfirmed, EventConfirm, "", false},

		{StatusInProgress, EventFinishAttention, StatusAttended, true},
		{StatusInProgress, EventCancel, "", false},
		{StatusInProgress, EventConfirm, "", false},
		{StatusInProgress, EventMarkAbsent, "", false},

		{StatusAttended, EventCancel, "", false},
		{StatusCancelled, EventConfirm, "", false},
		{StatusCancelled, EventCancel, "", false},
		{StatusAbsent, EventStartAttention, "", false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_"+string(tc.event), func(t *testing.T) {
			got, err := NextStatus(tc.from, tc.event)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tc.want {
					t.Fatalf("got %s, want %s", got, tc.want)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected rejection, got %s", got)
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("error should wrap ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestNextStatusUnknownEvent(t *testing.T) {
	if _, err := NextStatus(StatusPending, Event("archive")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown event should be an invalid transition, got %v", err)
	}
}
