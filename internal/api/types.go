package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinichub/clinic-scheduling/internal/schedule"
)

type BookAppointmentRequest struct {
	PatientID      string `json:"patient_id"`
	PractitionerID string `json:"practitioner_id"`
	Date           string `json:"date"`  // YYYY-MM-DD
	Start          string `json:"start"` // HH:MM
	Minutes        int    `json:"duration_minutes"`
	Reason         string `json:"reason"`
	Notes          string `json:"notes,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`
}

type RescheduleRequest struct {
	Date  string `json:"date"`
	Start string `json:"start"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CreateRuleRequest struct {
	PractitionerID string `json:"practitioner_id"`
	Weekday        int    `json:"weekday"` // 0=Sunday .. 6=Saturday
	Start          string `json:"start"`
	End            string `json:"end"`
	SlotMinutes    int    `json:"slot_minutes"`
	Capacity       int    `json:"capacity"`
}

type CreateClosureRequest struct {
	PractitionerID *string `json:"practitioner_id,omitempty"` // absent = clinic-wide
	DateStart      string  `json:"date_start"`
	DateEnd        string  `json:"date_end"`
	Start          *string `json:"start,omitempty"` // absent = whole day(s)
	End            *string `json:"end,omitempty"`
	Kind           string  `json:"kind"`
	Reason         string  `json:"reason"`
	CreatedBy      *string `json:"created_by,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	PractitionerID uuid.UUID  `json:"practitioner_id"`
	Date           string     `json:"date"`
	Start          string     `json:"start"`
	End            string     `json:"end"`
	Minutes        int        `json:"duration_minutes"`
	Reason         string     `json:"reason"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	ReminderSent   bool       `json:"reminder_sent"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	AttendedAt     *time.Time `json:"attended_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		PractitionerID: a.PractitionerID,
		Date:           a.Date.Format("2006-01-02"),
		Start:          a.Start.String(),
		End:            a.End().String(),
		Minutes:        a.Minutes,
		Reason:         a.Reason,
		Status:         string(a.Status),
		Notes:          a.Notes,
		ReminderSent:   a.ReminderSent,
		ConfirmedAt:    a.ConfirmedAt,
		AttendedAt:     a.AttendedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type SlotsResponse struct {
	PractitionerID uuid.UUID       `json:"practitioner_id"`
	Date           string          `json:"date"`
	Slots          []schedule.Slot `json:"slots"`
}

type RuleResponse struct {
	ID             uuid.UUID `json:"id"`
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Weekday        int       `json:"weekday"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	SlotMinutes    int       `json:"slot_minutes"`
	Capacity       int       `json:"capacity"`
	Active         bool      `json:"active"`
}

func toRuleResponse(r *schedule.WeeklyRule) RuleResponse {
	return RuleResponse{
		ID:             r.ID,
		PractitionerID: r.PractitionerID,
		Weekday:        int(r.Weekday),
		Start:          r.Start.String(),
		End:            r.End.String(),
		SlotMinutes:    r.SlotMinutes,
		Capacity:       r.Capacity,
		Active:         r.Active,
	}
}

type ClosureResponse struct {
	ID             uuid.UUID  `json:"id"`
	PractitionerID *uuid.UUID `json:"practitioner_id,omitempty"`
	DateStart      string     `json:"date_start"`
	DateEnd        string     `json:"date_end"`
	Start          *string    `json:"start,omitempty"`
	End            *string    `json:"end,omitempty"`
	Kind           string     `json:"kind"`
	Reason         string     `json:"reason"`
	Active         bool       `json:"active"`
}

func toClosureResponse(c *schedule.Closure) ClosureResponse {
	resp := ClosureResponse{
		ID:             c.ID,
		PractitionerID: c.PractitionerID,
		DateStart:      c.DateStart.Format("2006-01-02"),
		DateEnd:        c.DateEnd.Format("2006-01-02"),
		Kind:           string(c.Kind),
		Reason:         c.Reason,
		Active:         c.Active,
	}
	if c.Start != nil {
		s := c.Start.String()
		resp.Start = &s
	}
	if c.End != nil {
		e := c.End.String()
		resp.End = &e
	}
	return resp
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
