package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clinichub/clinic-scheduling/internal/schedule"
)

// LogSender implements schedule.Notifier by emitting a structured log line
// per event. Real email/SMS delivery belongs to an external sender; this is
// the default wiring and a development stand-in.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Notify(ctx context.Context, kind schedule.NotificationKind, appt *schedule.Appointment) error {
	s.log.Info().
		Str("event", string(kind)).
		Str("appointment_id", appt.ID.String()).
		Str("patient_id", appt.PatientID.String()).
		Str("practitioner_id", appt.PractitionerID.String()).
		Str("date", appt.Date.Format("2006-01-02")).
		Str("start", appt.Start.String()).
		Msg("appointment notification")
	return nil
}
