package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinichub/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Log     zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability
	r.Get("/practitioners/{id}/slots", listSlotsHandler(cfg.Service))
	r.Get("/practitioners/{id}/rules", listRulesHandler(cfg.Service))
	r.Post("/rules", createRuleHandler(cfg.Service))
	r.Delete("/rules/{id}", deactivateRuleHandler(cfg.Service))

	// Closure calendar
	r.Post("/closures", createClosureHandler(cfg.Service))
	r.Get("/closures", listClosuresHandler(cfg.Service))
	r.Delete("/closures/{id}", deactivateClosureHandler(cfg.Service))

	// Appointments and lifecycle
	svc := cfg.Service
	r.Post("/appointments", bookAppointmentHandler(svc))
	r.Get("/appointments", listAppointmentsHandler(svc))
	r.Get("/appointments/{id}", getAppointmentHandler(svc))
	r.Post("/appointments/{id}/reschedule", rescheduleHandler(svc))
	r.Post("/appointments/{id}/cancel", cancelHandler(svc))
	r.Post("/appointments/{id}/confirm", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.Confirm(req.Context(), id)
	}))
	r.Post("/appointments/{id}/start", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.StartAttention(req.Context(), id)
	}))
	r.Post("/appointments/{id}/finish", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.FinishAttention(req.Context(), id)
	}))
	r.Post("/appointments/{id}/absent", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.MarkAbsent(req.Context(), id)
	}))

	return r
}
