package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apimiddleware "github.com/phrazzld/mentorbook-api/internal/api/middleware"
	"github.com/phrazzld/mentorbook-api/internal/service/auth"
	"github.com/rs/cors"
)

// RouterConfig holds everything the HTTP routes need.
type RouterConfig struct {
	Booking        BookingService
	Matching       MatchService
	Outbox         OutboxOperator
	TokenValidator auth.TokenValidator
	AllowedOrigins []string
	Health         http.HandlerFunc
	Logger         *slog.Logger
}

// NewRouter builds the chi router serving the public API.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	bookingHandler := NewBookingHandler(cfg.Booking, log)
	matchHandler := NewMatchHandler(cfg.Matching, log)
	outboxHandler := NewOutboxHandler(cfg.Outbox, log)
	authMiddleware := apimiddleware.NewAuthMiddleware(cfg.TokenValidator)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(apimiddleware.TraceMiddleware(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/mentors/{mentorID}", func(r chi.Router) {
			r.Get("/availability", bookingHandler.GetAvailability)
			r.Post("/availability", bookingHandler.AddAvailability)
			r.Delete("/availability/{blockID}", bookingHandler.RemoveAvailability)
			r.Post("/sessions", bookingHandler.CreateSession)
		})

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", bookingHandler.GetSession)
			r.Patch("/status", bookingHandler.UpdateSessionStatus)
			r.Post("/reschedule", bookingHandler.RescheduleSession)
		})

		r.Post("/matches", matchHandler.FindMatches)

		r.Route("/admin/outbox", func(r chi.Router) {
			r.Use(apimiddleware.RequireRole(auth.RoleAdmin))
			r.Get("/failed", outboxHandler.ListFailed)
			r.Post("/{taskID}/replay", outboxHandler.Replay)
		})
	})

	if cfg.Health != nil {
		r.Get("/health", cfg.Health)
	}

	return r
}
