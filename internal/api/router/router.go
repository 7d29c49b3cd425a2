package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/appointment-agent/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/appointment-agent/internal/http/middleware"
	"github.com/wolfman30/appointment-agent/internal/webchat"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Chat               *handlers.ChatHandler
	Appointments       *handlers.AppointmentsHandler
	WebChat            *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-client limit on turn endpoints; zero disables it.
	TurnRateLimit float64
	TurnBurst     int

	// Optional dependency checks reported by /health.
	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Appointments != nil {
		r.Get("/appointments", cfg.Appointments.List)
	}

	// HTTP turns and websocket frames draw from the same per-client bucket.
	limitTurns := func(next http.Handler) http.Handler { return next }
	webChat := cfg.WebChat
	if cfg.TurnRateLimit > 0 {
		turnLimiter := httpmiddleware.NewRateLimiter(cfg.TurnRateLimit, cfg.TurnBurst)
		limitTurns = httpmiddleware.RateLimitWith(turnLimiter)
		if webChat != nil {
			webChat = webChat.WithTurnLimiter(turnLimiter)
		}
	}
	r.Route("/chat", func(chat chi.Router) {
		if webChat != nil {
			// Frames are limited one by one, so the upgrade itself is not.
			chat.Get("/ws", webChat.HandleWebSocket)
		}
		if cfg.Chat == nil {
			return
		}
		chat.Post("/sessions", cfg.Chat.CreateSession)
		chat.Route("/sessions/{sessionID}", func(s chi.Router) {
			s.Get("/", cfg.Chat.GetSession)
			s.With(limitTurns).Post("/messages", cfg.Chat.PostMessage)
			s.Get("/history", cfg.Chat.GetHistory)
		})
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
