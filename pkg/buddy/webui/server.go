// Package webui serves the browser front end: login and registration pages,
// the chat page, and the JSON endpoints the chat page talks to.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jholhewres/buddy/pkg/buddy/auth"
	"github.com/jholhewres/buddy/pkg/buddy/scheduler"
)

// Responder answers a chat message for a logged-in user.
// This avoids a direct dependency on the assistant package.
type Responder interface {
	Respond(ctx context.Context, user, message string) (reply, intent string)
}

// NotificationSource hands out fired reminders, consuming them.
type NotificationSource interface {
	Drain(user string) []scheduler.Notification
}

// ReminderSource lists the reminders still scheduled for a user.
type ReminderSource interface {
	Pending(user string) []scheduler.PendingReminder
}

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address (default: ":5000").
	Addr string `yaml:"addr"`

	// CORSOrigins enables CORS for these origins. Empty = same-origin only.
	CORSOrigins []string `yaml:"cors_origins"`

	// MaxBodyBytes limits request bodies (default: 64 KiB).
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// DefaultConfig returns the default listen settings.
func DefaultConfig() Config {
	return Config{
		Addr:         ":5000",
		MaxBodyBytes: 64 << 10,
	}
}

// Deps are the collaborators of the server.
type Deps struct {
	Responder     Responder
	Users         *auth.Users
	Sessions      *auth.Sessions
	Notifications NotificationSource
	Reminders     ReminderSource

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server is the web front end.
type Server struct {
	cfg    Config
	deps   Deps
	pages  *pages
	router chi.Router
	logger *slog.Logger

	server *http.Server
}

// New creates a server and registers its routes.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		pages:  mustParsePages(),
		logger: logger.With("component", "webui"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(securityHeaders)
	r.Use(maxBody(s.cfg.MaxBodyBytes))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/register", s.handleRegisterPage)
	r.Post("/register", s.handleRegister)
	r.Get("/logout", s.handleLogout)
	r.Get("/index", s.requireLogin(s.handleIndex))

	r.Post("/chat", s.handleChat)
	r.Get("/api/notifications", s.handleNotifications)
	r.Get("/api/reminders", s.handleReminders)

	r.Get("/health", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Handle("/static/*", staticHandler())
	return r
}

// Start begins listening in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("web UI starting", "address", s.cfg.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web UI server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("web UI shutdown", "error", err)
	}
	s.logger.Info("web UI stopped")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
