package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noai-dev/noai/pkg/middleware"
	"github.com/noai-dev/noai/pkg/session"
)

// Server is the HTTP/WebSocket front of the session manager.
type Server struct {
	sessions *session.Manager
	config   *Config
	router   chi.Router
	upgrader websocket.Upgrader

	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server for the sessions of m.
func New(m *session.Manager, cfg *Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	s := &Server{
		sessions: m,
		config:   cfg,
		logger:   logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Tracing(middleware.WithSessionHeader(SessionHeader)))
	r.Use(middleware.Metrics())

	r.Get("/healthz", s.handleHealth)
	if s.config.MetricsPath != "" {
		if s.config.Gatherer != nil {
			r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
		} else {
			r.Handle(s.config.MetricsPath, promhttp.Handler())
		}
	}
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)

			r.Get("/session", s.handleSessionState)
			r.Delete("/sessions", s.handleCloseSession)

			r.Get("/timeline", s.handleTimeline)
			r.Post("/timeline/retry", s.handleTimelineRetry)

			r.Get("/composer", s.handleComposer)
			r.Put("/composer", s.handleComposerDraft)
			r.Post("/posts", s.handleCreatePost)
			r.Post("/posts/{postID}/like", s.handleLike)
			r.Get("/posts/{postID}/comments", s.handleComments)
			r.Post("/posts/{postID}/comments", s.handleAddComment)
			r.Delete("/posts/{postID}/comments/{commentID}", s.handleDeleteComment)

			r.Post("/users/{userID}/follow", s.handleFollow)
			r.Get("/discover/{kind}", s.handleDiscover)
			r.Get("/profiles/{userID}", s.handleProfile)

			r.Get("/notifications", s.handleNotifications)
			r.Post("/notifications/open", s.handleNotificationsOpen)
			r.Post("/notifications/read-all", s.handleMarkAllRead)
			r.Post("/notifications/seen", s.handleNotificationsSeen)
			r.Post("/notifications/{id}/read", s.handleMarkRead)
		})
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.sessions.Shutdown(ctx); err != nil {
		s.logger.Error("session shutdown error", "error", err)
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
