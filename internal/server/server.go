// Package server exposes the relay over HTTP: the web chat endpoint, Telegram
// webhook delivery, bot registration and health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/nanorelay/internal/config"
	"github.com/edgard/nanorelay/internal/credential"
	"github.com/edgard/nanorelay/internal/logger"
	"github.com/edgard/nanorelay/internal/relay"
)

// Telegram is the subset of the Bot API the server calls.
type Telegram interface {
	SendMessage(ctx context.Context, token string, chatID int64, text, parseMode string) error
	SetWebhook(ctx context.Context, token, webhookURL, secret string) error
	GetMe(ctx context.Context, token string) (*models.User, error)
}

// Deps holds the collaborators of the HTTP server.
type Deps struct {
	Config   *config.Config
	Relay    *relay.Relay
	Telegram Telegram
	Store    credential.Store
	Resolver *credential.Resolver
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server serves the relay's HTTP API.
type Server struct {
	cfg      *config.Config
	relay    *relay.Relay
	telegram Telegram
	store    credential.Store
	resolver *credential.Resolver
	logger   *slog.Logger
	now      func() time.Time
	handler  http.Handler
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		cfg:      deps.Config,
		relay:    deps.Relay,
		telegram: deps.Telegram,
		store:    deps.Store,
		resolver: deps.Resolver,
		logger:   log.With("component", "http_server"),
		now:      now,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = config.DefaultCORSOrigins
	}

	r := chi.NewRouter()
	r.Use(logger.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders: []string{logger.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/webhook/{botToken}", s.handleWebhook)
	r.Route("/api", func(r chi.Router) {
		r.Post("/gemini", s.handleChat)
		r.Post("/telegram/setup", s.handleSetup)
		r.Get("/telegram/info/{botToken}", s.handleBotInfo)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultServerShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped gracefully.")
	return nil
}
