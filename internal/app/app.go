// Package app wires nanorelay's components together and runs them until
// shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/nanorelay/internal/config"
	"github.com/edgard/nanorelay/internal/credential"
	"github.com/edgard/nanorelay/internal/gemini"
	"github.com/edgard/nanorelay/internal/relay"
	"github.com/edgard/nanorelay/internal/scheduler"
	"github.com/edgard/nanorelay/internal/server"
	"github.com/edgard/nanorelay/internal/telegram"
)

// App owns the service's components and their lifecycle.
type App struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     credential.Store
	server    *server.Server
	scheduler *scheduler.Scheduler
}

// New builds every component from cfg. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := credential.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	sched, err := scheduler.New(logger, cfg.Scheduler, scheduler.Tasks(scheduler.TaskDeps{
		Logger: logger,
		Store:  store,
		TTL:    cfg.Store.RegistrationTTL,
	}))
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("Error closing credential store", "error", closeErr)
		}
		return nil, err
	}

	return newApp(cfg, logger, store, sched), nil
}

// newApp builds an App around an already opened store.
func newApp(cfg *config.Config, logger *slog.Logger, store credential.Store, sched *scheduler.Scheduler) *App {
	srv := server.New(server.Deps{
		Config:   cfg,
		Relay:    relay.New(gemini.NewClient(cfg.Gemini, logger), logger),
		Telegram: telegram.NewClient(cfg.Telegram.APIURL, logger),
		Store:    store,
		Resolver: credential.NewResolver(store, cfg.Gemini, cfg.Telegram),
		Logger:   logger,
	})

	return &App{
		logger:    logger.With("component", "orchestrator"),
		cfg:       cfg,
		store:     store,
		server:    srv,
		scheduler: sched,
	}
}

// Run serves HTTP and runs scheduled tasks until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting nanorelay...", "addr", a.cfg.Server.Addr, "store", a.cfg.Store.Driver)

	if a.cfg.Gemini.APIKey == "" {
		a.logger.Warn("No default Gemini API key configured; only requests and registrations carrying a key will be answered")
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.ListenAndServe(gCtx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.scheduler != nil {
		g.Go(func() error {
			if err := a.scheduler.Run(gCtx); err != nil {
				a.logger.Error("Scheduler stopped with error", "error", err)
				return fmt.Errorf("scheduler: %w", err)
			}
			return nil
		})
	}

	a.logger.Info("nanorelay running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("nanorelay stopped due to error", "error", err)
		return err
	}

	a.logger.Info("nanorelay stopped gracefully.")
	return nil
}

// Close releases the credential store.
func (a *App) Close() error {
	return a.store.Close()
}
