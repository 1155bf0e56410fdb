package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/nanorelay/internal/config"
	"github.com/edgard/nanorelay/internal/credential"
)

// TaskDeps contains the dependencies of the built-in tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  credential.Store
	// TTL is how long a registration may go unseen before it is evicted.
	// Zero disables eviction.
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Tasks returns the built-in tasks keyed by the names used in the
// scheduler configuration.
func Tasks(deps TaskDeps) map[string]TaskFunc {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return map[string]TaskFunc{
		config.TaskRegistrationExpiry: newRegistrationExpiryTask(deps),
		config.TaskStoreMaintenance:   newStoreMaintenanceTask(deps),
	}
}

func newRegistrationExpiryTask(deps TaskDeps) TaskFunc {
	log := deps.Logger.With("task", config.TaskRegistrationExpiry)

	return func(ctx context.Context) error {
		if deps.TTL <= 0 {
			log.DebugContext(ctx, "Registration expiry disabled")
			return nil
		}

		cutoff := deps.Now().Add(-deps.TTL)
		removed, err := deps.Store.DeleteInactive(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("registration expiry failed: %w", err)
		}
		if removed > 0 {
			log.InfoContext(ctx, "Evicted inactive bot registrations", "count", removed, "cutoff", cutoff)
		}
		return nil
	}
}

func newStoreMaintenanceTask(deps TaskDeps) TaskFunc {
	log := deps.Logger.With("task", config.TaskStoreMaintenance)

	return func(ctx context.Context) error {
		startTime := time.Now()
		if err := deps.Store.Maintain(ctx); err != nil {
			return fmt.Errorf("store maintenance failed: %w", err)
		}
		log.InfoContext(ctx, "Store maintenance completed", "duration", time.Since(startTime))
		return nil
	}
}
