// Package credential stores bot registrations and resolves which AI
// credential serves a given bot.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/nanorelay/internal/config"
)

// ErrNotFound is returned when no registration exists for a bot token.
var ErrNotFound = errors.New("bot registration not found")

// Registration is a bot whose webhook was registered through this service.
type Registration struct {
	Token      string    `db:"token"       json:"token"`
	WebhookURL string    `db:"webhook_url" json:"webhook_url"`
	APIKey     string    `db:"api_key"     json:"api_key,omitempty"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	LastSeenAt time.Time `db:"last_seen_at" json:"last_seen_at"`
}

// Store persists bot registrations. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save inserts or replaces the registration for reg.Token.
	Save(ctx context.Context, reg *Registration) error

	// Get returns the registration for token or ErrNotFound.
	Get(ctx context.Context, token string) (*Registration, error)

	// Touch records activity for token. Unknown tokens are ignored.
	Touch(ctx context.Context, token string, at time.Time) error

	// Delete removes the registration for token. Unknown tokens are ignored.
	Delete(ctx context.Context, token string) error

	// Count returns the number of registrations.
	Count(ctx context.Context) (int, error)

	// DeleteInactive removes registrations last seen before cutoff and
	// returns how many were removed.
	DeleteInactive(ctx context.Context, cutoff time.Time) (int, error)

	// Maintain performs backend housekeeping such as VACUUM.
	Maintain(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreSQLite:
		s, err := OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreRedis:
		s, err := OpenRedis(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func validate(reg *Registration) error {
	if reg == nil {
		return errors.New("cannot save nil registration")
	}
	if reg.Token == "" {
		return errors.New("registration must have a token")
	}
	return nil
}
