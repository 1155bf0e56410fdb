package credential

import (
	"context"
	"errors"

	"github.com/edgard/nanorelay/internal/config"
)

// Resolver decides which AI credential serves a bot and whether the bot is
// known to this service at all.
type Resolver struct {
	store        Store
	defaultKey   string
	defaultToken string
	precedence   string
}

// NewResolver builds a Resolver from the configured default key, default bot
// token and precedence rule.
func NewResolver(store Store, gemini config.GeminiConfig, telegram config.TelegramConfig) *Resolver {
	precedence := telegram.CredentialPrecedence
	if precedence == "" {
		precedence = config.PrecedenceRegistration
	}
	return &Resolver{
		store:        store,
		defaultKey:   gemini.APIKey,
		defaultToken: telegram.Token,
		precedence:   precedence,
	}
}

// Resolve returns the credential for botToken. known is false when the token
// is neither registered nor the configured default bot; callers must not
// serve unknown bots.
func (r *Resolver) Resolve(ctx context.Context, botToken string) (credential string, known bool, err error) {
	if botToken == "" {
		return "", false, nil
	}

	reg, err := r.store.Get(ctx, botToken)
	switch {
	case errors.Is(err, ErrNotFound):
		if r.defaultToken != "" && botToken == r.defaultToken {
			return r.defaultKey, true, nil
		}
		return "", false, nil
	case err != nil:
		return "", false, err
	}

	return r.pick(reg.APIKey), true, nil
}

// DefaultKey is the server-wide credential, used by the web channel when the
// request carries none.
func (r *Resolver) DefaultKey() string {
	return r.defaultKey
}

func (r *Resolver) pick(registered string) string {
	if r.precedence == config.PrecedenceConfig {
		if r.defaultKey != "" {
			return r.defaultKey
		}
		return registered
	}
	if registered != "" {
		return registered
	}
	return r.defaultKey
}
