package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/nanorelay/internal/config"
)

func TestResolver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, newRegistration("with-key", "bot-key", epoch)))
	require.NoError(t, store.Save(ctx, newRegistration("without-key", "", epoch)))

	tests := []struct {
		name         string
		precedence   string
		defaultKey   string
		defaultToken string
		token        string
		wantCred     string
		wantKnown    bool
	}{
		{name: "registration wins", precedence: config.PrecedenceRegistration, defaultKey: "cfg-key", token: "with-key", wantCred: "bot-key", wantKnown: true},
		{name: "registration falls back to config", precedence: config.PrecedenceRegistration, defaultKey: "cfg-key", token: "without-key", wantCred: "cfg-key", wantKnown: true},
		{name: "config wins", precedence: config.PrecedenceConfig, defaultKey: "cfg-key", token: "with-key", wantCred: "cfg-key", wantKnown: true},
		{name: "config falls back to registration", precedence: config.PrecedenceConfig, token: "with-key", wantCred: "bot-key", wantKnown: true},
		{name: "empty precedence means registration", defaultKey: "cfg-key", token: "with-key", wantCred: "bot-key", wantKnown: true},
		{name: "registered without any key", precedence: config.PrecedenceRegistration, token: "without-key", wantCred: "", wantKnown: true},
		{name: "default bot", defaultKey: "cfg-key", defaultToken: "default-bot", token: "default-bot", wantCred: "cfg-key", wantKnown: true},
		{name: "unknown bot", defaultKey: "cfg-key", defaultToken: "default-bot", token: "stranger", wantKnown: false},
		{name: "empty token", defaultKey: "cfg-key", token: "", wantKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewResolver(store,
				config.GeminiConfig{APIKey: tt.defaultKey},
				config.TelegramConfig{Token: tt.defaultToken, CredentialPrecedence: tt.precedence})

			cred, known, err := r.Resolve(ctx, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKnown, known)
			assert.Equal(t, tt.wantCred, cred)
		})
	}
}
