package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/nanorelay/internal/command"
	"github.com/edgard/nanorelay/internal/config"
	"github.com/edgard/nanorelay/internal/gemini"
	"github.com/edgard/nanorelay/internal/logger"
)

type fakeCompleter struct {
	mu    sync.Mutex
	calls []string
	keys  []string
	text  string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, credential string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt)
	f.keys = append(f.keys, credential)
	return f.text, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestHandlePassesProviderTextThrough(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"hello", "what is 1/2?", "  spaced  ", "ünïcode ✨"} {
		fc := &fakeCompleter{text: "reply to " + text + " with *markdown*"}
		r := New(fc, logger.Discard())

		got := r.Handle(context.Background(), InboundMessage{Channel: ChannelWeb, Text: text}, "key")

		assert.Equal(t, "reply to "+text+" with *markdown*", got.Text)
		assert.Equal(t, OutcomeCompletion, got.Outcome)
		assert.Empty(t, got.ParseMode)
		assert.Equal(t, []string{text}, fc.calls)
		assert.Equal(t, []string{"key"}, fc.keys)
	}
}

func TestHandleCommandsBypassProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{text: "/start", want: command.Welcome("Ada")},
		{text: "/Start", want: command.Welcome("Ada")},
		{text: "/HELP", want: command.HelpText},
		{text: "/about", want: command.AboutText},
		{text: "/xyz", want: command.UnknownText},
	}

	for _, tt := range tests {
		for _, credential := range []string{"", "key"} {
			t.Run(fmt.Sprintf("%s credential=%q", tt.text, credential), func(t *testing.T) {
				t.Parallel()

				fc := &fakeCompleter{text: "should not be used"}
				r := New(fc, logger.Discard())

				got := r.Handle(context.Background(), InboundMessage{
					Channel:    ChannelTelegram,
					ChatID:     42,
					SenderName: "Ada",
					Text:       tt.text,
				}, credential)

				assert.Equal(t, tt.want, got.Text)
				assert.Equal(t, OutcomeCommand, got.Outcome)
				assert.Zero(t, fc.callCount())
			})
		}
	}
}

func TestHandleScenarios(t *testing.T) {
	t.Parallel()

	r := New(&fakeCompleter{text: "unused"}, logger.Discard())

	start := r.Handle(context.Background(), InboundMessage{Text: "/start", SenderName: "Ada"}, "")
	assert.True(t, strings.HasPrefix(start.Text, "🤖 *Welcome to Nano Banana AI!*\n\nHello Ada!"), start.Text)
	assert.Equal(t, command.ParseModeMarkdown, start.ParseMode)

	unknown := r.Handle(context.Background(), InboundMessage{Text: "/xyz"}, "")
	assert.Equal(t, "Unknown command. Type /help to see available commands.", unknown.Text)

	notConfigured := r.Handle(context.Background(), InboundMessage{Text: "hello"}, "")
	assert.Equal(t, "Sorry, the AI service is not configured. Please contact the administrator.", notConfigured.Text)
	assert.Equal(t, OutcomeNotConfigured, notConfigured.Outcome)
}

func TestHandleMissingCredentialSkipsProvider(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{text: "unused"}
	r := New(fc, logger.Discard())

	got := r.Handle(context.Background(), InboundMessage{Text: "hello"}, "")
	assert.Equal(t, NotConfiguredText, got.Text)
	assert.Zero(t, fc.callCount())
}

func TestHandleProviderErrorsBecomeApology(t *testing.T) {
	t.Parallel()

	secret := "internal stack trace: token=abc"
	errs := []error{
		errors.New(secret),
		fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
		&gemini.HTTPError{StatusCode: 500, Status: "INTERNAL", Message: secret},
		fmt.Errorf("%w: %s", gemini.ErrMalformedResponse, secret),
	}

	for _, err := range errs {
		r := New(&fakeCompleter{err: err}, logger.Discard())
		got := r.Handle(context.Background(), InboundMessage{Text: "hello"}, "key")

		assert.Equal(t, ApologyText, got.Text)
		assert.Equal(t, OutcomeFailed, got.Outcome)
		assert.NotContains(t, got.Text, secret)
	}
}

// TestHandleWithGeminiClient exercises the relay against a fake provider over HTTP.
func TestHandleWithGeminiClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"role":"model","parts":[{"text":"Bananas are berries."}]}}]}`,
			want:   "Bananas are berries.",
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":500,"message":"quota backend leaked detail","status":"INTERNAL"}}`,
			want:   ApologyText,
		},
		{
			name:   "ok without candidates",
			status: http.StatusOK,
			body:   `{}`,
			want:   ApologyText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			t.Cleanup(srv.Close)

			cfg := config.Defaults().Gemini
			cfg.BaseURL = srv.URL
			client := gemini.NewClient(cfg, logger.Discard(), gemini.WithHTTPClient(srv.Client()))

			got := New(client, logger.Discard()).Handle(context.Background(), InboundMessage{Text: "tell me about bananas"}, "key")
			require.Equal(t, tt.want, got.Text)
			assert.NotContains(t, got.Text, "leaked detail")
		})
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "command", OutcomeCommand.String())
	assert.Equal(t, "completion", OutcomeCompletion.String())
	assert.Equal(t, "not_configured", OutcomeNotConfigured.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "invalid", Outcome(0).String())
}
