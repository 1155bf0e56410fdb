// Package telegram wraps the Telegram Bot API calls nanorelay makes on behalf
// of registered bots: sending replies, registering webhooks and reading bot info.
package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
)

// ErrEmptyToken is returned when a bot token is required but missing.
var ErrEmptyToken = errors.New("telegram bot token cannot be empty")

// SecretTokenHeader carries the webhook secret configured with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Client performs Bot API calls for any bot token. It keeps no per-bot state.
type Client struct {
	serverURL  string
	httpClient *http.Client
	log        *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for Bot API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Bot API client for the server at apiURL.
func NewClient(apiURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		serverURL: apiURL,
		log:       logger.With("component", "telegram_client"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// newBot creates a go-telegram bot instance for token without contacting Telegram.
func (c *Client) newBot(token string) (*bot.Bot, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if c.serverURL != "" {
		opts = append(opts, bot.WithServerURL(c.serverURL))
	}
	if c.httpClient != nil {
		opts = append(opts, bot.WithHTTPClient(time.Minute, c.httpClient))
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return b, nil
}

// IsRefusal reports whether err is Telegram answering ok=false for a request,
// as opposed to a transport failure.
func IsRefusal(err error) bool {
	for _, r := range refusals {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

var refusals = []error{bot.ErrorBadRequest, bot.ErrorUnauthorized, bot.ErrorForbidden, bot.ErrorNotFound}

// Description extracts Telegram's description from a refusal, such as
// "Bad Request: chat not found". Other errors are returned as text.
func Description(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, r := range refusals {
		if !errors.Is(err, r) {
			continue
		}
		if _, desc, ok := strings.Cut(msg, r.Error()+", "); ok && desc != "" {
			return desc
		}
	}
	return msg
}
