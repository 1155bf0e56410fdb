package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/nanorelay/internal/logger"
)

// MaxMessageLength is Telegram's limit for a single text message.
const MaxMessageLength = 4096

// SendMessage delivers text to chatID as bot token. Text longer than
// MaxMessageLength is sent as several messages. If Telegram rejects the
// formatting for parseMode, the chunk is sent again as plain text.
func (c *Client) SendMessage(ctx context.Context, token string, chatID int64, text, parseMode string) error {
	b, err := c.newBot(token)
	if err != nil {
		return err
	}
	log := c.log.With("bot", logger.MaskToken(token), "chat_id", chatID)

	for i, chunk := range SplitMessage(text, MaxMessageLength) {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      chunk,
			ParseMode: models.ParseMode(parseMode),
		}
		_, err := b.SendMessage(ctx, params)
		if err != nil && parseMode != "" && errors.Is(err, bot.ErrorBadRequest) {
			log.WarnContext(ctx, "Formatted message rejected, resending as plain text", "chunk", i, "error", err)
			params.ParseMode = ""
			_, err = b.SendMessage(ctx, params)
		}
		if err != nil {
			log.ErrorContext(ctx, "Failed to send Telegram message", "chunk", i, "error", err)
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
	}

	log.DebugContext(ctx, "Sent Telegram message", "length", len(text))
	return nil
}

// SetWebhook registers webhookURL for bot token. secret, when non-empty, is
// echoed by Telegram in SecretTokenHeader on every delivery.
func (c *Client) SetWebhook(ctx context.Context, token, webhookURL, secret string) error {
	b, err := c.newBot(token)
	if err != nil {
		return err
	}

	ok, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:         webhookURL,
		SecretToken: secret,
	})
	if err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to set webhook: %w", bot.ErrorBadRequest)
	}

	c.log.InfoContext(ctx, "Webhook registered", "bot", logger.MaskToken(token))
	return nil
}

// GetMe returns the bot account behind token.
func (c *Client) GetMe(ctx context.Context, token string) (*models.User, error) {
	b, err := c.newBot(token)
	if err != nil {
		return nil, err
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	return me, nil
}

// SplitMessage cuts text into chunks of at most limit UTF-16 code units,
// the unit Telegram measures message length in, preferring to break after a
// newline. Empty text yields a single empty chunk.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for utf16Len(text) > limit {
		cut := utf16Offset(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			cut = nl + 1
		}
		if cut == 0 {
			// limit is smaller than the first rune; emit it alone.
			_, cut = utf8.DecodeRuneInString(text)
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// utf16Offset returns the byte index just past the longest prefix of s that
// fits in n UTF-16 code units.
func utf16Offset(s string, n int) int {
	units := 0
	for i, r := range s {
		u := runeUnits(r)
		if units+u > n {
			return i
		}
		units += u
	}
	return len(s)
}

// runeUnits counts invalid runes as one unit, the size of their U+FFFD replacement.
func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
