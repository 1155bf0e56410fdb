package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/nanorelay/internal/logger"
	"github.com/edgard/nanorelay/internal/telegram/telegramtest"
)

const testToken = "123456:TEST-token"

func newTestClient(t *testing.T) (*Client, *telegramtest.Server) {
	t.Helper()
	srv := telegramtest.NewServer(t)
	return NewClient(srv.URL, logger.Discard(), WithHTTPClient(srv.Client())), srv
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	require.NoError(t, c.SendMessage(context.Background(), testToken, 42, "*hi*", "Markdown"))

	calls := srv.Calls("sendMessage")
	require.Len(t, calls, 1)
	assert.Equal(t, testToken, calls[0].Token)
	assert.Equal(t, "42", calls[0].Form.Get("chat_id"))
	assert.Equal(t, "*hi*", calls[0].Form.Get("text"))
	assert.Equal(t, "Markdown", calls[0].Form.Get("parse_mode"))
}

func TestSendMessagePlainText(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	require.NoError(t, c.SendMessage(context.Background(), testToken, 7, "plain", ""))

	calls := srv.Calls("sendMessage")
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Form.Get("parse_mode"))
}

func TestSendMessageFallsBackToPlainText(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	srv.Respond("sendMessage", http.StatusBadRequest, telegramtest.BadRequest("Bad Request: can't parse entities"))

	require.NoError(t, c.SendMessage(context.Background(), testToken, 42, "*broken", "Markdown"))

	calls := srv.Calls("sendMessage")
	require.Len(t, calls, 2)
	assert.Equal(t, "Markdown", calls[0].Form.Get("parse_mode"))
	assert.Empty(t, calls[1].Form.Get("parse_mode"))
}

func TestSendMessageSplitsLongText(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	text := strings.Repeat("a", MaxMessageLength) + "\n" + "tail"
	require.NoError(t, c.SendMessage(context.Background(), testToken, 42, text, ""))

	calls := srv.Calls("sendMessage")
	require.Len(t, calls, 2)
	assert.Equal(t, strings.Repeat("a", MaxMessageLength), calls[0].Form.Get("text"))
	assert.Equal(t, "\ntail", calls[1].Form.Get("text"))
}

func TestSendMessageError(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	srv.Respond("sendMessage", http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)

	err := c.SendMessage(context.Background(), testToken, 42, "hi", "")
	require.Error(t, err)
	assert.True(t, IsRefusal(err))
}

func TestSendMessageEmptyToken(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	assert.ErrorIs(t, c.SendMessage(context.Background(), "", 42, "hi", ""), ErrEmptyToken)
}

func TestSetWebhook(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	require.NoError(t, c.SetWebhook(context.Background(), testToken, "https://relay.example.com/webhook/"+testToken, "s3cret"))

	calls := srv.Calls("setWebhook")
	require.Len(t, calls, 1)
	assert.Equal(t, "https://relay.example.com/webhook/"+testToken, calls[0].Form.Get("url"))
	assert.Equal(t, "s3cret", calls[0].Form.Get("secret_token"))
}

func TestSetWebhookRefused(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	srv.Respond("setWebhook", http.StatusBadRequest, telegramtest.BadRequest("Bad Request: bad webhook: HTTPS url must be provided for webhook"))

	err := c.SetWebhook(context.Background(), testToken, "http://insecure", "")
	require.Error(t, err)
	assert.True(t, IsRefusal(err))
	assert.Contains(t, err.Error(), "HTTPS url must be provided")
}

func TestGetMe(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	me, err := c.GetMe(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), me.ID)
	assert.Equal(t, "nano_banana_bot", me.Username)
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "short", text: "hello", limit: 10, want: []string{"hello"}},
		{name: "empty", text: "", limit: 10, want: []string{""}},
		{name: "hard cut", text: "abcdefgh", limit: 3, want: []string{"abc", "def", "gh"}},
		{name: "newline preferred", text: "ab\ncdef", limit: 4, want: []string{"ab\n", "cdef"}},
		{name: "multibyte runes", text: "ééééé", limit: 2, want: []string{"éé", "éé", "é"}},
		{name: "no limit", text: "abc", limit: 0, want: []string{"abc"}},
		{name: "emoji take two units", text: "😀😀😀", limit: 4, want: []string{"😀😀", "😀"}},
		{name: "emoji not split in half", text: "a😀b", limit: 2, want: []string{"a", "😀", "b"}},
		{name: "limit below one emoji", text: "😀😀", limit: 1, want: []string{"😀", "😀"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitMessage(tt.text, tt.limit))
		})
	}
}

func TestSplitMessageEmojiStaysUnderTelegramLimit(t *testing.T) {
	t.Parallel()

	chunks := SplitMessage(strings.Repeat("😀", 3000), MaxMessageLength)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("😀", 2048), chunks[0])
	assert.Equal(t, strings.Repeat("😀", 952), chunks[1])
	for _, c := range chunks {
		assert.LessOrEqual(t, len(utf16.Encode([]rune(c))), MaxMessageLength)
	}
}

func TestSendMessageSplitsEmojiText(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	require.NoError(t, c.SendMessage(context.Background(), testToken, 42, strings.Repeat("😀", 3000), ""))

	calls := srv.Calls("sendMessage")
	require.Len(t, calls, 2)
	assert.Equal(t, strings.Repeat("😀", 2048), calls[0].Form.Get("text"))
}

func TestDescription(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	srv.Respond("getMe", http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)

	_, err := c.GetMe(context.Background(), testToken)
	require.Error(t, err)
	assert.True(t, IsRefusal(err))
	assert.Equal(t, "Unauthorized", Description(err))

	assert.Equal(t, "", Description(nil))
	assert.Equal(t, "dial tcp: refused", Description(errors.New("dial tcp: refused")))
}
