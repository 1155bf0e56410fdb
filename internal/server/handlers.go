package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/nanorelay/internal/credential"
	"github.com/edgard/nanorelay/internal/logger"
	"github.com/edgard/nanorelay/internal/relay"
	"github.com/edgard/nanorelay/internal/telegram"
)

// isoMillis matches the timestamp format browsers produce for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// previewRunes bounds the message text written to receipt logs.
const previewRunes = 50

type chatRequest struct {
	Message string `json:"message"`
	APIKey  string `json:"apiKey"`
}

type chatResponse struct {
	Response  string `json:"response"`
	ParseMode string `json:"parseMode,omitempty"`
}

// handleChat answers the web channel. The reply is always produced by the
// relay, so provider failures surface as the fixed apology with status 200.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, r, http.StatusBadRequest, "Message is required")
		return
	}

	cred := req.APIKey
	if cred == "" {
		cred = s.resolver.DefaultKey()
	}

	reply := s.relay.Handle(r.Context(), relay.InboundMessage{
		Channel: relay.ChannelWeb,
		Text:    req.Message,
	}, cred)

	respondJSON(w, r, http.StatusOK, chatResponse{Response: reply.Text, ParseMode: reply.ParseMode})
}

type setupRequest struct {
	BotToken   string `json:"botToken"`
	WebhookURL string `json:"webhookUrl"`
	APIKey     string `json:"apiKey"`
}

type setupResponse struct {
	Success    bool   `json:"success"`
	WebhookURL string `json:"webhookUrl"`
	Message    string `json:"message"`
}

// handleSetup registers a bot's webhook with Telegram and, once Telegram
// accepts it, records the registration.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BotToken == "" {
		respondError(w, r, http.StatusBadRequest, "Bot token is required")
		return
	}

	webhookURL := req.WebhookURL
	if webhookURL == "" {
		webhookURL = DefaultWebhookURL(s.cfg.Server.PublicURL, req.BotToken)
	}
	if webhookURL == "" {
		respondError(w, r, http.StatusBadRequest, "Webhook URL is required when no public URL is configured")
		return
	}

	ctx := r.Context()
	log := s.logger.With("request_id", logger.RequestID(ctx), "bot", logger.MaskToken(req.BotToken))

	if err := s.telegram.SetWebhook(ctx, req.BotToken, webhookURL, s.cfg.Telegram.WebhookSecret); err != nil {
		if telegram.IsRefusal(err) {
			log.WarnContext(ctx, "Telegram refused webhook registration", "error", err)
			respondError(w, r, http.StatusBadRequest, telegram.Description(err))
			return
		}
		log.ErrorContext(ctx, "Failed to set webhook", "error", err)
		respondError(w, r, http.StatusInternalServerError, "Failed to setup Telegram bot")
		return
	}

	now := s.now().UTC()
	reg := &credential.Registration{
		Token:      req.BotToken,
		WebhookURL: webhookURL,
		APIKey:     req.APIKey,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.store.Save(ctx, reg); err != nil {
		log.ErrorContext(ctx, "Failed to store bot registration", "error", err)
		respondError(w, r, http.StatusInternalServerError, "Failed to setup Telegram bot")
		return
	}

	log.InfoContext(ctx, "Bot registered", "webhook_url", logger.RedactURL(webhookURL), "has_api_key", req.APIKey != "")
	respondJSON(w, r, http.StatusOK, setupResponse{
		Success:    true,
		WebhookURL: webhookURL,
		Message:    "Telegram bot webhook set successfully",
	})
}

// DefaultWebhookURL is the webhook address for token under publicURL, or
// empty when publicURL is empty.
func DefaultWebhookURL(publicURL, token string) string {
	if publicURL == "" {
		return ""
	}
	return strings.TrimRight(publicURL, "/") + "/webhook/" + token
}

type webhookResponse struct {
	OK bool `json:"ok"`
}

// handleWebhook processes one Telegram update for the bot in the path. Once
// the update is accepted the answer is always ok, even if the reply could not
// be delivered, so Telegram does not redeliver it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "botToken")
	log := s.logger.With("request_id", logger.RequestID(ctx), "bot", logger.MaskToken(token))

	cred, known, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up bot registration", "error", err)
		respondError(w, r, http.StatusInternalServerError, "Failed to process update")
		return
	}
	if !known {
		respondError(w, r, http.StatusNotFound, "Bot not found")
		return
	}

	if secret := s.cfg.Telegram.WebhookSecret; secret != "" {
		got := r.Header.Get(telegram.SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log.WarnContext(ctx, "Webhook secret mismatch")
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
	}

	var update models.Update
	if err := decodeJSON(w, r, &update); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid update")
		return
	}

	if err := s.store.Touch(ctx, token, s.now().UTC()); err != nil {
		log.WarnContext(ctx, "Failed to record bot activity", "error", err)
	}

	msg := update.Message
	if msg == nil || msg.Text == "" {
		log.DebugContext(ctx, "Ignoring update without message text", "update_id", update.ID)
		respondJSON(w, r, http.StatusOK, webhookResponse{OK: true})
		return
	}

	in := relay.InboundMessage{
		Channel: relay.ChannelTelegram,
		ChatID:  msg.Chat.ID,
		Text:    msg.Text,
	}
	if msg.From != nil {
		in.SenderID = msg.From.ID
		in.SenderName = msg.From.FirstName
	}
	log.InfoContext(ctx, "Received Telegram message",
		"chat_id", in.ChatID,
		"sender_id", in.SenderID,
		"text_preview", preview(in.Text))

	reply := s.relay.Handle(ctx, in, cred)

	if err := s.telegram.SendMessage(ctx, token, in.ChatID, reply.Text, reply.ParseMode); err != nil {
		log.ErrorContext(ctx, "Failed to deliver reply", "chat_id", in.ChatID, "outcome", reply.Outcome, "error", err)
	}

	respondJSON(w, r, http.StatusOK, webhookResponse{OK: true})
}

// handleBotInfo proxies getMe for the bot in the path.
func (s *Server) handleBotInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "botToken")

	me, err := s.telegram.GetMe(ctx, token)
	if err != nil {
		if telegram.IsRefusal(err) {
			respondError(w, r, http.StatusBadRequest, telegram.Description(err))
			return
		}
		s.logger.ErrorContext(ctx, "Failed to get bot info", "bot", logger.MaskToken(token), "error", err)
		respondError(w, r, http.StatusInternalServerError, "Failed to get bot info")
		return
	}
	respondJSON(w, r, http.StatusOK, me)
}

type healthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	ActiveBots int    `json:"activeBots"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ts := s.now().UTC().Format(isoMillis)
	n, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Health check failed to count registrations", "error", err)
		respondJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Timestamp: ts})
		return
	}
	respondJSON(w, r, http.StatusOK, healthResponse{Status: "healthy", Timestamp: ts, ActiveBots: n})
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}
