// Package relay turns one inbound message into exactly one reply, either from
// a fixed command template or from the AI provider.
package relay

import (
	"context"
	"log/slog"

	"github.com/edgard/nanorelay/internal/command"
	"github.com/edgard/nanorelay/internal/gemini"
)

// Fixed replies for states where no useful answer can be produced.
const (
	NotConfiguredText = "Sorry, the AI service is not configured. Please contact the administrator."
	ApologyText       = "Sorry, I encountered an error processing your message. Please try again later."
)

// Channel identifies where an inbound message came from.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelWeb      Channel = "web"
)

// InboundMessage is one unit of user text awaiting a reply.
type InboundMessage struct {
	Channel    Channel
	ChatID     int64
	SenderID   int64
	SenderName string
	Text       string
}

// Outcome records which path produced a reply.
type Outcome int

const (
	OutcomeCommand Outcome = iota + 1
	OutcomeCompletion
	OutcomeNotConfigured
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommand:
		return "command"
	case OutcomeCompletion:
		return "completion"
	case OutcomeNotConfigured:
		return "not_configured"
	case OutcomeFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Reply is the text to send back through the originating channel.
type Reply struct {
	Text string
	// ParseMode is the Telegram parse mode for Text, empty for plain text.
	ParseMode string
	Outcome   Outcome
}

// Relay is stateless and safe for concurrent use.
type Relay struct {
	completer gemini.Completer
	logger    *slog.Logger
}

// New creates a relay that forwards non-command text to completer.
func New(completer gemini.Completer, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		completer: completer,
		logger:    logger.With("component", "relay"),
	}
}

// Handle produces the reply for msg. Commands are answered without a
// credential; everything else needs one. Provider failures are logged and
// replaced by ApologyText so that provider error text never reaches users.
func (r *Relay) Handle(ctx context.Context, msg InboundMessage, credential string) Reply {
	log := r.logger.With("channel", msg.Channel, "chat_id", msg.ChatID, "sender_id", msg.SenderID)

	if cmd, ok := command.Route(msg.Text, msg.SenderName); ok {
		log.DebugContext(ctx, "Answering command", "command", cmd.Kind)
		return Reply{Text: cmd.Text, ParseMode: cmd.ParseMode, Outcome: OutcomeCommand}
	}

	if credential == "" {
		log.WarnContext(ctx, "AI credential not configured", "kind", gemini.KindMissingCredential)
		return Reply{Text: NotConfiguredText, Outcome: OutcomeNotConfigured}
	}

	text, err := r.completer.Complete(ctx, msg.Text, credential)
	if err != nil {
		log.ErrorContext(ctx, "AI completion failed",
			"kind", gemini.Kind(err),
			"status_code", gemini.StatusCode(err),
			"error", err)
		return Reply{Text: ApologyText, Outcome: OutcomeFailed}
	}

	log.DebugContext(ctx, "AI completion succeeded", "reply_length", len(text))
	return Reply{Text: text, Outcome: OutcomeCompletion}
}
