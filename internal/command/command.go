// Package command recognizes bot commands in inbound text and renders their
// fixed replies.
package command

import (
	"fmt"
	"strings"
)

// Kind identifies which fixed reply a command produced.
type Kind int

const (
	KindWelcome Kind = iota + 1
	KindHelp
	KindAbout
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindWelcome:
		return "welcome"
	case KindHelp:
		return "help"
	case KindAbout:
		return "about"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// ParseModeMarkdown is the Telegram parse mode used by the formatted templates.
const ParseModeMarkdown = "Markdown"

// UnknownText is the reply to any unrecognized command.
const UnknownText = "Unknown command. Type /help to see available commands."

// defaultName replaces an empty sender display name in the welcome message.
const defaultName = "there"

// WelcomeTemplate is formatted with the sender's display name.
const WelcomeTemplate = `🤖 *Welcome to Nano Banana AI!*

Hello %s! I'm your AI assistant powered by Google's Gemini AI.

*Available commands:*
/start - Show this welcome message
/help - Get help information
/about - Learn more about me

Just send me any message and I'll do my best to help you!`

// HelpText is the reply to /help.
const HelpText = `🆘 *Help - Nano Banana AI*

I can help you with:
• Answering questions
• Explaining concepts
• Writing and editing text
• Solving problems
• Creative tasks
• And much more!

Just type your question or request, and I'll respond as quickly as possible.

*Tips:*
• Be specific in your questions
• You can ask follow-up questions
• I can handle multiple languages`

// AboutText is the reply to /about.
const AboutText = `ℹ️ *About Nano Banana AI*

I'm an AI assistant powered by Google's Gemini AI model. I was created to help users with various tasks through natural conversation.

*Features:*
• Natural language understanding
• Multi-topic conversations
• Real-time responses
• Available 24/7

*Version:* 1.0
*Powered by:* Google Gemini AI
*Created by:* Nano Banana AI Team`

// Reply is the rendered answer to a command.
type Reply struct {
	Kind      Kind
	Text      string
	ParseMode string
}

// IsCommand reports whether text would be handled by Route.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// Route returns the reply for a command. ok is false when text is not a
// command and should be forwarded to the AI provider.
//
// Only the first word is inspected, so "/start payload" and the group form
// "/start@SomeBot" both match /start. Matching ignores letter case.
func Route(text, senderName string) (reply Reply, ok bool) {
	if !IsCommand(text) {
		return Reply{}, false
	}

	switch name(text) {
	case "/start":
		return Reply{
			Kind:      KindWelcome,
			Text:      Welcome(senderName),
			ParseMode: ParseModeMarkdown,
		}, true
	case "/help":
		return Reply{Kind: KindHelp, Text: HelpText, ParseMode: ParseModeMarkdown}, true
	case "/about":
		return Reply{Kind: KindAbout, Text: AboutText, ParseMode: ParseModeMarkdown}, true
	default:
		return Reply{Kind: KindUnknown, Text: UnknownText}, true
	}
}

// Welcome renders the welcome message for senderName.
func Welcome(senderName string) string {
	senderName = strings.TrimSpace(senderName)
	if senderName == "" {
		senderName = defaultName
	}
	return fmt.Sprintf(WelcomeTemplate, escapeMarkdown(senderName))
}

// name extracts the lower-cased command word without any @botname suffix.
func name(text string) string {
	word := text
	if i := strings.IndexFunc(text, isSpace); i >= 0 {
		word = text[:i]
	}
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	return strings.ToLower(word)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

var markdownReplacer = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// escapeMarkdown escapes Telegram legacy Markdown entities so that user
// supplied names cannot break message parsing.
func escapeMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}
