package logger

import "strings"

// MaskToken shortens a bot token to a loggable prefix.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

// redactPath masks bot tokens that appear as the last segment of token-bearing routes.
func redactPath(path string) string {
	for _, prefix := range []string{"/webhook/", "/api/telegram/info/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" {
			return prefix + MaskToken(rest)
		}
	}
	return path
}

// RedactURL masks a bot token in the path of a webhook URL.
func RedactURL(rawURL string) string {
	i := strings.Index(rawURL, "/webhook/")
	if i < 0 {
		return rawURL
	}
	return rawURL[:i] + redactPath(rawURL[i:])
}
