package bot

import (
	"regexp"
	"strings"
)

// Credential patterns scrubbed from log lines and replies. A cog that echoes
// its environment must not leak the token into a channel.
var credentialPatterns = []*regexp.Regexp{
	// Discord bot tokens: base64 user ID, timestamp, HMAC.
	regexp.MustCompile(`[MNO][A-Za-z0-9_-]{23,27}\.[A-Za-z0-9_-]{6}\.[A-Za-z0-9_-]{27,38}`),
	// Discord webhook URLs carry their own secret.
	regexp.MustCompile(`https://(?:canary\.|ptb\.)?discord(?:app)?\.com/api/webhooks/\d+/[A-Za-z0-9_-]+`),
	// Generic key=value patterns (case-insensitive)
	regexp.MustCompile(`(?i)(token|secret|password|passphrase|authorization)\s*[:=]\s*["']?\S{8,}["']?`),
}

const redactedPlaceholder = "[REDACTED]"

// ScrubCredentials replaces known credential patterns in text with [REDACTED].
// Any exact occurrence of one of the extra secrets is replaced first.
func ScrubCredentials(text string, secrets ...string) string {
	for _, s := range secrets {
		if len(s) >= 8 {
			text = strings.ReplaceAll(text, s, redactedPlaceholder)
		}
	}
	for _, pat := range credentialPatterns {
		text = pat.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
