package cmd

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/cogman/internal/bot"
)

// formatBotError turns a bot start failure into a message for the terminal.
// Raw gateway payloads are only logged.
func formatBotError(err error) string {
	if errors.Is(err, bot.ErrNoToken) {
		return "The stored token is empty. Run: cogman token set"
	}
	if errors.Is(err, bot.ErrAlreadyRunning) {
		return "The bot is already running."
	}

	lower := strings.ToLower(err.Error())

	// 1. Privileged intents. Checked first: close code 4014 contains "401".
	if containsAny(lower, "4014", "disallowed intent") {
		return "⚠️ Message Content intent is disabled. Enable it under Bot > Privileged Gateway Intents."
	}

	// 2. Bad token
	if containsAny(lower, "close 4004", "authentication failed", "401 unauthorized", "http 401") {
		return "⚠️ Discord rejected the token. Check it in the developer portal and run: cogman token set"
	}

	// 3. Rate limit
	if containsAny(lower, "429", "rate limit", "too many requests") {
		return "⚠️ Discord rate limit reached. Please try again later."
	}

	// 4. Network
	if containsAny(lower, "no such host", "connection refused", "network is unreachable", "timeout", "timed out") {
		return "⚠️ Could not reach Discord. Check your network connection."
	}

	slog.Warn("unclassified bot error", "error", err)
	return "⚠️ The bot failed to start. Re-run with --verbose for details."
}

// containsAny returns true if s contains any of the given substrings.
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
