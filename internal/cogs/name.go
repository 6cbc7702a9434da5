package cogs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// Ext is the cog source file extension.
	Ext = ".js"

	maxNameLen    = 64
	maxCommandLen = 32

	// fallbackCommand is used when nothing of the cog name is usable.
	fallbackCommand = "run"
)

var (
	validNameRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)
	validCommandRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)
	invalidChars   = regexp.MustCompile(`[^a-z0-9_]+`)
	edgeUnderscore = regexp.MustCompile(`^_+|_+$`)
)

var ErrEmptyName = errors.New("cog name cannot be empty")

// ValidateName checks a cog name: an identifier of at most 64 chars.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if !validNameRe.MatchString(name) {
		return fmt.Errorf("invalid cog name %q: use letters, digits and underscores, not starting with a digit", name)
	}
	return nil
}

// ValidateCommand checks a command name as registered by a cog.
func ValidateCommand(name string) error {
	if !validCommandRe.MatchString(name) {
		return fmt.Errorf("invalid command name %q: use lowercase letters, digits, '-' and '_' (max 32)", name)
	}
	return nil
}

// NormalizeName turns free text into a valid cog name:
//   - lowercased, spaces and punctuation collapsed to "_"
//   - leading/trailing underscores stripped
//   - a leading digit gets a "cog_" prefix
//   - truncated to 64 chars
//
// Returns "" if nothing usable is left.
func NormalizeName(input string) string {
	trimmed := strings.TrimSpace(strings.TrimSuffix(input, Ext))
	if validNameRe.MatchString(trimmed) {
		return trimmed
	}

	result := invalidChars.ReplaceAllString(strings.ToLower(trimmed), "_")
	result = edgeUnderscore.ReplaceAllString(result, "")
	if result == "" {
		return ""
	}
	if result[0] >= '0' && result[0] <= '9' {
		result = "cog_" + result
	}
	if len(result) > maxNameLen {
		result = strings.TrimRight(result[:maxNameLen], "_")
	}
	return result
}

// DefaultCommand derives a command name from a valid cog name: lowercased,
// edge underscores stripped, cut to 32 chars. A name with nothing left
// (such as "_") gets "run".
func DefaultCommand(cogName string) string {
	cmd := edgeUnderscore.ReplaceAllString(strings.ToLower(cogName), "")
	if len(cmd) > maxCommandLen {
		cmd = strings.TrimRight(cmd[:maxCommandLen], "_")
	}
	if cmd == "" {
		return fallbackCommand
	}
	return cmd
}
