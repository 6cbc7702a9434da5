// Package config loads cogman's JSON5 configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

const (
	// DefaultHome is the per-user state directory.
	DefaultHome = "~/.cogman"
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "COGMAN_CONFIG"
)

// Config is the root configuration.
type Config struct {
	CogsDir string       `json:"cogs_dir"`
	Token   TokenConfig  `json:"token"`
	Bot     BotConfig    `json:"bot"`
	Editor  EditorConfig `json:"editor"`
	Log     LogConfig    `json:"log"`
}

// TokenConfig selects where the sealed bot token is kept.
type TokenConfig struct {
	Backend        string `json:"backend"` // "file" or "keyring"
	File           string `json:"file"`
	KeyringService string `json:"keyring_service,omitempty"`
	KeyringUser    string `json:"keyring_user,omitempty"`
}

// BotConfig controls the running bot.
type BotConfig struct {
	Prefix           string `json:"prefix"`
	CommandTimeoutMs int    `json:"command_timeout_ms"`
	LogBuffer        int    `json:"log_buffer"`
	WatchCogs        bool   `json:"watch_cogs"`

	// Per-user command limit; 0 disables it.
	CommandsPerMinute int `json:"commands_per_minute"`
	CommandBurst      int `json:"command_burst"`
}

// EditorConfig controls cog display and editing.
type EditorConfig struct {
	Command string `json:"command,omitempty"` // falls back to $VISUAL, $EDITOR
	Style   string `json:"style"`             // chroma style name
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CogsDir: filepath.Join(DefaultHome, "cogs"),
		Token: TokenConfig{
			Backend: "file",
			File:    filepath.Join(DefaultHome, "token.enc"),
		},
		Bot: BotConfig{
			Prefix:           "!",
			CommandTimeoutMs: 5000,
			LogBuffer:        256,
			WatchCogs:        true,

			CommandsPerMinute: 20,
			CommandBurst:      5,
		},
		Editor: EditorConfig{Style: "monokai"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config at path on top of Default, then applies COGMAN_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as indented JSON (a JSON5 subset).
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

func (c *Config) applyEnv() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("COGMAN_COGS_DIR", &c.CogsDir)
	envStr("COGMAN_TOKEN_BACKEND", &c.Token.Backend)
	envStr("COGMAN_TOKEN_FILE", &c.Token.File)
	envStr("COGMAN_BOT_PREFIX", &c.Bot.Prefix)
	envStr("COGMAN_LOG_LEVEL", &c.Log.Level)
	envStr("COGMAN_LOG_FORMAT", &c.Log.Format)

	if v := os.Getenv("COGMAN_WATCH_COGS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Bot.WatchCogs = b
		}
	}
}

// Validate checks field values and fills zero numeric fields with defaults.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.CogsDir) == "" {
		errs = append(errs, errors.New("cogs_dir is required"))
	}
	switch c.Token.Backend {
	case "", "file":
		if c.Token.File == "" {
			errs = append(errs, errors.New("token.file is required for the file backend"))
		}
	case "keyring":
	default:
		errs = append(errs, fmt.Errorf("token.backend %q: must be \"file\" or \"keyring\"", c.Token.Backend))
	}
	if c.Bot.Prefix == "" || strings.ContainsAny(c.Bot.Prefix, " \t\n") {
		errs = append(errs, fmt.Errorf("bot.prefix %q: must be non-empty without whitespace", c.Bot.Prefix))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q: must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: must be text or json", c.Log.Format))
	}

	if c.Bot.CommandsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("bot.commands_per_minute %d: must not be negative", c.Bot.CommandsPerMinute))
	}

	if c.Bot.CommandTimeoutMs <= 0 {
		c.Bot.CommandTimeoutMs = Default().Bot.CommandTimeoutMs
	}
	if c.Bot.LogBuffer <= 0 {
		c.Bot.LogBuffer = Default().Bot.LogBuffer
	}

	return errors.Join(errs...)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultPath returns the config file path, honouring COGMAN_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return ExpandHome(p)
	}
	return ExpandHome(filepath.Join(DefaultHome, "config.json5"))
}
