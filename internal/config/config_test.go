package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.Prefix != "!" {
		t.Errorf("prefix = %q, want !", cfg.Bot.Prefix)
	}
	if cfg.Token.Backend != "file" || !strings.HasSuffix(cfg.Token.File, "token.enc") {
		t.Errorf("token = %+v", cfg.Token)
	}
}

func TestLoad_JSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	os.WriteFile(path, []byte(`{
  // comments and trailing commas are fine
  cogs_dir: "/srv/cogs",
  bot: { prefix: "?", command_timeout_ms: 250, },
  log: { level: "debug" },
}`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CogsDir != "/srv/cogs" {
		t.Errorf("cogs_dir = %q", cfg.CogsDir)
	}
	if cfg.Bot.Prefix != "?" || cfg.Bot.CommandTimeoutMs != 250 {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	// Unset fields keep defaults.
	if cfg.Bot.LogBuffer != 256 || !cfg.Bot.WatchCogs {
		t.Errorf("bot defaults lost: %+v", cfg.Bot)
	}
	if cfg.Editor.Style != "monokai" {
		t.Errorf("editor.style = %q", cfg.Editor.Style)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COGMAN_COGS_DIR", "/env/cogs")
	t.Setenv("COGMAN_BOT_PREFIX", "$")
	t.Setenv("COGMAN_TOKEN_BACKEND", "keyring")
	t.Setenv("COGMAN_WATCH_COGS", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CogsDir != "/env/cogs" || cfg.Bot.Prefix != "$" || cfg.Token.Backend != "keyring" || cfg.Bot.WatchCogs {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `{ bot: `},
		{"bad_backend", `{ token: { backend: "s3" } }`},
		{"space_prefix", `{ bot: { prefix: "! " } }`},
		{"bad_level", `{ log: { level: "loud" } }`},
		{"bad_format", `{ log: { format: "xml" } }`},
		{"empty_cogs_dir", `{ cogs_dir: "" }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json5")
			os.WriteFile(path, []byte(tt.content), 0600)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidate_FillsNumericDefaults(t *testing.T) {
	cfg := Default()
	cfg.Bot.CommandTimeoutMs = 0
	cfg.Bot.LogBuffer = -1
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Bot.CommandTimeoutMs != 5000 || cfg.Bot.LogBuffer != 256 {
		t.Errorf("bot = %+v", cfg.Bot)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json5")
	cfg := Default()
	cfg.Bot.Prefix = ">>"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Bot.Prefix != ">>" {
		t.Errorf("prefix = %q", got.Bot.Prefix)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/.cogman/cogs", filepath.Join(home, ".cogman/cogs")},
		{"/abs/path", "/abs/path"},
		{"rel/~/path", "rel/~/path"},
		{"~other/path", "~other/path"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/cogman.json5")
	if got := DefaultPath(); got != "/etc/cogman.json5" {
		t.Errorf("DefaultPath = %q", got)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	os.WriteFile(path, []byte(`{ bot: { prefix: "!" } }`), 0600)

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	w.debounce = 20 * time.Millisecond

	got := make(chan string, 4)
	w.OnChange(func(cfg *Config) { got <- cfg.Bot.Prefix })

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	os.WriteFile(path, []byte(`{ bot: { prefix: "?" } }`), 0600)

	select {
	case p := <-got:
		if p != "?" {
			t.Errorf("reloaded prefix = %q, want ?", p)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload within 3s")
	}
}
