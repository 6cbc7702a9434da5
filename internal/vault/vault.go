// Package vault keeps the bot token sealed in a TokenStore and opens it
// with the passphrase supplied for the session.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/cogman/internal/crypto"
	"github.com/nextlevelbuilder/cogman/internal/store"
)

// ErrEmptyToken is returned when saving a blank token.
var ErrEmptyToken = errors.New("token cannot be empty")

// Vault seals and opens the bot token. Keys are derived on every call and
// never held between calls.
type Vault struct {
	store store.TokenStore
}

func New(s store.TokenStore) *Vault {
	return &Vault{store: s}
}

// Location reports where the sealed token lives.
func (v *Vault) Location() string { return v.store.Location() }

// Save encrypts token under passphrase and replaces any stored blob.
func (v *Vault) Save(ctx context.Context, token, passphrase string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	blob, err := crypto.Encrypt(token, passphrase)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	if err := v.store.Save(ctx, blob); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	slog.Info("vault: token saved", "location", v.store.Location())
	return nil
}

// Load reads the stored blob and decrypts it with passphrase.
func (v *Vault) Load(ctx context.Context, passphrase string) (string, error) {
	blob, err := v.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}

	token, err := crypto.Decrypt(blob, passphrase)
	if err != nil {
		return "", fmt.Errorf("open token: %w", err)
	}
	return token, nil
}

// Check verifies passphrase opens the stored token without handing it out.
func (v *Vault) Check(ctx context.Context, passphrase string) error {
	_, err := v.Load(ctx, passphrase)
	return err
}

// Present reports whether a sealed token is stored.
func (v *Vault) Present(ctx context.Context) (bool, error) {
	return v.store.Exists(ctx)
}

// Clear removes the stored token.
func (v *Vault) Clear(ctx context.Context) error {
	if err := v.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	slog.Info("vault: token cleared", "location", v.store.Location())
	return nil
}

// UserMessage turns a vault error into text safe to show the user.
// Decryption failures collapse into one message so the output never hints
// whether the passphrase or the file was at fault.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, crypto.ErrDecrypt), errors.Is(err, crypto.ErrMalformed):
		return "Invalid passphrase or corrupted token file."
	case errors.Is(err, store.ErrNotFound):
		return "No token saved yet. Run: cogman token set"
	case errors.Is(err, ErrEmptyToken):
		return "Token cannot be empty."
	}

	slog.Warn("vault: unclassified error", "error", err)
	return "Could not access the token store. Re-run with --verbose for details."
}
