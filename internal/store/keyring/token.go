// Package keyring stores the sealed token in the OS credential store
// (macOS Keychain, Secret Service, Windows Credential Manager).
package keyring

import (
	"context"
	"errors"
	"fmt"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/nextlevelbuilder/cogman/internal/crypto"
	"github.com/nextlevelbuilder/cogman/internal/store"
)

const (
	DefaultService = "cogman"
	DefaultUser    = "bot-token"
)

// KeyringTokenStore implements store.TokenStore on top of go-keyring.
// Keyrings hold strings, so the blob is kept in the "aes-gcm:" text form.
type KeyringTokenStore struct {
	service string
	user    string
}

var _ store.TokenStore = (*KeyringTokenStore)(nil)

func NewKeyringTokenStore(service, user string) *KeyringTokenStore {
	if service == "" {
		service = DefaultService
	}
	if user == "" {
		user = DefaultUser
	}
	return &KeyringTokenStore{service: service, user: user}
}

func (s *KeyringTokenStore) Location() string {
	return fmt.Sprintf("keyring:%s/%s", s.service, s.user)
}

func (s *KeyringTokenStore) Load(_ context.Context) ([]byte, error) {
	value, err := gokeyring.Get(s.service, s.user)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get: %w", err)
	}
	return crypto.DecodeString(value)
}

func (s *KeyringTokenStore) Save(_ context.Context, blob []byte) error {
	if err := store.ValidateBlobSize(len(blob)); err != nil {
		return err
	}
	if err := gokeyring.Set(s.service, s.user, crypto.EncodeString(blob)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (s *KeyringTokenStore) Delete(_ context.Context) error {
	err := gokeyring.Delete(s.service, s.user)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return nil
	}
	return err
}

func (s *KeyringTokenStore) Exists(_ context.Context) (bool, error) {
	_, err := gokeyring.Get(s.service, s.user)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gokeyring.ErrNotFound) {
		return false, nil
	}
	return false, err
}
