package file

import (
	"fmt"

	"github.com/nextlevelbuilder/cogman/internal/store"
	"github.com/nextlevelbuilder/cogman/internal/store/keyring"
)

// NewTokenStore creates the token store selected by cfg.Backend.
// The file backend is the default.
func NewTokenStore(cfg store.StoreConfig) (store.TokenStore, error) {
	switch cfg.Backend {
	case "", store.BackendFile:
		if cfg.TokenFile == "" {
			return nil, fmt.Errorf("file token store: no token file configured")
		}
		return NewFileTokenStore(cfg.TokenFile), nil
	case store.BackendKeyring:
		return keyring.NewKeyringTokenStore(cfg.KeyringService, cfg.KeyringUser), nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.Backend)
	}
}
