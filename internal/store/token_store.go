package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no token has been saved yet.
var ErrNotFound = errors.New("token not found")

// TokenStore persists one sealed token blob. Reads and writes are whole-blob;
// a Save replaces whatever was there before.
type TokenStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Delete(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	// Location describes where the blob lives, for display.
	Location() string
}
