package store

const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
)

// StoreConfig configures the token store layer.
type StoreConfig struct {
	// Backend: "file" (default) or "keyring".
	Backend string

	// TokenFile is the sealed token path for the file backend (e.g. ~/.cogman/token.enc).
	TokenFile string

	// KeyringService and KeyringUser address the keyring entry.
	KeyringService string
	KeyringUser    string
}

// UsesKeyring returns true if the OS keyring backend is selected.
func (c StoreConfig) UsesKeyring() bool {
	return c.Backend == BackendKeyring
}
