package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/nextlevelbuilder/cogman/internal/cogs"
	"github.com/nextlevelbuilder/cogman/internal/config"
	"github.com/nextlevelbuilder/cogman/internal/crypto"
	"github.com/nextlevelbuilder/cogman/internal/store"
	"github.com/nextlevelbuilder/cogman/internal/store/file"
	"github.com/nextlevelbuilder/cogman/internal/vault"
)

// storeConfig maps the token section of the config onto the store layer.
func storeConfig(cfg *config.Config) store.StoreConfig {
	return store.StoreConfig{
		Backend:        cfg.Token.Backend,
		TokenFile:      cfg.Token.File,
		KeyringService: cfg.Token.KeyringService,
		KeyringUser:    cfg.Token.KeyringUser,
	}
}

// openVault builds the vault for the configured backend, or exits.
func openVault(cfg *config.Config) *vault.Vault {
	ts, err := file.NewTokenStore(storeConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return vault.New(ts)
}

func openWorkspace(cfg *config.Config) *cogs.Workspace {
	return cogs.NewWorkspace(cfg.CogsDir)
}

// interactive reports whether stdin is a terminal the prompts can drive.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var stdinLines *bufio.Reader

// readSecret asks for a hidden value. Without a terminal it reads one line
// from stdin so scripts can pipe values in.
func readSecret(title, description string) (string, error) {
	if interactive() {
		return promptSecret(title, description)
	}
	if stdinLines == nil {
		stdinLines = bufio.NewReader(os.Stdin)
	}
	return readLine(stdinLines)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirmOrYes returns true when --yes was given, and otherwise asks.
// Without a terminal and without --yes the answer is no.
func confirmOrYes(yes bool, title string) bool {
	if yes {
		return true
	}
	if !interactive() {
		fmt.Fprintln(os.Stderr, "Refusing to continue without a terminal. Pass --yes to confirm.")
		return false
	}
	ok, err := promptConfirm(title, false)
	return err == nil && ok
}

// exitVaultError prints the user-facing message for a vault error and exits.
func exitVaultError(err error) {
	fmt.Fprint(os.Stderr, vaultErrorText(err, verbose))
	os.Exit(1)
}

// vaultErrorText is the message for err, plus the raw error when detail is
// set. Decryption failures never get detail: the raw text would tell a
// wrong passphrase apart from a damaged file.
func vaultErrorText(err error, detail bool) string {
	msg := vault.UserMessage(err) + "\n"
	if !detail || errors.Is(err, crypto.ErrDecrypt) || errors.Is(err, crypto.ErrMalformed) {
		return msg
	}
	return msg + fmt.Sprintf("  detail: %s\n", err)
}
