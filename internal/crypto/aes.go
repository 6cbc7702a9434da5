// Package crypto protects the bot token at rest with a passphrase.
//
// A 32-byte key is derived from the passphrase with PBKDF2-HMAC-SHA256 and
// used for AES-256-GCM. The sealed blob is nonce || ciphertext || tag and
// carries everything needed to open it except the passphrase.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length (AES-256).
	KeySize = 32
	// Iterations is the PBKDF2 round count.
	Iterations = 100_000

	nonceSize = 12
	tagSize   = 16

	// MinBlobSize is the smallest blob that can hold a nonce and a tag.
	MinBlobSize = nonceSize + tagSize

	prefix = "aes-gcm:"
)

// salt is fixed so the same passphrase opens the token on any machine.
var salt = []byte("cogman.token-vault.v1")

var (
	// ErrDecrypt is returned for any authentication failure. It does not
	// distinguish a wrong passphrase from altered bytes.
	ErrDecrypt = errors.New("decrypt failed: invalid key or corrupted data")

	// ErrMalformed is returned when the blob cannot contain a nonce and tag.
	ErrMalformed = errors.New("malformed ciphertext")
)

// DeriveKey stretches a passphrase into a KeySize key. Same input, same key.
func DeriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, Iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under a key derived from passphrase.
// Every call uses a fresh random nonce.
func Encrypt(plaintext, passphrase string) ([]byte, error) {
	gcm, err := newGCM(passphrase)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens a blob produced by Encrypt.
func Decrypt(blob []byte, passphrase string) (string, error) {
	if len(blob) < MinBlobSize {
		return "", ErrMalformed
	}

	gcm, err := newGCM(passphrase)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

// EncodeString wraps a raw blob in the text form "aes-gcm:" + base64(blob),
// for backends that only hold strings.
func EncodeString(blob []byte) string {
	return prefix + base64.StdEncoding.EncodeToString(blob)
}

// DecodeString unwraps the text form back to raw blob bytes.
func DecodeString(value string) ([]byte, error) {
	if !strings.HasPrefix(value, prefix) {
		return nil, ErrMalformed
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return nil, ErrMalformed
	}
	return blob, nil
}

func newGCM(passphrase string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
