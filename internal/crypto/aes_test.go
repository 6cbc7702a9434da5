package crypto

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	a := DeriveKey("correct horse battery staple")
	b := DeriveKey("correct horse battery staple")

	if len(a) != KeySize {
		t.Fatalf("key length = %d, want %d", len(a), KeySize)
	}
	if !bytes.Equal(a, b) {
		t.Error("same passphrase produced different keys")
	}
}

func TestDeriveKey_DistinctPassphrases(t *testing.T) {
	passphrases := []string{"", "a", "b", "hunter2", "hunter3", "Hunter2", "hunter2 "}
	seen := make(map[string]string, len(passphrases))

	for _, p := range passphrases {
		k := string(DeriveKey(p))
		if prev, ok := seen[k]; ok {
			t.Errorf("passphrases %q and %q derived the same key", prev, p)
		}
		seen[k] = p
	}
}

func TestDeriveKey_EmptyPassphrase(t *testing.T) {
	if got := DeriveKey(""); len(got) != KeySize {
		t.Errorf("key length = %d, want %d", len(got), KeySize)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		plaintext  string
		passphrase string
	}{
		{"discord_token", "MTIzNDU2Nzg5.abc.def", "hunter2"},
		{"empty_plaintext", "", "pw"},
		{"empty_passphrase", "token", ""},
		{"unicode", "jeton-🔑-ключ", "pässwörd"},
		{"long", strings.Repeat("x", 4096), "long-pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := Encrypt(tt.plaintext, tt.passphrase)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if want := MinBlobSize + len(tt.plaintext); len(blob) != want {
				t.Errorf("blob length = %d, want %d", len(blob), want)
			}

			got, err := Decrypt(blob, tt.passphrase)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("Decrypt = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	a, err := Encrypt("same-token", "same-pass")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt("same-token", "same-pass")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if bytes.Equal(a, b) {
		t.Error("two encryptions produced identical ciphertext")
	}
	if bytes.Equal(a[:nonceSize], b[:nonceSize]) {
		t.Error("two encryptions reused a nonce")
	}

	for i, blob := range [][]byte{a, b} {
		got, err := Decrypt(blob, "same-pass")
		if err != nil || got != "same-token" {
			t.Errorf("blob %d: Decrypt = %q, %v", i, got, err)
		}
	}
}

func TestDecrypt_WrongPassphrase(t *testing.T) {
	blob, err := Encrypt("secret-token-abc", "correct-pw")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(blob, "wrong-pw")
	if !errors.Is(err, ErrDecrypt) {
		t.Fatalf("error = %v, want ErrDecrypt", err)
	}
	if got != "" {
		t.Errorf("plaintext = %q, want empty", got)
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	blob, err := Encrypt("secret-token-abc", "correct-pw")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	for i := range blob {
		tampered := bytes.Clone(blob)
		tampered[i] ^= 0x01

		if _, err := Decrypt(tampered, "correct-pw"); !errors.Is(err, ErrDecrypt) {
			t.Errorf("flip at byte %d: error = %v, want ErrDecrypt", i, err)
		}
	}
}

func TestDecrypt_Truncated(t *testing.T) {
	blob, err := Encrypt("secret-token-abc", "pw")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Dropping the last byte keeps enough length but breaks the tag.
	if _, err := Decrypt(blob[:len(blob)-1], "pw"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("truncated tail: error = %v, want ErrDecrypt", err)
	}
	// Extra trailing bytes must not be ignored.
	if _, err := Decrypt(append(bytes.Clone(blob), 0x00), "pw"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("extended tail: error = %v, want ErrDecrypt", err)
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"short", []byte("short")},
		{"one_below_minimum", make([]byte, MinBlobSize-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decrypt(tt.blob, "pw")
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
			if got != "" {
				t.Errorf("plaintext = %q, want empty", got)
			}
		})
	}
}

func TestDecrypt_MinimumSizeGarbage(t *testing.T) {
	// Long enough to parse, but not a valid seal.
	if _, err := Decrypt(make([]byte, MinBlobSize), "pw"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("error = %v, want ErrDecrypt", err)
	}
}

func TestScenario_Hunter2(t *testing.T) {
	c, err := Encrypt("MTIzNDU2Nzg5", "hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(c, "hunter2")
	if err != nil {
		t.Fatalf("Decrypt(hunter2): %v", err)
	}
	if got != "MTIzNDU2Nzg5" {
		t.Errorf("Decrypt(hunter2) = %q, want %q", got, "MTIzNDU2Nzg5")
	}

	if _, err := Decrypt(c, "hunter3"); err == nil {
		t.Error("Decrypt(hunter3) should fail")
	}
}

func TestEncodeString_RoundTrip(t *testing.T) {
	blob, err := Encrypt("MTIzNDU2Nzg5", "hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	s := EncodeString(blob)
	if !strings.HasPrefix(s, "aes-gcm:") {
		t.Fatalf("missing prefix: %q", s)
	}

	decoded, err := DecodeString(s)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	if !bytes.Equal(decoded, blob) {
		t.Error("decoded blob differs from the original")
	}

	got, err := Decrypt(decoded, "hunter2")
	if err != nil || got != "MTIzNDU2Nzg5" {
		t.Errorf("Decrypt = %q, %v", got, err)
	}
	if _, err := Decrypt(decoded, "hunter3"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("wrong passphrase: error = %v, want ErrDecrypt", err)
	}
}

func TestDecodeString_Invalid(t *testing.T) {
	tests := []string{"", "plain-token", "aes-gcm:!!!not-base64!!!"}
	for _, v := range tests {
		if _, err := DecodeString(v); !errors.Is(err, ErrMalformed) {
			t.Errorf("DecodeString(%q) error = %v, want ErrMalformed", v, err)
		}
	}
}

func TestDecrypt_Concurrent(t *testing.T) {
	blob, err := Encrypt("shared-token", "shared-pass")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Decrypt(blob, "shared-pass")
			if err == nil && got != "shared-token" {
				err = errors.New("wrong plaintext: " + got)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}
