package file

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/nextlevelbuilder/cogman/internal/store"
)

func TestFileTokenStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token.enc")
	s := NewFileTokenStore(path)

	if ok, err := s.Exists(ctx); err != nil || ok {
		t.Fatalf("Exists before save = %v, %v", ok, err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Load before save: error = %v, want ErrNotFound", err)
	}

	blob := []byte{0x00, 0x01, 0xfe, 0xff, 'a', 'b'}
	if err := s.Save(ctx, blob); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("Load = %x, want %x", got, blob)
	}
	if ok, _ := s.Exists(ctx); !ok {
		t.Error("Exists after save = false")
	}
}

func TestFileTokenStore_OverwriteWholesale(t *testing.T) {
	ctx := context.Background()
	s := NewFileTokenStore(filepath.Join(t.TempDir(), "token.enc"))

	if err := s.Save(ctx, bytes.Repeat([]byte{'x'}, 100)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, []byte("short")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "short" {
		t.Errorf("Load = %q, want %q", got, "short")
	}
}

func TestFileTokenStore_NoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileTokenStore(filepath.Join(dir, "token.enc"))

	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, []byte{byte(i)}); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "token.enc" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [token.enc]", names)
	}
}

func TestFileTokenStore_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token.enc")
	s := NewFileTokenStore(path)

	if err := s.Save(ctx, []byte("blob")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 600", perm)
	}
}

func TestFileTokenStore_TooLarge(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token.enc")
	s := NewFileTokenStore(path)

	if err := s.Save(ctx, make([]byte, store.MaxBlobSize+1)); err == nil {
		t.Error("Save of oversized blob should fail")
	}

	os.WriteFile(path, make([]byte, store.MaxBlobSize+1), 0600)
	if _, err := s.Load(ctx); err == nil {
		t.Error("Load of oversized file should fail")
	}
}

func TestFileTokenStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewFileTokenStore(filepath.Join(t.TempDir(), "token.enc"))

	if err := s.Delete(ctx); err != nil {
		t.Errorf("Delete of missing file: %v", err)
	}
	s.Save(ctx, []byte("blob"))
	if err := s.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load after delete: error = %v, want ErrNotFound", err)
	}
}

func TestNewTokenStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     store.StoreConfig
		wantLoc string
		wantErr bool
	}{
		{"default_file", store.StoreConfig{TokenFile: "/tmp/t.enc"}, "/tmp/t.enc", false},
		{"explicit_file", store.StoreConfig{Backend: "file", TokenFile: "/tmp/t.enc"}, "/tmp/t.enc", false},
		{"file_without_path", store.StoreConfig{Backend: "file"}, "", true},
		{"keyring", store.StoreConfig{Backend: "keyring"}, "keyring:cogman/bot-token", false},
		{"unknown", store.StoreConfig{Backend: "s3"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewTokenStore(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Location() != tt.wantLoc {
				t.Errorf("Location = %q, want %q", s.Location(), tt.wantLoc)
			}
		})
	}
}
