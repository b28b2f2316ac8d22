package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bsglabs/bankclient"
)

var (
	_ bankclient.CredentialStore = (*Store)(nil)
	_ bankclient.SessionStore    = (*Store)(nil)
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestStore_CredentialRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	cred := &bankclient.Credential{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
		IssuedAt:     1750000000,
		ExpiresIn:    900,
	}
	if err := store.WriteCredential(cred); err != nil {
		t.Fatalf("WriteCredential() error = %v", err)
	}

	// A second store over the same directory simulates a restart.
	restored, err := NewStore(dir, "")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	got, err := restored.ReadCredential()
	if err != nil {
		t.Fatalf("ReadCredential() error = %v", err)
	}
	if got == nil {
		t.Fatal("ReadCredential() = nil after write")
	}
	if *got != *cred {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, cred)
	}
}

func TestStore_ReadCredential_Missing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.ReadCredential()
	if err != nil {
		t.Fatalf("ReadCredential() error = %v", err)
	}
	if got != nil {
		t.Errorf("ReadCredential() = %+v, want nil", got)
	}
}

func TestStore_ReadCredential_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, credentialFile), []byte(`{broken json!!`), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := store.ReadCredential()
	if err != nil {
		t.Fatalf("ReadCredential() on corrupt file error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("ReadCredential() = %+v, want nil (corrupt reads as logged out)", got)
	}
}

func TestStore_ClearCredential_Idempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.ClearCredential(); err != nil {
		t.Errorf("ClearCredential() on empty store error = %v", err)
	}

	if err := store.WriteCredential(&bankclient.Credential{AccessToken: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := store.ClearCredential(); err != nil {
		t.Errorf("ClearCredential() error = %v", err)
	}
	if err := store.ClearCredential(); err != nil {
		t.Errorf("second ClearCredential() error = %v", err)
	}

	got, _ := store.ReadCredential()
	if got != nil {
		t.Error("credential still present after clear")
	}
}

func TestStore_SessionRoundTrip(t *testing.T) {
	store := newTestStore(t)

	blob := []byte(`{"user":{"username":"demo"},"created_at":"2026-03-01T12:00:00Z"}`)
	if err := store.WriteSession(blob); err != nil {
		t.Fatalf("WriteSession() error = %v", err)
	}

	got, err := store.ReadSession()
	if err != nil {
		t.Fatalf("ReadSession() error = %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("ReadSession() = %s, want %s", got, blob)
	}

	if err := store.ClearSession(); err != nil {
		t.Fatalf("ClearSession() error = %v", err)
	}
	got, err = store.ReadSession()
	if err != nil {
		t.Fatalf("ReadSession() after clear error = %v", err)
	}
	if got != nil {
		t.Error("session still present after clear")
	}
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := store.WriteCredential(&bankclient.Credential{AccessToken: "t"}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("stray temp file left behind: %s", e.Name())
		}
	}
}
