package bankclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, calls *int32, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultTokenPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		atomic.AddInt32(calls, 1)
		json.NewEncoder(w).Encode(oauthTokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   900,
		})
	}))
}

func TestTokenManager_Token_ValidCredential(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, "fresh")
	defer server.Close()

	store := newMemStore()
	store.setCredential(&Credential{
		AccessToken: "stored",
		IssuedAt:    time.Now().Unix(),
		ExpiresIn:   900,
	})

	m := NewTokenManager(store, &OAuthAdapter{Username: "u", Password: "p"}, NewStaticResolver(server.URL))

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "stored" {
		t.Errorf("Token() = %q, want stored", token)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("token endpoint called %d times, want 0", calls)
	}
}

func TestTokenManager_Token_StaleCredentialRefreshes(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, "fresh")
	defer server.Close()

	store := newMemStore()
	store.setCredential(&Credential{
		AccessToken: "stale",
		IssuedAt:    time.Now().Add(-15 * time.Minute).Unix(),
		ExpiresIn:   900,
	})

	m := NewTokenManager(store, &OAuthAdapter{Username: "u", Password: "p"}, NewStaticResolver(server.URL))

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "fresh" {
		t.Errorf("Token() = %q, want fresh", token)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("token endpoint called %d times, want 1", calls)
	}
}

func TestTokenManager_Token_SingleFlight(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		// Hold the response so concurrent callers pile up on one flight.
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(oauthTokenResponse{
			AccessToken: "coalesced",
			ExpiresIn:   900,
		})
	}))
	defer server.Close()

	store := newMemStore()
	m := NewTokenManager(store, &OAuthAdapter{Username: "u", Password: "p"}, NewStaticResolver(server.URL))

	const callers = 5
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if tokens[i] != "coalesced" {
			t.Errorf("caller %d token = %q, want coalesced", i, tokens[i])
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("token endpoint called %d times, want 1", got)
	}
}

func TestTokenManager_Refresh_StampsIssuedAt(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, "fresh")
	defer server.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	m := NewTokenManager(store, &OAuthAdapter{Username: "u", Password: "p"}, NewStaticResolver(server.URL),
		WithClock(func() time.Time { return now }))

	if _, err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	cred := store.credential()
	if cred == nil {
		t.Fatal("credential not stored")
	}
	if cred.IssuedAt != now.Unix() {
		t.Errorf("IssuedAt = %d, want %d", cred.IssuedAt, now.Unix())
	}
	if cred.ExpiresIn != 900 {
		t.Errorf("ExpiresIn = %d, want 900", cred.ExpiresIn)
	}
}

func TestTokenManager_Refresh_PreservesRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Access token rotates, no refresh token in the response.
		json.NewEncoder(w).Encode(oauthTokenResponse{
			AccessToken: "rotated",
			ExpiresIn:   900,
		})
	}))
	defer server.Close()

	store := newMemStore()
	store.setCredential(&Credential{
		AccessToken:  "stale",
		RefreshToken: "keep-me",
		IssuedAt:     time.Now().Add(-1 * time.Hour).Unix(),
		ExpiresIn:    900,
	})

	m := NewTokenManager(store, &OAuthAdapter{}, NewStaticResolver(server.URL))

	if _, err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	cred := store.credential()
	if cred.RefreshToken != "keep-me" {
		t.Errorf("RefreshToken = %q, want keep-me", cred.RefreshToken)
	}
}

func TestTokenManager_Refresh_FailureLeavesStateUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "upstream down"})
	}))
	defer server.Close()

	stale := &Credential{
		AccessToken: "stale",
		IssuedAt:    time.Now().Add(-1 * time.Hour).Unix(),
		ExpiresIn:   900,
	}
	store := newMemStore()
	store.setCredential(stale)

	m := NewTokenManager(store, &OAuthAdapter{}, NewStaticResolver(server.URL))

	_, err := m.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh() should have failed")
	}
	var cfe *CredentialFetchError
	if !errors.As(err, &cfe) {
		t.Fatalf("error = %T, want *CredentialFetchError", err)
	}
	if cfe.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", cfe.Status)
	}

	cred := store.credential()
	if cred == nil || cred.AccessToken != "stale" {
		t.Error("failed fetch must not mutate stored state")
	}
}

func TestTokenManager_Invalidate(t *testing.T) {
	store := newMemStore()
	store.setCredential(&Credential{AccessToken: "current", IssuedAt: time.Now().Unix(), ExpiresIn: 900})

	m := NewTokenManager(store, &OAuthAdapter{}, NewStaticResolver("http://unused"))

	// Mismatched token: a straggler 401 must not wipe a newer credential.
	m.Invalidate("older")
	if store.credential() == nil {
		t.Fatal("Invalidate() with mismatched token cleared the credential")
	}

	m.Invalidate("current")
	if store.credential() != nil {
		t.Error("Invalidate() with matching token did not clear the credential")
	}

	// Idempotent on empty store.
	m.Invalidate("current")
}

func TestTokenManager_IsValid_CustomBuffer(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewTokenManager(store, &OAuthAdapter{}, NewStaticResolver("http://unused"),
		WithSafetyBuffer(120*time.Second),
		WithClock(func() time.Time { return now }))

	cred := &Credential{AccessToken: "t", IssuedAt: now.Add(-781 * time.Second).Unix(), ExpiresIn: 900}
	if m.IsValid(cred) {
		t.Error("credential inside a 120s buffer should be invalid")
	}

	cred.IssuedAt = now.Add(-779 * time.Second).Unix()
	if !m.IsValid(cred) {
		t.Error("credential outside the buffer should be valid")
	}
}
