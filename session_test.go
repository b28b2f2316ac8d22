package bankclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newSessionFixture(t *testing.T, store *memStore, serverURL string) (*Client, *SessionManager) {
	t.Helper()
	client := newTestClient(store, serverURL)
	return client, NewSessionManager(client, store, discardLogger())
}

func TestSessionManager_LoginPersistsSessionAndCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(oauthTokenResponse{AccessToken: "tok", ExpiresIn: 900})
	}))
	defer server.Close()

	store := newMemStore()
	_, sessions := newSessionFixture(t, store, server.URL)

	s, err := sessions.Login(context.Background(), UserInfo{Username: "demo", DisplayName: "Demo User"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.User.Username != "demo" {
		t.Errorf("Username = %q", s.User.Username)
	}

	if store.credential() == nil {
		t.Error("credential not persisted")
	}
	if data, _ := store.ReadSession(); len(data) == 0 {
		t.Error("session blob not persisted")
	}
}

func TestSessionManager_LoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	store := newMemStore()
	_, sessions := newSessionFixture(t, store, server.URL)

	if _, err := sessions.Login(context.Background(), UserInfo{Username: "demo"}); err == nil {
		t.Fatal("Login() should have failed")
	}
	if _, ok := sessions.Current(); ok {
		t.Error("no session should exist after failed login")
	}
}

func TestSessionManager_RestoreAfterRestart(t *testing.T) {
	store := newMemStore()
	data, _ := json.Marshal(&Session{User: UserInfo{Username: "demo", Email: "demo@bsg.example"}})
	store.WriteSession(data)

	// Fresh manager over the same storage simulates a process restart.
	_, sessions := newSessionFixture(t, store, "http://unused")

	s, ok := sessions.Current()
	if !ok {
		t.Fatal("Current() should restore the persisted session")
	}
	if s.User.Email != "demo@bsg.example" {
		t.Errorf("Email = %q", s.User.Email)
	}
}

func TestSessionManager_CorruptSessionReadsAsLoggedOut(t *testing.T) {
	store := newMemStore()
	store.WriteSession([]byte(`{definitely not json`))

	_, sessions := newSessionFixture(t, store, "http://unused")

	if _, ok := sessions.Current(); ok {
		t.Error("corrupt session blob should read as logged out")
	}
	if data, _ := store.ReadSession(); data != nil {
		t.Error("corrupt blob should be cleared")
	}
}

func TestSessionManager_Logout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(oauthTokenResponse{AccessToken: "tok", ExpiresIn: 900})
	}))
	defer server.Close()

	store := newMemStore()
	_, sessions := newSessionFixture(t, store, server.URL)

	if _, err := sessions.Login(context.Background(), UserInfo{Username: "demo"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := sessions.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if store.credential() != nil {
		t.Error("credential should be cleared on logout")
	}
	if data, _ := store.ReadSession(); data != nil {
		t.Error("session blob should be cleared on logout")
	}
	if _, ok := sessions.Current(); ok {
		t.Error("Current() should report logged out")
	}
}

func TestSessionManager_ExpiredSignalClearsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultTokenPath {
			json.NewEncoder(w).Encode(oauthTokenResponse{AccessToken: "fresh", ExpiresIn: 900})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := newMemStore()
	client, sessions := newSessionFixture(t, store, server.URL)

	if _, err := sessions.Login(context.Background(), UserInfo{Username: "demo"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	var notified int32
	sessions.OnExpired(func() { atomic.AddInt32(&notified, 1) })

	// Both the original call and the retry get 401: unrecoverable.
	err := client.DoJSON(context.Background(), http.MethodGet, "/resource", nil, nil)
	if err == nil {
		t.Fatal("DoJSON() should have failed")
	}

	if _, ok := sessions.Current(); ok {
		t.Error("session should be destroyed after unrecoverable 401")
	}
	if data, _ := store.ReadSession(); data != nil {
		t.Error("session blob should be cleared")
	}
	if atomic.LoadInt32(&notified) != 1 {
		t.Errorf("expired callback fired %d times, want 1", notified)
	}
}
