package bankclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTokenPath is the credential-issuing endpoint, relative to the
// resolved API base.
const DefaultTokenPath = "/auth/token"

// TokenManager decides whether the current credential is usable and
// obtains a fresh one when it is not. It is the only writer of the
// CredentialStore: all mutation is a whole-object replace.
//
// Concurrent fetches coalesce onto a single in-flight network call; the
// design must never race two token fetches that would each rewrite the
// stored issued_at.
type TokenManager struct {
	store    CredentialStore
	adapter  TokenAdapter
	resolver *ConfigResolver

	// httpc uses a bare transport: token calls must not recurse through
	// the auth pipeline.
	httpc     *http.Client
	tokenPath string
	buffer    time.Duration
	now       func() time.Time
	logger    *slog.Logger

	group singleflight.Group
}

// TokenOption configures a TokenManager
type TokenOption func(*TokenManager)

// WithTokenPath overrides the credential-issuing endpoint path.
func WithTokenPath(path string) TokenOption {
	return func(m *TokenManager) { m.tokenPath = path }
}

// WithSafetyBuffer overrides the validity safety buffer.
func WithSafetyBuffer(buffer time.Duration) TokenOption {
	return func(m *TokenManager) { m.buffer = buffer }
}

// WithTokenHTTPClient sets the client used for token fetches (timeouts,
// TLS config). Its transport must not be an auth-wrapped one.
func WithTokenHTTPClient(httpc *http.Client) TokenOption {
	return func(m *TokenManager) {
		if httpc != nil {
			m.httpc = httpc
		}
	}
}

// WithTokenLogger sets the structured logger.
func WithTokenLogger(logger *slog.Logger) TokenOption {
	return func(m *TokenManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager creates a token manager for one deployment.
func NewTokenManager(store CredentialStore, adapter TokenAdapter, resolver *ConfigResolver, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		store:     store,
		adapter:   adapter,
		resolver:  resolver,
		httpc:     &http.Client{},
		tokenPath: DefaultTokenPath,
		buffer:    DefaultSafetyBuffer,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsValid reports whether cred is usable right now, honoring the safety
// buffer. A missing credential is invalid.
func (m *TokenManager) IsValid(cred *Credential) bool {
	return cred.ValidAt(m.now(), m.buffer)
}

// Token returns a valid access token, fetching a fresh credential when
// the stored one is stale or absent.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	cred, err := m.store.ReadCredential()
	if err == nil && m.IsValid(cred) {
		return cred.AccessToken, nil
	}
	return m.Refresh(ctx)
}

// Refresh forces a credential fetch. Concurrent callers share the same
// in-flight fetch and all receive its result.
func (m *TokenManager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do("token", func() (any, error) {
		// Recheck under the flight: a coalesced caller may arrive after
		// the credential was already replaced.
		if cred, err := m.store.ReadCredential(); err == nil && m.IsValid(cred) {
			return cred.AccessToken, nil
		}
		return m.fetch(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate clears the stored credential only if its access token still
// matches the one that was rejected. This keeps a 401 straggler from
// wiping a credential that a concurrent refresh already replaced.
func (m *TokenManager) Invalidate(rejectedToken string) {
	cred, err := m.store.ReadCredential()
	if err != nil || cred == nil {
		return
	}
	if rejectedToken == "" || cred.AccessToken == rejectedToken {
		if err := m.store.ClearCredential(); err != nil {
			m.logger.Warn("clearing credential failed", "err", err)
		}
	}
}

// Clear removes the stored credential.
func (m *TokenManager) Clear() error {
	return m.store.ClearCredential()
}

// fetch performs the credential-issuing network call and replaces the
// stored credential on success. Failures leave stored state untouched
// and are not retried here; the HTTP client core owns retry policy.
func (m *TokenManager) fetch(ctx context.Context) (string, error) {
	cfg := m.resolver.Resolve(ctx)
	tokenURL := joinURL(cfg.APIBaseURL, m.tokenPath)

	prior, _ := m.store.ReadCredential()

	req, err := m.adapter.NewRequest(ctx, tokenURL, prior)
	if err != nil {
		return "", &CredentialFetchError{Reason: "building token request", Err: err}
	}

	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", &CredentialFetchError{Reason: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CredentialFetchError{Status: resp.StatusCode, Reason: "reading token response", Err: err}
	}

	cred, err := m.adapter.ParseResponse(resp.StatusCode, body)
	if err != nil {
		return "", err
	}

	// Stamp issuance and preserve the refresh token when the endpoint
	// rotates only the access token.
	cred.IssuedAt = m.now().Unix()
	if cred.RefreshToken == "" && prior.HasRefreshToken() {
		cred.RefreshToken = prior.RefreshToken
	}

	if err := m.store.WriteCredential(cred); err != nil {
		return "", fmt.Errorf("failed to store credential: %w", err)
	}

	m.logger.Info("credential refreshed", "expires_in", cred.ExpiresIn)
	return cred.AccessToken, nil
}

// joinURL joins a base URL and a path without doubling slashes.
func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
