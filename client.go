package bankclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// DefaultAPIVersion is substituted for the {version} path template
// segment on every outbound request.
const DefaultAPIVersion = "v1.0.0"

// VersionPlaceholder is the templated path segment rewritten at request
// time, e.g. "/{version}/customers".
const VersionPlaceholder = "{version}"

// Client is the HTTP client core: the single choke point for all domain
// network calls. It resolves the base URL once, attaches bearer
// credentials, rewrites the version template, and recovers from a 401
// with exactly one refresh-and-retry.
//
// Construct one Client per application instance and inject it into the
// facades that need it; there is no package-level singleton.
type Client struct {
	resolver *ConfigResolver
	tokens   *TokenManager
	httpc    *http.Client
	version  string
	logger   *slog.Logger

	mu        sync.Mutex
	onExpired []func()
}

// Option configures a Client
type Option func(*Client)

// WithAPIVersion overrides the version substituted into templated paths.
func WithAPIVersion(version string) Option {
	return func(c *Client) { c.version = version }
}

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS
// config, proxies). Its transport is wrapped with the auth pipeline.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates the client core from its injected capabilities.
func New(resolver *ConfigResolver, tokens *TokenManager, opts ...Option) *Client {
	c := &Client{
		resolver: resolver,
		tokens:   tokens,
		httpc:    &http.Client{},
		version:  DefaultAPIVersion,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.httpc.Transport = &pipelineTransport{
		base:     base,
		outbound: []RequestInterceptor{c.resolveBase, c.attachBearer, c.rewriteVersion},
		inbound:  c.handleUnauthorized,
	}

	return c
}

// HTTPClient returns the underlying HTTP client with the auth pipeline
// installed. Requests issued through it get the same treatment as Do.
func (c *Client) HTTPClient() *http.Client {
	return c.httpc
}

// Tokens returns the token lifecycle manager backing this client.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// OnSessionExpired registers a callback fired when authentication fails
// unrecoverably (refresh failed, or a retried request got 401 again).
// The hosting application decides what "logged out" looks like.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = append(c.onExpired, fn)
}

// resolveBase fills in scheme, host and base path for relative request
// URLs from the resolved runtime config.
func (c *Client) resolveBase(req *http.Request) (*http.Request, error) {
	if req.URL.Scheme != "" && req.URL.Host != "" {
		return req, nil
	}

	cfg := c.resolver.Resolve(req.Context())
	base, err := parseAbsoluteBase(cfg.APIBaseURL)
	if err != nil {
		return nil, &TransportError{Op: req.Method, URL: req.URL.String(), Err: err}
	}

	r := req.Clone(req.Context())
	r.URL.Scheme = base.Scheme
	r.URL.Host = base.Host
	if base.Path != "" {
		prefix := strings.TrimSuffix(base.Path, "/")
		r.URL.Path = prefix + r.URL.Path
		if r.URL.RawPath != "" {
			r.URL.RawPath = prefix + r.URL.RawPath
		}
	}
	return r, nil
}

// attachBearer sets the Authorization header from the token manager.
// Requests marked no-auth (the token-issuance call itself) skip this.
func (c *Client) attachBearer(req *http.Request) (*http.Request, error) {
	if isNoAuth(req) {
		return req, nil
	}

	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return nil, err
	}

	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return r, nil
}

// rewriteVersion substitutes the active API version into templated
// path segments.
func (c *Client) rewriteVersion(req *http.Request) (*http.Request, error) {
	if !strings.Contains(req.URL.Path, VersionPlaceholder) {
		return req, nil
	}
	r := req.Clone(req.Context())
	r.URL.Path = strings.ReplaceAll(r.URL.Path, VersionPlaceholder, c.version)
	if r.URL.RawPath != "" {
		r.URL.RawPath = strings.ReplaceAll(r.URL.RawPath, VersionPlaceholder, c.version)
	}
	return r, nil
}

// handleUnauthorized is the inbound stage. State machine per logical
// request: Sent -> (non-401: Done) | (401, not retried: Refreshing ->
// Resent -> Done|Failed) | (401, retried: Failed).
func (c *Client) handleUnauthorized(req *http.Request, resp *http.Response, send func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	if resp.StatusCode != http.StatusUnauthorized || isNoAuth(req) {
		return resp, nil
	}

	if isRetried(req) {
		// Second 401 for this logical request: give up and tear down.
		c.teardown("retried request unauthorized")
		return resp, nil
	}

	rejected := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	c.tokens.Invalidate(rejected)
	token, err := c.tokens.Refresh(req.Context())
	if err != nil {
		c.teardown("credential refresh failed")
		return nil, err
	}

	retry := markRetried(req)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to replay request body: %w", err)
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+token)

	c.logger.Info("retrying request after token refresh",
		"method", req.Method, "path", req.URL.Path)

	resp2, err := send(retry)
	if err != nil {
		return nil, err
	}
	if resp2.StatusCode == http.StatusUnauthorized {
		c.teardown("retried request unauthorized")
	}
	return resp2, nil
}

// teardown clears the credential and notifies session-expired
// subscribers. Fired only on unrecoverable auth failure.
func (c *Client) teardown(reason string) {
	c.logger.Warn("session teardown", "reason", reason)
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("clearing credential failed", "err", err)
	}

	c.mu.Lock()
	subs := make([]func(), len(c.onExpired))
	copy(subs, c.onExpired)
	c.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Do issues a request through the auth pipeline. path may be relative
// to the resolved base and may contain the {version} template. body, if
// non-nil, is JSON encoded with a replayable reader so the 401 retry
// can resubmit it.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, normalizeTransportError(method, path, err)
	}
	return resp, nil
}

// DoJSON issues a request and decodes a JSON response into out. Non-2xx
// responses become a *DomainError carrying the server message.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return &DomainError{Status: resp.StatusCode, Message: serverMessage(resp.Body)}
}

// serverMessage extracts a human-readable error from a JSON error body.
func serverMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	switch {
	case payload.Detail != "":
		return payload.Detail
	case payload.Message != "":
		return payload.Message
	}
	return payload.Error
}

// normalizeTransportError maps errors escaping http.Client back to the
// client's taxonomy. Typed errors raised inside the pipeline pass
// through; anything else is a TransportError.
func normalizeTransportError(method, path string, err error) error {
	var cfe *CredentialFetchError
	if errors.As(err, &cfe) {
		return cfe
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Op: method, URL: path, Err: err}
}

// parseAbsoluteBase parses a base URL and rejects values that cannot be
// dialed from a native client (the relative default path only makes
// sense behind a same-origin proxy).
func parseAbsoluteBase(baseURL string) (*url.URL, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base URL %q is not absolute", baseURL)
	}
	return u, nil
}
