package bankclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultConfigTimeout bounds the runtime-config fetch so the first
// request an application makes is never blocked indefinitely.
const DefaultConfigTimeout = 10 * time.Second

// DefaultAPIPath is the last-resort base when no other source resolves.
const DefaultAPIPath = "/api"

// RuntimeConfig is the resolved deployment target. Immutable once
// resolved for the process lifetime.
type RuntimeConfig struct {
	APIBaseURL  string
	Environment string
}

// runtimeConfigDoc is the well-known same-origin config document.
type runtimeConfigDoc struct {
	APIURL      string `json:"apiUrl"`
	Environment string `json:"environment,omitempty"`
}

// ResolverOptions configure the source precedence chain.
type ResolverOptions struct {
	// ConfigURL is the well-known runtime config document. Empty
	// disables the remote fetch step.
	ConfigURL string

	// Origin is the scheme://host the application is served from. It
	// resolves relative apiUrl values and feeds the hosting heuristic.
	Origin string

	// HostedSuffix and ProductionURL drive the hostname heuristic: when
	// the Origin host ends in HostedSuffix, ProductionURL is used.
	HostedSuffix  string
	ProductionURL string

	// DefaultPath is the hard-coded fallback. Defaults to DefaultAPIPath.
	DefaultPath string

	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ConfigResolver determines, once, which base URL the client targets.
// Resolution never fails the caller: every error falls through the
// precedence chain to a usable default.
type ConfigResolver struct {
	opts   ResolverOptions
	httpc  *http.Client
	logger *slog.Logger

	mu     sync.RWMutex
	cached *RuntimeConfig
	group  singleflight.Group
}

// NewConfigResolver creates a resolver with the given source chain.
func NewConfigResolver(opts ResolverOptions) *ConfigResolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultConfigTimeout
	}
	if opts.DefaultPath == "" {
		opts.DefaultPath = DefaultAPIPath
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ConfigResolver{opts: opts, httpc: httpc, logger: logger}
}

// NewStaticResolver returns a resolver pre-cached with a fixed base URL.
func NewStaticResolver(baseURL string) *ConfigResolver {
	r := NewConfigResolver(ResolverOptions{})
	r.cached = &RuntimeConfig{APIBaseURL: baseURL}
	return r
}

// Resolve returns the active runtime config, resolving it on first use.
// Concurrent first callers share a single in-flight resolution.
func (r *ConfigResolver) Resolve(ctx context.Context) *RuntimeConfig {
	r.mu.RLock()
	cached := r.cached
	r.mu.RUnlock()
	if cached != nil {
		return cached
	}

	v, _, _ := r.group.Do("config", func() (any, error) {
		// Recheck under the flight: a concurrent caller may have
		// populated the cache while we waited.
		r.mu.RLock()
		cached := r.cached
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		cfg := r.resolve(ctx)

		r.mu.Lock()
		r.cached = cfg
		r.mu.Unlock()
		return cfg, nil
	})
	return v.(*RuntimeConfig)
}

// resolve walks the precedence chain: remote document, hostname
// heuristic, hard-coded default.
func (r *ConfigResolver) resolve(ctx context.Context) *RuntimeConfig {
	if cfg := r.fetchRemote(ctx); cfg != nil {
		r.logger.Info("api base resolved from runtime config",
			"url", cfg.APIBaseURL, "environment", cfg.Environment)
		return cfg
	}

	if r.opts.HostedSuffix != "" && r.opts.ProductionURL != "" {
		if u, err := url.Parse(r.opts.Origin); err == nil && strings.HasSuffix(u.Hostname(), r.opts.HostedSuffix) {
			r.logger.Info("api base resolved from hosting heuristic", "url", r.opts.ProductionURL)
			return &RuntimeConfig{APIBaseURL: r.opts.ProductionURL, Environment: "production"}
		}
	}

	r.logger.Info("api base falling back to default path", "path", r.opts.DefaultPath)
	return &RuntimeConfig{APIBaseURL: r.opts.DefaultPath}
}

// fetchRemote fetches the well-known config document. Any failure is
// logged and swallowed; the chain falls through.
func (r *ConfigResolver) fetchRemote(ctx context.Context) *RuntimeConfig {
	if r.opts.ConfigURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.ConfigURL, nil)
	if err != nil {
		r.logger.Warn("invalid runtime config URL", "url", r.opts.ConfigURL, "err", err)
		return nil
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := r.httpc.Do(req)
	if err != nil {
		r.logger.Warn("runtime config fetch failed", "url", r.opts.ConfigURL, "err", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("runtime config fetch returned non-OK status",
			"url", r.opts.ConfigURL, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.Warn("reading runtime config failed", "err", err)
		return nil
	}

	var doc runtimeConfigDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		r.logger.Warn("parsing runtime config failed", "err", err)
		return nil
	}
	if doc.APIURL == "" {
		r.logger.Warn("runtime config missing apiUrl")
		return nil
	}

	return &RuntimeConfig{
		APIBaseURL:  r.absolutize(doc.APIURL),
		Environment: doc.Environment,
	}
}

// absolutize resolves a relative apiUrl against the configured origin.
func (r *ConfigResolver) absolutize(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.IsAbs() || r.opts.Origin == "" {
		return apiURL
	}
	origin, err := url.Parse(r.opts.Origin)
	if err != nil {
		return apiURL
	}
	return origin.ResolveReference(u).String()
}
