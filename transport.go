package bankclient

import (
	"context"
	"net/http"
)

// RequestInterceptor transforms an outbound request before it is sent.
// Stages run in order; a stage may return the request unchanged or a
// clone (never mutate the caller's request in place).
type RequestInterceptor func(*http.Request) (*http.Request, error)

// ResponseInterceptor inspects an inbound response and may resubmit the
// request via send (the bare transport, outbound stages not reapplied).
type ResponseInterceptor func(req *http.Request, resp *http.Response, send func(*http.Request) (*http.Response, error)) (*http.Response, error)

// pipelineTransport is the single choke point for all domain calls: an
// explicit ordered interceptor pipeline around a base RoundTripper.
type pipelineTransport struct {
	base     http.RoundTripper
	outbound []RequestInterceptor
	inbound  ResponseInterceptor
}

func (t *pipelineTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req
	for _, stage := range t.outbound {
		var err error
		if r, err = stage(r); err != nil {
			return nil, err
		}
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil || t.inbound == nil {
		return resp, err
	}
	return t.inbound(r, resp, t.base.RoundTrip)
}

type ctxKey int

const (
	noAuthKey ctxKey = iota
	retriedKey
)

// WithoutAuth marks a request context so the bearer stage is skipped.
// The token-issuance call itself uses this to avoid a circular fetch.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, noAuthKey, true)
}

func isNoAuth(req *http.Request) bool {
	v, _ := req.Context().Value(noAuthKey).(bool)
	return v
}

// markRetried clones req flagged as already retried. A logical request
// is resubmitted at most once after a 401.
func markRetried(req *http.Request) *http.Request {
	return req.Clone(context.WithValue(req.Context(), retriedKey, true))
}

func isRetried(req *http.Request) bool {
	v, _ := req.Context().Value(retriedKey).(bool)
	return v
}
