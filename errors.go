package bankclient

import (
	"errors"
	"fmt"
)

// CredentialFetchError reports a failed token fetch, either at the
// transport level (Status 0) or rejected by the issuing endpoint.
type CredentialFetchError struct {
	Status int
	Reason string
	Err    error
}

func (e *CredentialFetchError) Error() string {
	switch {
	case e.Reason != "" && e.Status > 0:
		return fmt.Sprintf("credential fetch failed: HTTP %d: %s", e.Status, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("credential fetch failed: %s", e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("credential fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("credential fetch failed: HTTP %d", e.Status)
}

func (e *CredentialFetchError) Unwrap() error { return e.Err }

// TransportError wraps network-level failures (unreachable host,
// timeout). These are surfaced to the caller unchanged and never
// retried outside the 401-refresh path.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DomainError is a non-2xx response from a business endpoint, surfaced
// verbatim with the server-provided message.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api error: HTTP %d: %s", e.Status, e.Message)
}

// AsDomainError unwraps err to a DomainError if one is in the chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

// IsAuthFailure reports whether err represents an unrecoverable
// authentication failure (failed token fetch or a 401 that survived the
// single retry).
func IsAuthFailure(err error) bool {
	var cfe *CredentialFetchError
	if errors.As(err, &cfe) {
		return true
	}
	if de, ok := AsDomainError(err); ok {
		return de.Status == 401
	}
	return false
}
