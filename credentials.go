package bankclient

import (
	"time"
)

// DefaultSafetyBuffer is subtracted from a credential's lifetime when
// deciding validity, so tokens are refreshed before they actually expire.
const DefaultSafetyBuffer = 60 * time.Second

// Credential holds the bearer token state for one deployment. It is
// serialized as a single JSON blob and only ever replaced wholesale,
// never field-merged.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	IssuedAt     int64  `json:"issued_at"`  // UNIX seconds
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// ValidAt reports whether the credential is usable at the given time,
// leaving at least buffer of remaining lifetime. A nil or tokenless
// credential is never valid.
func (c *Credential) ValidAt(now time.Time, buffer time.Duration) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	age := now.Unix() - c.IssuedAt
	return age < c.ExpiresIn-int64(buffer/time.Second)
}

// HasRefreshToken returns true if a refresh token is available
func (c *Credential) HasRefreshToken() bool {
	return c != nil && c.RefreshToken != ""
}

// ExpiresAt returns the moment the credential actually expires,
// ignoring the safety buffer.
func (c *Credential) ExpiresAt() time.Time {
	return time.Unix(c.IssuedAt+c.ExpiresIn, 0)
}

// CredentialStore persists the Credential blob across restarts.
//
// Implementations must treat missing and unparseable state the same way:
// ReadCredential returns (nil, nil) and the caller behaves as logged out.
// Writes replace the stored value atomically at the key granularity.
type CredentialStore interface {
	ReadCredential() (*Credential, error)
	WriteCredential(cred *Credential) error

	// ClearCredential removes the stored entry. Clearing an absent
	// entry is not an error.
	ClearCredential() error
}

// SessionStore persists the application session blob under its own key,
// separate from the credential. The payload is opaque UTF-8 JSON.
type SessionStore interface {
	ReadSession() ([]byte, error)
	WriteSession(data []byte) error
	ClearSession() error
}
