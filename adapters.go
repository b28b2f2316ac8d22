package bankclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is assumed when the issuing endpoint reports no expiry
// and the token itself carries none.
const DefaultTokenTTL = 15 * time.Minute

// TokenAdapter abstracts the credential-issuing endpoint. Deployments use
// one of two incompatible response shapes (OAuth-style grants vs a static
// API-key exchange); the adapter is selected once at construction time.
type TokenAdapter interface {
	// NewRequest builds the HTTP request that obtains a fresh credential.
	// prior is the currently stored credential, or nil; adapters may use
	// it to choose a refresh grant over a full re-authentication.
	NewRequest(ctx context.Context, tokenURL string, prior *Credential) (*http.Request, error)

	// ParseResponse decodes the endpoint response into a credential.
	// The returned credential's IssuedAt is stamped by the caller.
	ParseResponse(status int, body []byte) (*Credential, error)
}

// OAuthAdapter speaks the OAuth-style token endpoint:
// grant requests as JSON, responses of the form
// {access_token, refresh_token, token_type, expires_in}.
type OAuthAdapter struct {
	Username string
	Password string
	Scope    string
	ClientID string
}

type oauthTokenRequest struct {
	GrantType    string `json:"grant_type"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
}

type oauthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// NewRequest uses the refresh_token grant when prior holds a refresh
// token, otherwise the password grant.
func (a *OAuthAdapter) NewRequest(ctx context.Context, tokenURL string, prior *Credential) (*http.Request, error) {
	body := oauthTokenRequest{
		GrantType: "password",
		Username:  a.Username,
		Password:  a.Password,
		Scope:     a.Scope,
		ClientID:  a.ClientID,
	}
	if prior.HasRefreshToken() {
		body = oauthTokenRequest{
			GrantType:    "refresh_token",
			RefreshToken: prior.RefreshToken,
			ClientID:     a.ClientID,
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (a *OAuthAdapter) ParseResponse(status int, body []byte) (*Credential, error) {
	var resp oauthTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &CredentialFetchError{Status: status, Reason: "invalid response from server", Err: err}
	}

	if status != http.StatusOK {
		reason := resp.ErrorDesc
		if reason == "" {
			reason = resp.Error
		}
		return nil, &CredentialFetchError{Status: status, Reason: reason}
	}
	if resp.AccessToken == "" {
		return nil, &CredentialFetchError{Status: status, Reason: "response contained no access token"}
	}

	expiresIn := resp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = int64(DefaultTokenTTL / time.Second)
	}

	return &Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    expiresIn,
	}, nil
}

// APIKeyAdapter speaks the static-key exchange used by the Transact/LMS
// style deployments: the response shape is {Token, Result, Message}.
// The shape carries no expiry field; when the returned token parses as a
// JWT its exp claim is used, otherwise TTL (or DefaultTokenTTL) applies.
type APIKeyAdapter struct {
	APIKey string
	TTL    time.Duration
}

type apiKeyTokenRequest struct {
	APIKey string `json:"apiKey"`
}

type apiKeyTokenResponse struct {
	Token   string `json:"Token"`
	Result  bool   `json:"Result"`
	Message string `json:"Message,omitempty"`
}

func (a *APIKeyAdapter) NewRequest(ctx context.Context, tokenURL string, _ *Credential) (*http.Request, error) {
	jsonBody, err := json.Marshal(apiKeyTokenRequest{APIKey: a.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (a *APIKeyAdapter) ParseResponse(status int, body []byte) (*Credential, error) {
	var resp apiKeyTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &CredentialFetchError{Status: status, Reason: "invalid response from server", Err: err}
	}

	if status != http.StatusOK || !resp.Result {
		return nil, &CredentialFetchError{Status: status, Reason: resp.Message}
	}
	if resp.Token == "" {
		return nil, &CredentialFetchError{Status: status, Reason: "response contained no token"}
	}

	return &Credential{
		AccessToken: resp.Token,
		TokenType:   "Bearer",
		ExpiresIn:   a.expirySeconds(resp.Token),
	}, nil
}

// expirySeconds derives the token lifetime from the JWT exp claim. The
// parse is unverified: this client is not the token's audience and has
// no signing key, it only needs the bookkeeping fields.
func (a *APIKeyAdapter) expirySeconds(token string) int64 {
	fallback := a.TTL
	if fallback <= 0 {
		fallback = DefaultTokenTTL
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return int64(fallback / time.Second)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return int64(fallback / time.Second)
	}

	remaining := time.Until(exp.Time)
	if remaining <= 0 {
		return int64(fallback / time.Second)
	}
	return int64(remaining / time.Second)
}
