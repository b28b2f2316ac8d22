package bankclient

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the manager to the oauth2.TokenSource interface so
// it can feed anything built on golang.org/x/oauth2 (SDKs, transports).
// Every Token() call goes through the manager's validity check and
// single-flight fetch.
func (m *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, m: m}
}

type managerTokenSource struct {
	ctx context.Context
	m   *TokenManager
}

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	access, err := s.m.Token(s.ctx)
	if err != nil {
		return nil, err
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if cred, err := s.m.store.ReadCredential(); err == nil && cred != nil {
		tok.RefreshToken = cred.RefreshToken
		tok.Expiry = cred.ExpiresAt()
		if cred.TokenType != "" {
			tok.TokenType = cred.TokenType
		}
	}
	return tok, nil
}
