// Package grpc bridges the bankclient token lifecycle into gRPC
// channels: per-RPC bearer credentials and a unary client interceptor.
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/bsglabs/bankclient"
)

// TokenCredentials implements credentials.PerRPCCredentials backed by a
// bankclient.TokenManager. Each RPC goes through the manager's validity
// check, so stale tokens refresh transparently.
type TokenCredentials struct {
	Tokens *bankclient.TokenManager

	// AllowInsecure permits use on channels without transport security.
	// Only for local development against plaintext endpoints.
	AllowInsecure bool
}

// GetRequestMetadata implements credentials.PerRPCCredentials.
func (c *TokenCredentials) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "fetching token: %v", err)
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
func (c *TokenCredentials) RequireTransportSecurity() bool {
	return !c.AllowInsecure
}

// UnaryClientInterceptor attaches a bearer token to every unary RPC.
// Use this instead of TokenCredentials when the channel is shared with
// calls that must stay unauthenticated.
func UnaryClientInterceptor(tokens *bankclient.TokenManager) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		token, err := tokens.Token(ctx)
		if err != nil {
			return status.Errorf(codes.Unauthenticated, "fetching token: %v", err)
		}
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
