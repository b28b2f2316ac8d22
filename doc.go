// Package bankclient is a resilient, token-refresh-guarded API client
// for the BSG demo banking applications. It consolidates the client
// layer the demo apps share: runtime config resolution with fallback
// precedence, credential persistence, transparent token refresh with a
// single 401 retry, and a session facade for the hosting application.
//
// # Architecture
//
// Credential Store: durable key-value persistence of the credential
// (stores/fs, stores/keyring, or any CredentialStore implementation).
//
// Token Lifecycle Manager: decides credential validity against a safety
// buffer and fetches replacements through a pluggable TokenAdapter.
// Concurrent fetches coalesce onto one network call.
//
// Runtime Config Resolver: resolves the API base URL once per process
// from an ordered source chain (remote config document, hostname
// heuristic, hard-coded default) and never fails the caller.
//
// HTTP Client Core: an interceptor pipeline around http.RoundTripper
// that attaches bearer credentials, rewrites the {version} path
// template, and retries a 401 exactly once after refreshing.
//
// Session Facade: login/logout, session persistence across restarts,
// and a session-expired signal the application subscribes to.
//
// # Basic Usage
//
//	store, _ := fs.NewStore("", "bsgdemo")
//	resolver := bankclient.NewConfigResolver(bankclient.ResolverOptions{
//	    ConfigURL:     "https://app.example.com/config.json",
//	    Origin:        "https://app.example.com",
//	    HostedSuffix:  ".azurestaticapps.net",
//	    ProductionURL: "https://bsg-demo-api.example.com/api",
//	})
//	tokens := bankclient.NewTokenManager(store, &bankclient.OAuthAdapter{
//	    Username: "demo", Password: "secret",
//	}, resolver)
//	client := bankclient.New(resolver, tokens)
//	sessions := bankclient.NewSessionManager(client, store, nil)
//
//	svc := banking.NewService(client)
//	customers, err := svc.SearchCustomers(ctx, "smith")
//
// Domain operations live in the banking package; gRPC per-RPC
// credentials in the grpc package.
package bankclient
