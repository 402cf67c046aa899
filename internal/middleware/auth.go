package middleware

import (
	"context"
	"net/http"

	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/service"
)

type callerCtxKey struct{}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// Auth returns middleware that resolves the X-API-Key header to a ledger
// address and stores it in the request context. When authEnabled is false,
// every request runs as devCaller.
func Auth(keyring *service.Keyring, authEnabled bool, devCaller identity.Address) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authEnabled {
				ctx := context.WithValue(r.Context(), callerCtxKey{}, devCaller)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// WebSocket clients can't set headers; the key rides the query
			// string instead.
			key := r.Header.Get("X-API-Key")
			if key == "" && r.URL.Path == "/ws" {
				key = r.URL.Query().Get("key")
			}
			if key == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			addr, err := keyring.Authenticate(r.Context(), key)
			if err != nil {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), callerCtxKey{}, addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext returns the authenticated ledger address, or the zero
// sentinel when the request was not authenticated.
func CallerFromContext(ctx context.Context) identity.Address {
	addr, ok := ctx.Value(callerCtxKey{}).(identity.Address)
	if !ok {
		return identity.Zero
	}
	return addr
}

// WithCaller stores a caller address in the context. Exposed for tests and
// internal tooling that bypasses the HTTP layer.
func WithCaller(ctx context.Context, addr identity.Address) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, addr)
}
