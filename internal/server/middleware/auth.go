package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/solvios/flashpool/internal/crypto"
	"github.com/solvios/flashpool/internal/domain"
)

type identityKey struct{}

// WithIdentity returns ctx carrying the authenticated caller identity.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the authenticated caller identity, if any.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok && !id.IsZero()
}

// Auth returns middleware that authenticates requests against the
// configured API token digests. tokens maps identity names to hex HMAC
// digests produced by TokenAuthority.Digest; a caller presenting a raw
// token that matches a digest proceeds with that identity in the request
// context. An empty map disables authentication, and the health endpoint
// always passes so probes work without credentials.
func Auth(authority *crypto.TokenAuthority, tokens map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(tokens) == 0 || r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			for identity, digest := range tokens {
				if authority.Match(token, digest) {
					ctx := WithIdentity(r.Context(), domain.Identity(identity))
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			writeUnauthorized(w, "invalid authentication token")
		})
	}
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
