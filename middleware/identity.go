package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/recsys-storefront/internal/domain"
)

type contextKey string

const (
	IdentityKey    contextKey = "identity"
	BearerTokenKey contextKey = "bearer_token"
)

// TokenResolver is satisfied by identity.Resolver.
type TokenResolver interface {
	Token() string
	FromToken(token string) domain.Identity
}

// Identity resolves the advisory identity once per request and threads it through the
// context. A bearer header that yields an identity takes precedence over the stored
// token; one that yields none falls back to it. Requests are never rejected here;
// gating happens in the components that need an identity.
func Identity(res TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerFromHeader(r.Header.Get("Authorization"))
			id := res.FromToken(token)
			if id.IsZero() {
				token = res.Token()
				id = res.FromToken(token)
			}
			if id.IsZero() {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, id)
			ctx = context.WithValue(ctx, BearerTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerFromHeader(h string) string {
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func GetIdentity(ctx context.Context) domain.Identity {
	if ctx == nil {
		return domain.Anonymous
	}
	id, ok := ctx.Value(IdentityKey).(domain.Identity)
	if !ok {
		return domain.Anonymous
	}
	return id
}

// GetBearerToken returns the raw token (without the "Bearer " prefix).
func GetBearerToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, ok := ctx.Value(BearerTokenKey).(string)
	if !ok {
		return ""
	}
	return token
}
