package middleware

import (
	"context"

	"github.com/baechuer/recsys-storefront/internal/domain"
)

// SetRequestIDForTest is a helper to inject a request ID into the context for testing.
func SetRequestIDForTest(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// SetIdentityForTest injects a resolved identity and token, bypassing the Identity middleware.
func SetIdentityForTest(ctx context.Context, id domain.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, IdentityKey, id)
	return context.WithValue(ctx, BearerTokenKey, token)
}
