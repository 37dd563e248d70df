// Package identity derives the advisory user id from the locally stored bearer token.
//
// Nothing here verifies signatures or expiry. The result is used to route requests
// (user_id in bodies, /user/{id}/history), never for trust decisions; the backend
// enforces authentication itself.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/session"
	"github.com/golang-jwt/jwt/v5"
	zlog "github.com/rs/zerolog/log"
)

// Claim names consulted, in priority order.
const (
	ClaimUserID  = "user_id"
	ClaimSubject = "sub"
)

type Resolver struct {
	store  session.TokenStore
	parser *jwt.Parser
}

func NewResolver(store session.TokenStore) *Resolver {
	return &Resolver{
		store:  store,
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
	}
}

// Token returns the stored bearer token, or "" when none is stored or the store fails.
func (r *Resolver) Token() string {
	if r.store == nil {
		return ""
	}
	tok, err := r.store.Load()
	if err != nil {
		zlog.Warn().Err(err).Msg("token_store_read_failed")
		return ""
	}
	return tok
}

// Resolve reads the stored token and derives the identity from it.
func (r *Resolver) Resolve() domain.Identity {
	return r.FromToken(r.Token())
}

// FromToken derives the identity from a raw token. Any malformed input yields
// domain.Anonymous.
func (r *Resolver) FromToken(token string) domain.Identity {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return domain.Anonymous
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domain.Anonymous
	}

	payload, err := r.decodeSegment(parts[1])
	if err != nil {
		return domain.Anonymous
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return domain.Anonymous
	}

	if id, ok := claimString(claims[ClaimUserID]); ok {
		return domain.Identity(id)
	}
	if id, ok := claimString(claims[ClaimSubject]); ok {
		return domain.Identity(id)
	}
	return domain.Anonymous
}

func (r *Resolver) decodeSegment(seg string) ([]byte, error) {
	b, err := r.parser.DecodeSegment(seg)
	if err == nil {
		return b, nil
	}
	// tokens copied by hand sometimes carry plain base64
	return base64.StdEncoding.DecodeString(seg)
}

// claimString accepts non-empty strings and non-zero numbers.
func claimString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		if t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}
