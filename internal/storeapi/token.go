package storeapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenSource supplies the bearer token attached to outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns the same token for every request. Useful for
// service credentials and tests.
type StaticTokenSource string

// Token implements TokenSource.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// JWTTokenSource wraps a raw JWT and refuses to hand it out once expired, so
// a call that is guaranteed to fail with 401 is rejected before it leaves the
// process. The signature is not verified here; that is the remote API's job.
type JWTTokenSource struct {
	raw   string
	clock func() time.Time
}

// NewJWTTokenSource builds a JWTTokenSource around the raw token.
func NewJWTTokenSource(raw string, clock func() time.Time) (*JWTTokenSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}
	if clock == nil {
		clock = time.Now
	}
	return &JWTTokenSource{raw: raw, clock: clock}, nil
}

// Token implements TokenSource, failing fast when the exp claim has passed.
func (s *JWTTokenSource) Token(context.Context) (string, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(s.raw, &claims); err != nil {
		return "", fmt.Errorf("%w: malformed token: %v", ErrUnauthorized, err)
	}
	if claims.ExpiresAt != nil && !s.clock().Before(claims.ExpiresAt.Time) {
		return "", fmt.Errorf("%w: token expired at %s", ErrUnauthorized, claims.ExpiresAt.Format(time.RFC3339))
	}
	return s.raw, nil
}

type tokenContextKey struct{}

// WithToken stores a per-request bearer token on the context. It takes
// precedence over the client's configured TokenSource, which lets the HTTP
// layer forward the browser's own credentials upstream.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

func tokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}
