package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/momiji-market/bff/internal/storeapi"
)

type contextKey string

const userIDContextKey contextKey = "github.com/momiji-market/bff/internal/handlers/userID"

// ForwardBearerToken lifts the caller's bearer token off the Authorization
// header so upstream calls run with the caller's own credentials, and records
// the token subject for ownership checks. The token is not verified here; the
// commerce API is the authority and rejects bad tokens on every call.
func ForwardBearerToken() func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token := bearerToken(r); token != "" {
				ctx = storeapi.WithToken(ctx, token)
				if subject := tokenSubject(parser, token); subject != "" {
					ctx = context.WithValue(ctx, userIDContextKey, subject)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the subject of the forwarded token, if any.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(userIDContextKey).(string); ok {
		return id
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func tokenSubject(parser *jwt.Parser, token string) string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return strings.TrimSpace(claims.Subject)
}
