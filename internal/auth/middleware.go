// Package auth implements the shared-secret boundary check. Every request
// except /api/v1/health must carry the relay credential, either as the raw
// X-Relay-Token header (vehicle firmware) or as an HS256 bearer token
// signed with the same secret (console clients that only speak
// Authorization headers). The check runs before any mailbox operation.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenHeader is the raw shared-secret header the vehicle sends.
const TokenHeader = "X-Relay-Token"

// ContextKey is used for storing the caller identity in request context.
type ContextKey string

// ActorKey indexes the authenticated actor name in the request context.
const ActorKey ContextKey = "actor"

// Actor names recorded for audit attribution.
const (
	ActorVehicle = "vehicle"
	ActorConsole = "console"
)

// Middleware guards handlers with the shared-secret check.
type Middleware struct {
	secret []byte
}

// NewMiddleware creates auth middleware around the configured shared
// secret.
func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: []byte(secret)}
}

// RequireAuth wraps next so it only runs for authenticated callers.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.authenticate(r)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), ActorKey, actor)
		next(w, r.WithContext(ctx))
	}
}

// authenticate resolves the caller identity from the request credentials.
func (m *Middleware) authenticate(r *http.Request) (string, error) {
	if raw := r.Header.Get(TokenHeader); raw != "" {
		if subtle.ConstantTimeCompare([]byte(raw), m.secret) == 1 {
			return ActorVehicle, nil
		}
		return "", fmt.Errorf("token mismatch")
	}

	token, err := extractBearerToken(r)
	if err != nil {
		return "", err
	}
	sub, err := m.verifyBearer(token)
	if err != nil {
		return "", err
	}
	if sub == "" {
		sub = ActorConsole
	}
	return sub, nil
}

// verifyBearer verifies an HS256 token signed with the shared secret and
// returns its subject.
func (m *Middleware) verifyBearer(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	sub, _ := (*claims)["sub"].(string)
	return sub, nil
}

// IssueToken mints an HS256 bearer token for a console client. The relay
// has no account system; the token is just the shared secret in a shape
// Authorization-only HTTP clients can carry.
func (m *Middleware) IssueToken(subject string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// extractBearerToken extracts the bearer token from the Authorization
// header.
func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing credentials")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}

// ActorFromContext returns the authenticated actor name, or "unknown"
// when the request skipped auth.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey).(string); ok && actor != "" {
		return actor
	}
	return "unknown"
}

// writeUnauthorized writes a 401 in the relay envelope format.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"result":        "error",
		"code":          "UNAUTHORIZED",
		"message":       "Authentication required",
		"correlationId": uuid.NewString(),
	})
}
