package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/guibarbosadev/focus-badge/pkg/logger"
)

type contextKeyType string

const (
	identityKey contextKeyType = "identity"
	tokenKey    contextKeyType = "bearer_token"
)

// Identity is the caller resolved from a bearer token. It lives in the request
// context only for the duration of that request.
type Identity struct {
	UserID   string `json:"userId"`
	Provider string `json:"provider"`
}

// TokenValidator verifies a token's signature and expiry and returns the
// identity it carries.
type TokenValidator func(token string) (*Identity, error)

// RevocationChecker reports whether a token has been explicitly revoked.
type RevocationChecker func(ctx context.Context, token string) (bool, error)

// Auth rejects requests without a usable bearer token with 401. Checks run in
// a fixed order: header present, header shaped "Bearer <token>", token not
// revoked, token valid. Only the message differs between rejections.
func Auth(validate TokenValidator, isRevoked RevocationChecker, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				reject(w, "missing_header", "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				reject(w, "malformed_header", "Invalid Authorization header")
				return
			}
			token := parts[1]

			revoked, err := isRevoked(r.Context(), token)
			if err != nil {
				reqLogger := logger.FromContext(r.Context())
				if reqLogger == slog.Default() && l != nil {
					reqLogger = l
				}
				reqLogger.ErrorContext(r.Context(), "revocation lookup failed",
					slog.String("error", err.Error()),
				)
				writeAuthError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if revoked {
				reject(w, "revoked", "Token is logged out")
				return
			}

			identity, err := validate(token)
			if err != nil || identity == nil {
				reject(w, "invalid_token", "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, *identity)
			ctx = context.WithValue(ctx, tokenKey, token)
			ctx = logger.WithUserID(ctx, identity.UserID)
			if scoped := logger.FromContext(ctx); scoped != slog.Default() {
				ctx = logger.NewContext(ctx, scoped.With(slog.String("user_id", identity.UserID)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity attached by Auth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// UserIDFromContext returns the authenticated user id, or "" when the request
// did not pass through Auth.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID
	}
	return ""
}

// TokenFromContext returns the raw bearer token accepted by Auth.
func TokenFromContext(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey).(string); ok {
		return tok
	}
	return ""
}

func reject(w http.ResponseWriter, reason, message string) {
	authRejectionsTotal.WithLabelValues(reason).Inc()
	writeAuthError(w, http.StatusUnauthorized, message)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
