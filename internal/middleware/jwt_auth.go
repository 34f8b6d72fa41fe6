package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"conecta/internal/auth"
	"conecta/internal/models"
)

type ctxKey string

const CtxPrincipal ctxKey = "principal"

// SessionVerifier is the part of auth.Service the guards need.
type SessionVerifier interface {
	VerifySessionToken(token string) (auth.Principal, error)
}

// RequireSession admits requests carrying a valid bearer token and stores
// the principal in the request context.
func RequireSession(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err == nil {
				var p auth.Principal
				p, err = verifier.VerifySessionToken(token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
					return
				}
			}

			var authErr *auth.AuthError
			kind := auth.AuthExpiredOrInvalid
			if errors.As(err, &authErr) {
				kind = authErr.Kind
			}
			switch kind {
			case auth.AuthMissing:
				writeJSONError(w, http.StatusUnauthorized, "missing_token", "Missing Authorization header")
			case auth.AuthMalformed:
				writeJSONError(w, http.StatusUnauthorized, "malformed_token", "Malformed Authorization header")
			default:
				writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			}
		})
	}
}

// RequireRole must run after RequireSession. A mismatch is rejected without
// naming the role that would have been accepted.
func RequireRole(expected models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing_token", "Missing Authorization header")
				return
			}
			if p.Role != expected {
				writeJSONError(w, http.StatusForbidden, "forbidden", "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, CtxPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(CtxPrincipal).(auth.Principal)
	return p, ok
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", &auth.AuthError{Kind: auth.AuthMissing}
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", &auth.AuthError{Kind: auth.AuthMalformed}
	}
	return strings.TrimSpace(parts[1]), nil
}

func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
	})
}
