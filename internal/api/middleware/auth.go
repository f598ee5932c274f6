package middleware

import (
	"context"
	"net/http"

	"github.com/gatherhall/server/internal/api/problem"
	"github.com/gatherhall/server/internal/auth"
)

type contextKey string

const claimsContextKey contextKey = "authClaims"

// ClaimsFromContext returns the verified token claims stored by
// RequireAuth, or nil when the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// WithClaims stores claims on the context. Exposed for handler tests.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// RequireAuth rejects requests without a valid bearer token and stores
// the verified claims on the request context.
func RequireAuth(tokens *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication required", err, env)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid or expired token", err, env)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole layers on RequireAuth: the authenticated actor must hold
// one of the listed roles.
func RequireRole(env string, roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication required", nil, env)
				return
			}
			if !auth.HasRole(claims.Role, roles...) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient role", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
