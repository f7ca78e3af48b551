package middleware

import (
	"net/http"
	"strings"

	"closingbinder/internal/auth"
	"closingbinder/internal/httputil"
)

// AuthMiddleware validates the Bearer token on every request except the
// public surface (health check, CORS preflight and the client-binder
// access-code routes, which are gated by access code instead).
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := verifier.VerifyToken(tokenString)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithUser(r, claims.Subject, claims.Email))
		})
	}
}

func isPublicPath(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	if r.URL.Path == "/health" {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/client-binder/")
}
