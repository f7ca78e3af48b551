package auth

import "closingbinder/internal/domain/models"

// JWTVerifier validates bearer tokens for the firm-side API surface.
// The client-binder routes bypass it entirely; access codes are their
// own credential.
type JWTVerifier interface {
	// VerifyToken validates a JWT and returns its claims. Returns an
	// error for invalid, expired, or mis-signed tokens.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close releases resources held by the verifier (the JWKS refresh
	// goroutine and its HTTP connections).
	Close() error
}
