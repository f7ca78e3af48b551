package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SupabaseClaims are the JWT claims issued by the Supabase auth service.
// Role carries the auth role ("authenticated" / "anon"), not the firm vs.
// client distinction - that is derived from relational tables.
type SupabaseClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}
