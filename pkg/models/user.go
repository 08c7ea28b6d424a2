package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User mirrors the identity provider's subject. Authentication itself is
// delegated (Supabase/Cognito); this service only validates bearer tokens
// and keeps a local row for foreign keys and display.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name,omitempty" db:"name"`
	Avatar    string    `json:"avatar,omitempty" db:"avatar"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TokenClaims are the claims this service reads from provider-issued JWTs.
// The subject ("sub") is the user ID; "role" is the provider's audience role
// (e.g. "authenticated"), not an artist membership role.
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token's subject.
func (c *TokenClaims) UserID() string {
	return c.Subject
}
