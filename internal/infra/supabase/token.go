package supabase

import (
	"fmt"

	"github.com/vidaplena/igreja-admin-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates Supabase access tokens locally using the project
// JWT secret (HS256). Used by the HTTP middleware to reject stale or forged
// bearer tokens without a provider round-trip.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the given project JWT secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// AccessClaims are the Supabase access-token claims the core cares about.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verify parses and validates an access token, returning the identity it
// asserts. Any parse or signature failure maps to invalid credentials.
func (v *TokenVerifier) Verify(tokenString string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &domain.ErrInvalidCredentials{}
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrInvalidCredentials{}
	}

	return &domain.Identity{ID: claims.Subject, Email: claims.Email}, nil
}
