package auth

import (
	"regexp"
	"strings"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const maxEmailLen = 255

// NormalizeEmail trims, lowercases and validates an email address before it
// is sent to the auth provider.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", &domain.ErrValidation{Field: "email", Message: "email é obrigatório"}
	}
	if len(e) > maxEmailLen {
		return "", &domain.ErrValidation{Field: "email", Message: "email muito longo"}
	}
	if !emailRe.MatchString(e) {
		return "", &domain.ErrValidation{Field: "email", Message: "email inválido"}
	}
	return e, nil
}

// ValidatePassword rejects empty passwords locally. Strength rules are the
// provider's concern.
func ValidatePassword(password string) error {
	if password == "" {
		return &domain.ErrValidation{Field: "password", Message: "senha é obrigatória"}
	}
	return nil
}
