package domain

import "fmt"

// Error taxonomy for the auth core. User-visible messages are fixed strings;
// raw provider error text never reaches callers.

// ErrValidation indicates bad input (empty email, malformed id, ...).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidCredentials indicates a wrong email/password pair. Retryable.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "Email ou senha incorretos"
}

// ErrUnconfirmedAccount indicates a pending email confirmation.
type ErrUnconfirmedAccount struct{}

func (e *ErrUnconfirmedAccount) Error() string {
	return "Email não confirmado. Verifique sua caixa de entrada."
}

// ErrRateLimited indicates too many sign-in attempts. No local cooldown is
// enforced; the message asks the user to wait.
type ErrRateLimited struct{}

func (e *ErrRateLimited) Error() string {
	return "Muitas tentativas. Tente novamente em alguns minutos."
}

// ErrProfileNotFound indicates an identity with no matching "usuarios" row
// (identity/profile desynchronization). Requires administrator intervention
// and forces a sign-out; retrying will not help.
type ErrProfileNotFound struct {
	ID string
}

func (e *ErrProfileNotFound) Error() string {
	return "Perfil de usuário não encontrado. Entre em contato com o administrador."
}

// ErrAccountInactive indicates a profile with ativo=false. The account is
// treated as non-existent for authorization purposes.
type ErrAccountInactive struct{}

func (e *ErrAccountInactive) Error() string {
	return "Sua conta está inativa. Entre em contato com o administrador."
}

// ErrTransient indicates a transport or storage failure. Fail-closed: the
// attempt is treated as unauthenticated and is safe to retry.
type ErrTransient struct {
	Op  string
	Err error
}

func (e *ErrTransient) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *ErrTransient) Unwrap() error {
	return e.Err
}

// ErrPermissionDenied indicates a resource-level denial (e.g. cross-tenant
// church access). Handled as routing policy, not shown as an error.
type ErrPermissionDenied struct {
	Resource string
}

func (e *ErrPermissionDenied) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Resource)
}
