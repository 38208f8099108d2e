// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the auth core from
// the Supabase adapters and from the navigation mechanism.
package port

import (
	"context"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
)

// AuthProvider is the external auth backend (GoTrue). Credential checks and
// session persistence live entirely on the provider side.
type AuthProvider interface {
	// SignInWithPassword exchanges credentials for a session. Provider
	// errors are translated into the domain taxonomy before returning.
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)

	// SignOut revokes the session server-side. Best-effort for callers.
	SignOut(ctx context.Context, accessToken string) error

	// GetSession returns the provider's current session, refreshing it if
	// expired. (nil, nil) means no session exists.
	GetSession(ctx context.Context) (*domain.Session, error)

	// RefreshSession exchanges a refresh token for a fresh session.
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)
}

// ProfileStore reads application-level user profiles ("usuarios" rows).
// Read-only; implementations must not mutate the backing store.
type ProfileStore interface {
	// GetUserProfile returns (nil, nil) when no row matches.
	GetUserProfile(ctx context.Context, id string) (*domain.UserProfile, error)
}

// TenantStore reads tenant rows ("clientes") for trial-window derivation.
type TenantStore interface {
	// GetCliente returns (nil, nil) when no row matches.
	GetCliente(ctx context.Context, id string) (*domain.Cliente, error)
}

// PolicyClient invokes the server-side policy predicates. All predicates are
// evaluated under the caller's own authenticated identity (accessToken).
type PolicyClient interface {
	CheckTrialExpired(ctx context.Context, accessToken, userID string) (bool, error)
	InactivateExpiredTrialClients(ctx context.Context) error
	UserHasChurchAccess(ctx context.Context, accessToken, churchID string) (bool, error)
}

// Navigator is the injected navigation capability. The orchestrator and the
// guard never touch a global location; they ask the navigator to move.
type Navigator interface {
	NavigateTo(path string)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
