package domain

import "time"

// Identity is the opaque auth-provider record the core observes. Owned by
// GoTrue; only id and email matter here.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the provider-issued token pair plus the identity it belongs to.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Identity     Identity  `json:"identity"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AuthEventType mirrors the provider's auth-change event names.
type AuthEventType string

const (
	EventInitialSession AuthEventType = "INITIAL_SESSION"
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
)

// AuthPhase is the orchestrator's resolved state.
type AuthPhase string

const (
	PhaseUninitialized         AuthPhase = "uninitialized"
	PhaseLoading               AuthPhase = "loading"
	PhaseUnauthenticated       AuthPhase = "unauthenticated"
	PhaseAuthenticatedActive   AuthPhase = "authenticated_active"
	PhaseAuthenticatedInactive AuthPhase = "authenticated_inactive"
)

// AuthState is the transient, in-memory authentication state. It has exactly
// one writer (the orchestrator event loop); everyone else reads snapshots.
// A profile with Ativo=false is never surfaced here; the orchestrator nulls
// it out and the phase becomes PhaseAuthenticatedInactive.
type AuthState struct {
	Phase        AuthPhase    `json:"phase"`
	Identity     *Identity    `json:"identity,omitempty"`
	Profile      *UserProfile `json:"profile,omitempty"`
	Session      *Session     `json:"-"`
	Loading      bool         `json:"loading"`
	Processing   bool         `json:"processing"`
	TrialExpired bool         `json:"trial_expired"`
}

// Authenticated reports whether the state carries an active, surfaced profile.
func (s AuthState) Authenticated() bool {
	return s.Phase == PhaseAuthenticatedActive && s.Profile != nil
}
