package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
	"github.com/vidaplena/igreja-admin-go/internal/port"
)

// Outcome is a route guard verdict.
type Outcome string

const (
	// Admit lets the request through.
	Admit Outcome = "admit"
	// Wait means auth state is still resolving; retry shortly.
	Wait Outcome = "wait"
	// RedirectToLogin bounces unauthenticated (or inactive) users to login.
	RedirectToLogin Outcome = "redirect_login"
	// RedirectToRoleHome bounces authenticated users to their own home.
	RedirectToRoleHome Outcome = "redirect_role_home"
)

// Decision is the guard's answer for one route evaluation.
type Decision struct {
	Outcome    Outcome
	RedirectTo string
}

// Guard evaluates whether the current auth state may enter a route. Checks
// run in a fixed order; the first failing check decides.
type Guard struct {
	policy  port.PolicyClient
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewGuard creates a route guard.
func NewGuard(policy port.PolicyClient, logger *zap.Logger, metrics *observability.Metrics) *Guard {
	return &Guard{policy: policy, logger: logger, metrics: metrics}
}

// Evaluate decides access for a route open to allowedRoles (empty means any
// authenticated role), optionally scoped to resourceID (a church id).
//
// Church-scope checks are fail-closed: if the backend predicate errors, the
// user is sent to their own home, never admitted into another tenant's.
func (g *Guard) Evaluate(ctx context.Context, state domain.AuthState, allowedRoles []domain.Role, resourceID string) Decision {
	d := g.evaluate(ctx, state, allowedRoles, resourceID)
	g.metrics.IncrGuardDecision(string(d.Outcome))
	return d
}

func (g *Guard) evaluate(ctx context.Context, state domain.AuthState, allowedRoles []domain.Role, resourceID string) Decision {
	switch state.Phase {
	case domain.PhaseUninitialized, domain.PhaseLoading:
		return Decision{Outcome: Wait}
	}
	if state.Loading {
		return Decision{Outcome: Wait}
	}

	if !state.Authenticated() {
		return Decision{Outcome: RedirectToLogin, RedirectTo: PathLogin}
	}
	profile := state.Profile

	if len(allowedRoles) > 0 && !roleAllowed(profile.Role, allowedRoles) {
		g.logger.Info("acesso negado por papel",
			zap.String("user_id", profile.ID),
			zap.String("role", string(profile.Role)))
		return Decision{Outcome: RedirectToRoleHome, RedirectTo: RoleHome(profile)}
	}

	// The church-scope predicate only applies to the church-scoped role;
	// cliente and superadmin reach church pages by role alone.
	if profile.Role == domain.RoleAdminIgreja && resourceID != "" {
		token := ""
		if state.Session != nil {
			token = state.Session.AccessToken
		}
		allowed, err := g.policy.UserHasChurchAccess(ctx, token, resourceID)
		if err != nil {
			g.logger.Warn("verificação de acesso à igreja falhou",
				zap.String("user_id", profile.ID),
				zap.String("church_id", resourceID),
				zap.Error(err))
			return Decision{Outcome: RedirectToRoleHome, RedirectTo: RoleHome(profile)}
		}
		if !allowed {
			g.logger.Info("acesso negado à igreja",
				zap.String("user_id", profile.ID),
				zap.String("church_id", resourceID))
			return Decision{Outcome: RedirectToRoleHome, RedirectTo: RoleHome(profile)}
		}
	}

	return Decision{Outcome: Admit}
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
