package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
)

func newTestGuard(policy *fakePolicy) *Guard {
	return NewGuard(policy, zap.NewNop(), observability.NewMetrics())
}

func activeState(role domain.Role, igrejaID string) domain.AuthState {
	return domain.AuthState{
		Phase:    domain.PhaseAuthenticatedActive,
		Identity: &domain.Identity{ID: "u1", Email: "a@b.com"},
		Profile: &domain.UserProfile{
			ID:       "u1",
			Email:    "a@b.com",
			Role:     role,
			IgrejaID: igrejaID,
			Ativo:    true,
		},
		Session: &domain.Session{AccessToken: "tok"},
	}
}

func churchRoles() []domain.Role {
	return []domain.Role{domain.RoleAdminIgreja, domain.RoleCliente, domain.RoleSuperAdmin}
}

func TestGuard_WaitsWhileLoading(t *testing.T) {
	g := newTestGuard(&fakePolicy{})

	for _, st := range []domain.AuthState{
		{Phase: domain.PhaseUninitialized},
		{Phase: domain.PhaseLoading, Loading: true},
	} {
		d := g.Evaluate(context.Background(), st, nil, "")
		assert.Equal(t, Wait, d.Outcome)
	}
}

func TestGuard_UnauthenticatedRedirectsToLogin(t *testing.T) {
	g := newTestGuard(&fakePolicy{})

	d := g.Evaluate(context.Background(), domain.AuthState{Phase: domain.PhaseUnauthenticated}, nil, "")

	assert.Equal(t, RedirectToLogin, d.Outcome)
	assert.Equal(t, PathLogin, d.RedirectTo)
}

func TestGuard_InactiveNeverAdmitted(t *testing.T) {
	g := newTestGuard(&fakePolicy{})
	st := domain.AuthState{
		Phase:    domain.PhaseAuthenticatedInactive,
		Identity: &domain.Identity{ID: "u1"},
	}

	d := g.Evaluate(context.Background(), st, nil, "")

	assert.Equal(t, RedirectToLogin, d.Outcome)
}

func TestGuard_RoleMismatchRedirectsToRoleHome(t *testing.T) {
	g := newTestGuard(&fakePolicy{})

	d := g.Evaluate(context.Background(), activeState(domain.RoleCliente, ""), []domain.Role{domain.RoleSuperAdmin}, "")

	assert.Equal(t, RedirectToRoleHome, d.Outcome)
	assert.Equal(t, PathDashboard, d.RedirectTo)
}

func TestGuard_AdmitsMatchingRole(t *testing.T) {
	g := newTestGuard(&fakePolicy{})

	d := g.Evaluate(context.Background(), activeState(domain.RoleSuperAdmin, ""), []domain.Role{domain.RoleSuperAdmin}, "")

	assert.Equal(t, Admit, d.Outcome)
}

func TestGuard_AdmitsAnyRoleInSet(t *testing.T) {
	// A church page is open to all three roles. Only admin_igreja goes
	// through the scope predicate; the others are admitted by role.
	g := newTestGuard(&fakePolicy{})

	for _, role := range []domain.Role{domain.RoleCliente, domain.RoleSuperAdmin} {
		d := g.Evaluate(context.Background(), activeState(role, ""), churchRoles(), "igreja-b")
		assert.Equal(t, Admit, d.Outcome, "role %s", role)
	}
}

func TestGuard_ChurchAdminOwnChurchAdmitted(t *testing.T) {
	// The scope predicate runs whenever a church id is supplied, even for
	// the admin's own church; the server is the authority.
	g := newTestGuard(&fakePolicy{churchAccess: map[string]bool{"igreja-a": true}})

	d := g.Evaluate(context.Background(), activeState(domain.RoleAdminIgreja, "igreja-a"), churchRoles(), "igreja-a")

	assert.Equal(t, Admit, d.Outcome)
}

func TestGuard_ChurchAdminCrossTenantDenied(t *testing.T) {
	g := newTestGuard(&fakePolicy{churchAccess: map[string]bool{"igreja-b": false}})

	d := g.Evaluate(context.Background(), activeState(domain.RoleAdminIgreja, "igreja-a"), churchRoles(), "igreja-b")

	assert.Equal(t, RedirectToRoleHome, d.Outcome)
	assert.Equal(t, ChurchPath("igreja-a"), d.RedirectTo)
}

func TestGuard_ChurchAdminExtraGrantAdmitted(t *testing.T) {
	g := newTestGuard(&fakePolicy{churchAccess: map[string]bool{"igreja-b": true}})

	d := g.Evaluate(context.Background(), activeState(domain.RoleAdminIgreja, "igreja-a"), churchRoles(), "igreja-b")

	assert.Equal(t, Admit, d.Outcome)
}

func TestGuard_ChurchAdminRevokedOwnChurchDenied(t *testing.T) {
	// A server-side revocation not yet reflected in the profile row wins.
	g := newTestGuard(&fakePolicy{churchAccess: map[string]bool{"igreja-a": false}})

	d := g.Evaluate(context.Background(), activeState(domain.RoleAdminIgreja, "igreja-a"), churchRoles(), "igreja-a")

	assert.Equal(t, RedirectToRoleHome, d.Outcome)
}

func TestGuard_ChurchCheckErrorFailsClosed(t *testing.T) {
	g := newTestGuard(&fakePolicy{churchAccessErr: errors.New("timeout")})

	d := g.Evaluate(context.Background(), activeState(domain.RoleAdminIgreja, "igreja-a"), churchRoles(), "igreja-b")

	assert.Equal(t, RedirectToRoleHome, d.Outcome)
	assert.Equal(t, ChurchPath("igreja-a"), d.RedirectTo)
}
