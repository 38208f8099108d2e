package auth

import (
	"github.com/vidaplena/igreja-admin-go/internal/domain"
)

// Application routes. The orchestrator and the guard only ever emit these;
// free-form paths never leave the package.
const (
	PathRoot       = "/"
	PathLogin      = "/login"
	PathDashboard  = "/dashboard"
	PathSuperAdmin = "/superadmin"
)

// ChurchPath returns the church-scoped home for an admin_igreja user.
func ChurchPath(igrejaID string) string {
	return "/church/" + igrejaID
}

// RoleHome maps a profile to its post-login landing path. An admin_igreja
// profile without a linked church falls back to the generic dashboard, and
// an unknown role lands on the root. Callers log the anomaly.
func RoleHome(p *domain.UserProfile) string {
	if p == nil {
		return PathRoot
	}
	switch p.Role {
	case domain.RoleSuperAdmin:
		return PathSuperAdmin
	case domain.RoleCliente:
		return PathDashboard
	case domain.RoleAdminIgreja:
		if p.IgrejaID != "" {
			return ChurchPath(p.IgrejaID)
		}
		return PathDashboard
	}
	return PathRoot
}

// NavigatorFunc adapts a function to the port.Navigator interface.
type NavigatorFunc func(path string)

// NavigateTo calls f(path).
func (f NavigatorFunc) NavigateTo(path string) {
	f(path)
}
