package domain

// Role is the fixed application role enum. Roles are assigned at profile
// creation and are not self-service-changeable.
type Role string

const (
	// RoleSuperAdmin is the platform operator.
	RoleSuperAdmin Role = "superadmin"
	// RoleCliente is a paying tenant owner (may own multiple churches).
	RoleCliente Role = "cliente"
	// RoleAdminIgreja is a church-level administrator scoped to one church.
	RoleAdminIgreja Role = "admin_igreja"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCliente, RoleAdminIgreja:
		return true
	}
	return false
}

// UserProfile is the application-level user record, one-to-one with the
// auth-provider identity by id (row in the "usuarios" table).
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	ClienteID string `json:"cliente_id,omitempty"`
	IgrejaID  string `json:"igreja_id,omitempty"`
	Nome      string `json:"nome,omitempty"`
	Ativo     bool   `json:"ativo"`
}
