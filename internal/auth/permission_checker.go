package auth

import "github.com/frahmantamala/gatepass/internal/core/user"

type RoleChecker interface {
	HasAnyRole(role user.Role, allowed []user.Role) bool
	IsAdmin(role user.Role) bool
	IsApprover(role user.Role) bool
	CanViewApproved(role user.Role) bool
}

type DefaultRoleChecker struct{}

func NewRoleChecker() RoleChecker {
	return &DefaultRoleChecker{}
}

func (c *DefaultRoleChecker) HasAnyRole(role user.Role, allowed []user.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func (c *DefaultRoleChecker) IsAdmin(role user.Role) bool {
	return role == user.RoleAdmin
}

func (c *DefaultRoleChecker) IsApprover(role user.Role) bool {
	return role.IsApprover()
}

func (c *DefaultRoleChecker) CanViewApproved(role user.Role) bool {
	return c.HasAnyRole(role, []user.Role{user.RoleSecurity, user.RoleAdmin})
}
