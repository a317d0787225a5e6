// Package auth holds the identity model of LabKeeper: roles, the
// role-to-action permission matrix, signed session tokens and helpers to
// carry the authenticated identity in a context.
package auth

import (
	"fmt"

	"github.com/dmitrijs2005/labkeeper/internal/common"
)

// Role is the access role stored with each credential. The set is open:
// unknown roles are kept as-is and simply have no permissions.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleReception Role = "recepcion"
	RoleLab       Role = "lab"
	RoleMedic     Role = "medico"
)

// Action is an operation guarded by a role check.
type Action string

const (
	ActionCreateOrder    Action = "create_order"
	ActionCaptureResults Action = "capture_results"
	ActionViewRecords    Action = "view_records"
	ActionManageUsers    Action = "manage_users"
)

var permissions = map[Action][]Role{
	ActionCreateOrder:    {RoleReception, RoleAdmin},
	ActionCaptureResults: {RoleLab, RoleMedic, RoleAdmin},
	ActionViewRecords:    {RoleAdmin, RoleReception, RoleLab, RoleMedic},
	ActionManageUsers:    {RoleAdmin},
}

// Can reports whether role is allowed to perform action.
func (r Role) Can(action Action) bool {
	for _, allowed := range permissions[action] {
		if allowed == r {
			return true
		}
	}
	return false
}

// Authorize returns common.ErrForbidden when role may not perform action.
func Authorize(role Role, action Action) error {
	if !role.Can(action) {
		return fmt.Errorf("%w: role %q cannot %s", common.ErrForbidden, role, action)
	}
	return nil
}
