// Package memberpolicy holds the role lifecycle rules for project members.
//
// Rules:
//   - Only the owner, an admin, or a global admin manages members.
//   - The owner membership is never changed or removed, and owner is never assigned.
//   - Only the owner or a global admin acts on an admin.
//   - Member and viewer rows start from a role default; admins have no rows.
package memberpolicy

import (
	"errors"

	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrPrivilegedTarget: permission rows were edited for an owner or admin.
var ErrPrivilegedTarget = errors.New("cannot set permissions for owner or admin")

// CanManage reports whether mc may add, remove, or re-role members and
// create invites.
func CanManage(mc *authz.MembershipContext) error {
	return authz.RequireRole(mc, models.RoleOwner, models.RoleAdmin).Err()
}

// CheckAssignable rejects roles that can never be granted.
func CheckAssignable(role models.Role) error {
	if !role.IsAssignable() {
		return authz.ErrInvalidRoleAssignment
	}
	return nil
}

// canActOn enforces the owner and admin-on-admin guards.
func canActOn(mc *authz.MembershipContext, target models.ProjectMember) error {
	if err := CanManage(mc); err != nil {
		return err
	}
	if target.Role == models.RoleOwner {
		return authz.ErrInvalidRoleAssignment
	}
	if target.Role == models.RoleAdmin && !mc.GlobalAdmin && mc.Role != models.RoleOwner {
		return authz.ErrInvalidRoleAssignment
	}
	return nil
}

// CanAdd reports whether mc may add a member with role.
func CanAdd(mc *authz.MembershipContext, role models.Role) error {
	if err := CanManage(mc); err != nil {
		return err
	}
	return CheckAssignable(role)
}

// CanChangeRole reports whether mc may move target to role.
func CanChangeRole(mc *authz.MembershipContext, target models.ProjectMember, role models.Role) error {
	if err := canActOn(mc, target); err != nil {
		return err
	}
	return CheckAssignable(role)
}

// CanRemove reports whether mc may remove target from the project.
func CanRemove(mc *authz.MembershipContext, target models.ProjectMember) error {
	return canActOn(mc, target)
}

// CanEditPermissions reports whether mc may replace target's rows. Owner
// and admin targets are refused with ErrPrivilegedTarget since their rows
// would be ignored.
func CanEditPermissions(mc *authz.MembershipContext, target models.ProjectMember) error {
	if err := CanManage(mc); err != nil {
		return err
	}
	if target.Role.IsPrivileged() {
		return ErrPrivilegedTarget
	}
	return nil
}

// DefaultPermissions returns the rows a member of role starts with: a
// single default row for member and viewer, nothing for privileged roles.
func DefaultPermissions(role models.Role) []models.Permission {
	switch role {
	case models.RoleViewer:
		return []models.Permission{{CanRead: true}}
	case models.RoleMember:
		return []models.Permission{{CanRead: true, CanCreate: true, CanEdit: true}}
	}
	return nil
}

// PermissionInput is one requested row. Unset flags take the defaults
// applied by Normalize.
type PermissionInput struct {
	StatusID  *primitive.ObjectID `json:"status_id"`
	CanRead   *bool               `json:"can_read"`
	CanCreate *bool               `json:"can_create"`
	CanEdit   *bool               `json:"can_edit"`
	CanDelete *bool               `json:"can_delete"`
}

// Normalize converts requested rows into stored rows. Unspecified read
// defaults to true and the other flags to false.
func Normalize(in []PermissionInput) []models.Permission {
	out := make([]models.Permission, len(in))
	for i, p := range in {
		out[i] = models.Permission{
			StatusID:  p.StatusID,
			CanRead:   boolOr(p.CanRead, true),
			CanCreate: boolOr(p.CanCreate, false),
			CanEdit:   boolOr(p.CanEdit, false),
			CanDelete: boolOr(p.CanDelete, false),
		}
	}
	return out
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
