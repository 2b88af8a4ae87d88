// internal/domain/models/projectmember.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a user's role inside one project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// ParseRole converts user input to a Role. The boolean is false for
// anything outside the closed set.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// IsValid reports whether r is one of the four project roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// IsPrivileged reports whether r bypasses per-status permission rows.
func (r Role) IsPrivileged() bool {
	return r == RoleOwner || r == RoleAdmin
}

// IsAssignable reports whether r may be granted through add-member,
// update-role, or an invite. Owner is never assignable.
func (r Role) IsAssignable() bool {
	return r == RoleAdmin || r == RoleMember || r == RoleViewer
}

// ProjectMember binds one user to one project with one role.
// (project_id, user_id) is unique.
type ProjectMember struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role      Role               `bson:"role" json:"role"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
