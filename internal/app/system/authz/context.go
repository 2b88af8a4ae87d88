package authz

import (
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipContext is the resolved view of one actor in one project.
// It is built once per request and never mutated afterwards.
type MembershipContext struct {
	ProjectID primitive.ObjectID
	UserID    primitive.ObjectID
	// MemberID is the ProjectMember _id. It is zero for the synthetic
	// context of a global admin who has no real membership.
	MemberID    primitive.ObjectID
	Role        models.Role
	GlobalAdmin bool

	perms PermissionIndex
}

// IsPrivileged reports whether per-status rows are bypassed.
func (mc *MembershipContext) IsPrivileged() bool {
	return mc.GlobalAdmin || mc.Role.IsPrivileged()
}

// HasMembership reports whether a real ProjectMember row backs the context.
func (mc *MembershipContext) HasMembership() bool {
	return !mc.MemberID.IsZero()
}

// Effective returns the flags that apply to statusID. Privileged contexts
// get everything; a constrained context with no applicable row gets nothing.
func (mc *MembershipContext) Effective(statusID *primitive.ObjectID) Grant {
	if mc.IsPrivileged() {
		return FullGrant
	}
	g, _ := mc.perms.Lookup(statusID)
	return g
}

// globalAdminContext is the synthetic owner context for a global admin.
func globalAdminContext(actor Actor, projectID primitive.ObjectID, m *models.ProjectMember) *MembershipContext {
	mc := &MembershipContext{
		ProjectID:   projectID,
		UserID:      actor.UserID,
		Role:        models.RoleOwner,
		GlobalAdmin: true,
		perms:       PermissionIndex{fallback: &FullGrant},
	}
	if m != nil {
		mc.MemberID = m.ID
	}
	return mc
}

// NewContext assembles a context directly from a membership and its rows.
// Handlers go through Resolver; this exists for callers that already hold
// the rows, such as tests and bulk listings.
func NewContext(m models.ProjectMember, rows []models.Permission) *MembershipContext {
	mc := &MembershipContext{
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		MemberID:  m.ID,
		Role:      m.Role,
	}
	if !m.Role.IsPrivileged() {
		mc.perms = NewPermissionIndex(rows)
	}
	return mc
}
