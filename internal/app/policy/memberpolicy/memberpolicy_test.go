package memberpolicy_test

import (
	"testing"

	"github.com/dalemusser/taskboard/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ctxFor(role models.Role) *authz.MembershipContext {
	return authz.NewContext(models.ProjectMember{
		ID:     primitive.NewObjectID(),
		UserID: primitive.NewObjectID(),
		Role:   role,
	}, nil)
}

func globalAdmin() *authz.MembershipContext {
	return &authz.MembershipContext{UserID: primitive.NewObjectID(), Role: models.RoleOwner, GlobalAdmin: true}
}

func target(role models.Role) models.ProjectMember {
	return models.ProjectMember{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Role: role}
}

func TestCanAdd(t *testing.T) {
	tests := []struct {
		name  string
		actor *authz.MembershipContext
		role  models.Role
		want  error
	}{
		{"owner adds viewer", ctxFor(models.RoleOwner), models.RoleViewer, nil},
		{"admin adds admin", ctxFor(models.RoleAdmin), models.RoleAdmin, nil},
		{"global admin adds member", globalAdmin(), models.RoleMember, nil},
		{"member cannot add", ctxFor(models.RoleMember), models.RoleViewer, authz.ErrInsufficientRole},
		{"viewer cannot add", ctxFor(models.RoleViewer), models.RoleViewer, authz.ErrInsufficientRole},
		{"owner never assignable", ctxFor(models.RoleOwner), models.RoleOwner, authz.ErrInvalidRoleAssignment},
		{"global admin cannot assign owner", globalAdmin(), models.RoleOwner, authz.ErrInvalidRoleAssignment},
		{"unknown role", ctxFor(models.RoleOwner), models.Role("boss"), authz.ErrInvalidRoleAssignment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := memberpolicy.CanAdd(tt.actor, tt.role)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCanChangeRole(t *testing.T) {
	tests := []struct {
		name   string
		actor  *authz.MembershipContext
		target models.Role
		to     models.Role
		want   error
	}{
		{"owner promotes member", ctxFor(models.RoleOwner), models.RoleMember, models.RoleAdmin, nil},
		{"owner demotes admin", ctxFor(models.RoleOwner), models.RoleAdmin, models.RoleViewer, nil},
		{"admin demotes member", ctxFor(models.RoleAdmin), models.RoleMember, models.RoleViewer, nil},
		{"admin cannot demote admin", ctxFor(models.RoleAdmin), models.RoleAdmin, models.RoleMember, authz.ErrInvalidRoleAssignment},
		{"global admin demotes admin", globalAdmin(), models.RoleAdmin, models.RoleMember, nil},
		{"owner role is frozen", ctxFor(models.RoleOwner), models.RoleOwner, models.RoleAdmin, authz.ErrInvalidRoleAssignment},
		{"global admin cannot touch owner", globalAdmin(), models.RoleOwner, models.RoleMember, authz.ErrInvalidRoleAssignment},
		{"cannot promote to owner", ctxFor(models.RoleOwner), models.RoleAdmin, models.RoleOwner, authz.ErrInvalidRoleAssignment},
		{"member cannot change roles", ctxFor(models.RoleMember), models.RoleViewer, models.RoleMember, authz.ErrInsufficientRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := memberpolicy.CanChangeRole(tt.actor, target(tt.target), tt.to)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCanRemove(t *testing.T) {
	assert.NoError(t, memberpolicy.CanRemove(ctxFor(models.RoleAdmin), target(models.RoleViewer)))
	assert.NoError(t, memberpolicy.CanRemove(ctxFor(models.RoleOwner), target(models.RoleAdmin)))
	assert.ErrorIs(t, memberpolicy.CanRemove(ctxFor(models.RoleAdmin), target(models.RoleAdmin)), authz.ErrInvalidRoleAssignment)
	assert.ErrorIs(t, memberpolicy.CanRemove(globalAdmin(), target(models.RoleOwner)), authz.ErrInvalidRoleAssignment)
	assert.ErrorIs(t, memberpolicy.CanRemove(ctxFor(models.RoleViewer), target(models.RoleViewer)), authz.ErrInsufficientRole)
}

func TestCanEditPermissions(t *testing.T) {
	assert.NoError(t, memberpolicy.CanEditPermissions(ctxFor(models.RoleAdmin), target(models.RoleMember)))
	assert.NoError(t, memberpolicy.CanEditPermissions(ctxFor(models.RoleOwner), target(models.RoleViewer)))
	assert.ErrorIs(t, memberpolicy.CanEditPermissions(ctxFor(models.RoleOwner), target(models.RoleAdmin)), memberpolicy.ErrPrivilegedTarget)
	assert.ErrorIs(t, memberpolicy.CanEditPermissions(globalAdmin(), target(models.RoleOwner)), memberpolicy.ErrPrivilegedTarget)
	assert.ErrorIs(t, memberpolicy.CanEditPermissions(ctxFor(models.RoleMember), target(models.RoleViewer)), authz.ErrInsufficientRole)
}

func TestDefaultPermissions(t *testing.T) {
	viewer := memberpolicy.DefaultPermissions(models.RoleViewer)
	if assert.Len(t, viewer, 1) {
		assert.Nil(t, viewer[0].StatusID)
		assert.Equal(t, authz.Grant{Read: true}, authz.GrantOf(viewer[0]))
	}

	member := memberpolicy.DefaultPermissions(models.RoleMember)
	if assert.Len(t, member, 1) {
		assert.Equal(t, authz.Grant{Read: true, Create: true, Edit: true}, authz.GrantOf(member[0]))
	}

	assert.Empty(t, memberpolicy.DefaultPermissions(models.RoleAdmin))
	assert.Empty(t, memberpolicy.DefaultPermissions(models.RoleOwner))
}

func TestNormalize(t *testing.T) {
	yes, no := true, false
	sid := primitive.NewObjectID()

	rows := memberpolicy.Normalize([]memberpolicy.PermissionInput{
		{},
		{StatusID: &sid, CanRead: &no, CanDelete: &yes},
	})

	assert.Len(t, rows, 2)
	assert.Equal(t, authz.Grant{Read: true}, authz.GrantOf(rows[0]))
	assert.Nil(t, rows[0].StatusID)
	assert.Equal(t, authz.Grant{Delete: true}, authz.GrantOf(rows[1]))
	assert.Equal(t, &sid, rows[1].StatusID)
}
