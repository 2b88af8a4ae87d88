package authz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memSource is an in-memory authz.Source that counts permission loads.
type memSource struct {
	members   []models.ProjectMember
	perms     []models.Permission
	permLoads int
	err       error
}

func (s *memSource) FindMembership(_ context.Context, projectID, userID primitive.ObjectID) (*models.ProjectMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.members {
		if s.members[i].ProjectID == projectID && s.members[i].UserID == userID {
			m := s.members[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (s *memSource) ListPermissions(_ context.Context, memberID primitive.ObjectID) ([]models.Permission, error) {
	s.permLoads++
	var out []models.Permission
	for _, p := range s.perms {
		if p.ProjectMemberID == memberID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memSource) addMember(projectID, userID primitive.ObjectID, role models.Role) models.ProjectMember {
	m := models.ProjectMember{ID: primitive.NewObjectID(), ProjectID: projectID, UserID: userID, Role: role}
	s.members = append(s.members, m)
	return m
}

func (s *memSource) grant(m models.ProjectMember, statusID *primitive.ObjectID, g authz.Grant) {
	s.perms = append(s.perms, models.Permission{
		ID:              primitive.NewObjectID(),
		ProjectMemberID: m.ID,
		ProjectID:       m.ProjectID,
		StatusID:        statusID,
		CanRead:         g.Read,
		CanCreate:       g.Create,
		CanEdit:         g.Edit,
		CanDelete:       g.Delete,
	})
}

func oid() *primitive.ObjectID {
	id := primitive.NewObjectID()
	return &id
}

var allActions = []authz.Action{authz.ActionRead, authz.ActionCreate, authz.ActionEdit, authz.ActionDelete}

func TestResolve_NonMemberDenied(t *testing.T) {
	src := &memSource{}
	r := authz.NewResolver(src)

	mc, err := r.Resolve(context.Background(), authz.Actor{UserID: primitive.NewObjectID()}, primitive.NewObjectID())
	assert.Nil(t, mc)
	assert.ErrorIs(t, err, authz.ErrNotAMember)
}

func TestResolve_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	r := authz.NewResolver(&memSource{err: boom})

	_, err := r.Resolve(context.Background(), authz.Actor{UserID: primitive.NewObjectID()}, primitive.NewObjectID())
	assert.ErrorIs(t, err, boom)
}

func TestResolve_GlobalAdminSurvivesSourceError(t *testing.T) {
	r := authz.NewResolver(&memSource{err: errors.New("boom")})
	projectID := primitive.NewObjectID()
	admin := authz.Actor{UserID: primitive.NewObjectID(), GlobalAdmin: true}

	mc, err := r.Resolve(context.Background(), admin, projectID)
	require.NoError(t, err)
	assert.True(t, mc.GlobalAdmin)
	assert.Equal(t, models.RoleOwner, mc.Role)
	assert.False(t, mc.HasMembership())
	assert.True(t, authz.CheckPermission(mc, authz.ActionDelete, oid()).Allowed)
}

// Global admins are allowed everything, with or without a membership.
func TestGlobalAdminAllowedEverywhere(t *testing.T) {
	src := &memSource{}
	projectID := primitive.NewObjectID()
	admin := authz.Actor{UserID: primitive.NewObjectID(), GlobalAdmin: true}
	r := authz.NewResolver(src)

	mc, err := r.Resolve(context.Background(), admin, projectID)
	require.NoError(t, err)
	assert.True(t, mc.IsPrivileged())
	assert.Equal(t, models.RoleOwner, mc.Role)
	assert.False(t, mc.HasMembership())

	for _, a := range allActions {
		assert.True(t, authz.CheckPermission(mc, a, oid()).Allowed, "action %s", a)
		assert.True(t, authz.CheckPermission(mc, a, nil).Allowed, "action %s on default", a)
	}
	assert.True(t, authz.RequireRole(mc, models.RoleOwner).Allowed)
	assert.Equal(t, 0, src.permLoads)
}

func TestGlobalAdminWithViewerMembershipStillPrivileged(t *testing.T) {
	src := &memSource{}
	projectID := primitive.NewObjectID()
	uid := primitive.NewObjectID()
	m := src.addMember(projectID, uid, models.RoleViewer)
	src.grant(m, nil, authz.Grant{})

	mc, err := authz.NewResolver(src).Resolve(context.Background(), authz.Actor{UserID: uid, GlobalAdmin: true}, projectID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, mc.MemberID)
	assert.True(t, authz.CheckPermission(mc, authz.ActionDelete, oid()).Allowed)
}

// Owner and admin ignore any stray permission rows.
func TestPrivilegedRolesIgnoreRows(t *testing.T) {
	for _, role := range []models.Role{models.RoleOwner, models.RoleAdmin} {
		t.Run(string(role), func(t *testing.T) {
			src := &memSource{}
			projectID := primitive.NewObjectID()
			uid := primitive.NewObjectID()
			m := src.addMember(projectID, uid, role)
			status := oid()
			src.grant(m, status, authz.Grant{})
			src.grant(m, nil, authz.Grant{})

			mc, err := authz.NewResolver(src).Resolve(context.Background(), authz.Actor{UserID: uid}, projectID)
			require.NoError(t, err)
			assert.Equal(t, 0, src.permLoads, "privileged roles must not load rows")
			for _, a := range allActions {
				assert.True(t, authz.CheckPermission(mc, a, status).Allowed)
			}
			assert.Equal(t, authz.FullGrant, mc.Effective(status))
		})
	}
}

// A status-specific row wins over the default, never merged.
func TestStatusRowOverridesDefault(t *testing.T) {
	src := &memSource{}
	projectID := primitive.NewObjectID()
	uid := primitive.NewObjectID()
	m := src.addMember(projectID, uid, models.RoleMember)
	done := oid()
	src.grant(m, nil, authz.FullGrant)
	src.grant(m, done, authz.Grant{Read: true})

	mc, err := authz.NewResolver(src).Resolve(context.Background(), authz.Actor{UserID: uid}, projectID)
	require.NoError(t, err)

	assert.True(t, authz.CheckPermission(mc, authz.ActionRead, done).Allowed)
	d := authz.CheckPermission(mc, authz.ActionDelete, done)
	assert.False(t, d.Allowed)
	assert.ErrorIs(t, d.Err(), authz.ErrActionNotGranted)

	other := oid()
	assert.True(t, authz.CheckPermission(mc, authz.ActionDelete, other).Allowed)
}

// Default applies when no status row exists.
func TestDefaultRowFallback(t *testing.T) {
	src := &memSource{}
	projectID := primitive.NewObjectID()
	uid := primitive.NewObjectID()
	m := src.addMember(projectID, uid, models.RoleMember)
	src.grant(m, nil, authz.Grant{Read: true, Create: true})

	mc, err := authz.NewResolver(src).Resolve(context.Background(), authz.Actor{UserID: uid}, projectID)
	require.NoError(t, err)

	s := oid()
	assert.True(t, authz.CheckPermission(mc, authz.ActionCreate, s).Allowed)
	d := authz.CheckPermission(mc, authz.ActionEdit, s)
	assert.ErrorIs(t, d.Err(), authz.ErrActionNotGranted)
}

// No row at all denies with NoPermissionRecord.
func TestNoRowsDenied(t *testing.T) {
	src := &memSource{}
	projectID := primitive.NewObjectID()
	uid := primitive.NewObjectID()
	m := src.addMember(projectID, uid, models.RoleViewer)
	src.grant(m, oid(), authz.FullGrant)

	mc, err := authz.NewResolver(src).Resolve(context.Background(), authz.Actor{UserID: uid}, projectID)
	require.NoError(t, err)

	for _, a := range allActions {
		d := authz.CheckPermission(mc, a, oid())
		assert.False(t, d.Allowed)
		assert.ErrorIs(t, d.Err(), authz.ErrNoPermissionRecord)
	}
	assert.Equal(t, authz.Grant{}, mc.Effective(oid()))
}

func TestTransitionNeedsEditOnSourceAndCreateOnTarget(t *testing.T) {
	from, to := primitive.NewObjectID(), primitive.NewObjectID()
	base := models.ProjectMember{ID: primitive.NewObjectID(), ProjectID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Role: models.RoleMember}
	row := func(s primitive.ObjectID, g authz.Grant) models.Permission {
		return models.Permission{ProjectMemberID: base.ID, StatusID: &s, CanRead: g.Read, CanCreate: g.Create, CanEdit: g.Edit, CanDelete: g.Delete}
	}

	tests := []struct {
		name    string
		rows    []models.Permission
		allowed bool
		reason  error
	}{
		{"edit and create", []models.Permission{row(from, authz.Grant{Edit: true}), row(to, authz.Grant{Create: true})}, true, nil},
		{"no edit on source", []models.Permission{row(from, authz.Grant{Read: true}), row(to, authz.Grant{Create: true})}, false, authz.ErrActionNotGranted},
		{"no create on target", []models.Permission{row(from, authz.Grant{Edit: true}), row(to, authz.Grant{Edit: true})}, false, authz.ErrActionNotGranted},
		{"no row on target", []models.Permission{row(from, authz.Grant{Edit: true})}, false, authz.ErrNoPermissionRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := authz.NewContext(base, tt.rows)
			d := authz.CheckTransition(mc, from, to)
			assert.Equal(t, tt.allowed, d.Allowed)
			if tt.reason != nil {
				assert.ErrorIs(t, d.Err(), tt.reason)
			} else {
				assert.NoError(t, d.Err())
			}
		})
	}
}

func TestFilterReadable(t *testing.T) {
	type task struct {
		name   string
		status primitive.ObjectID
	}
	open, hidden := primitive.NewObjectID(), primitive.NewObjectID()
	m := models.ProjectMember{ID: primitive.NewObjectID(), Role: models.RoleViewer}
	mc := authz.NewContext(m, []models.Permission{
		{ProjectMemberID: m.ID, CanRead: true},
		{ProjectMemberID: m.ID, StatusID: &hidden},
	})

	tasks := []task{{"a", open}, {"b", hidden}, {"c", open}}
	got := authz.FilterReadable(mc, tasks, func(t task) primitive.ObjectID { return t.status })

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].name)
	assert.Equal(t, "c", got[1].name)

	assert.Nil(t, authz.FilterReadable[task](nil, tasks, func(t task) primitive.ObjectID { return t.status }))
}

func TestRequireRole(t *testing.T) {
	mk := func(r models.Role) *authz.MembershipContext {
		return authz.NewContext(models.ProjectMember{ID: primitive.NewObjectID(), Role: r}, nil)
	}

	assert.True(t, authz.RequireRole(mk(models.RoleOwner), models.RoleOwner, models.RoleAdmin).Allowed)
	assert.True(t, authz.RequireRole(mk(models.RoleAdmin), models.RoleOwner, models.RoleAdmin).Allowed)
	assert.ErrorIs(t, authz.RequireRole(mk(models.RoleAdmin), models.RoleOwner).Err(), authz.ErrInsufficientRole)
	assert.ErrorIs(t, authz.RequireRole(mk(models.RoleMember), models.RoleOwner, models.RoleAdmin).Err(), authz.ErrInsufficientRole)
	assert.ErrorIs(t, authz.RequireRole(nil, models.RoleOwner).Err(), authz.ErrNotAMember)
}

func TestCheckInvite(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	one, two := 1, 2

	tests := []struct {
		name string
		inv  *models.Invite
		want error
	}{
		{"nil invite", nil, authz.ErrInviteInvalid},
		{"unlimited", &models.Invite{}, nil},
		{"expired", &models.Invite{ExpiresAt: &past}, authz.ErrInviteExpired},
		{"expires exactly now", &models.Invite{ExpiresAt: &now}, authz.ErrInviteExpired},
		{"not yet expired", &models.Invite{ExpiresAt: &future}, nil},
		{"exhausted", &models.Invite{MaxUses: &one, UsedCount: 1}, authz.ErrInviteExhausted},
		{"one use left", &models.Invite{MaxUses: &two, UsedCount: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.CheckInvite(tt.inv, now)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

// The three walkthroughs from the product brief.
func TestScenarios(t *testing.T) {
	todo, inProgress, done := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	t.Run("viewer with default read can list but not create", func(t *testing.T) {
		m := models.ProjectMember{ID: primitive.NewObjectID(), Role: models.RoleViewer}
		mc := authz.NewContext(m, []models.Permission{{ProjectMemberID: m.ID, CanRead: true}})

		assert.True(t, authz.CheckPermission(mc, authz.ActionRead, &todo).Allowed)
		assert.ErrorIs(t, authz.CheckPermission(mc, authz.ActionCreate, &todo).Err(), authz.ErrActionNotGranted)
	})

	t.Run("member restricted on done cannot move into it", func(t *testing.T) {
		m := models.ProjectMember{ID: primitive.NewObjectID(), Role: models.RoleMember}
		mc := authz.NewContext(m, []models.Permission{
			{ProjectMemberID: m.ID, CanRead: true, CanCreate: true, CanEdit: true},
			{ProjectMemberID: m.ID, StatusID: &done, CanRead: true},
		})

		assert.True(t, authz.CheckTransition(mc, todo, inProgress).Allowed)
		assert.ErrorIs(t, authz.CheckTransition(mc, inProgress, done).Err(), authz.ErrActionNotGranted)
	})

	t.Run("admin with stray rows is unaffected", func(t *testing.T) {
		m := models.ProjectMember{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
		mc := authz.NewContext(m, []models.Permission{{ProjectMemberID: m.ID, StatusID: &done}})

		assert.True(t, authz.CheckPermission(mc, authz.ActionDelete, &done).Allowed)
	})
}
