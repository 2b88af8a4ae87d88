package permissionstore_test

import (
	"errors"
	"testing"

	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/dalemusser/taskboard/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_ReplaceForMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := permissionstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := fixtures.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	user := fixtures.CreateUser(ctx, "User", "user@example.com")
	board := fixtures.CreateProject(ctx, "Board", owner.ID)
	m := fixtures.AddMember(ctx, board.Project.ID, user.ID, models.RoleMember)
	fixtures.GrantPermission(ctx, m, nil, true, true, true, false)

	done := board.Statuses[2].ID
	rows, err := store.ReplaceForMember(ctx, m, []models.Permission{
		{StatusID: nil, CanRead: true},
		{StatusID: &done, CanRead: true, CanEdit: true},
	})
	if err != nil {
		t.Fatalf("ReplaceForMember failed: %v", err)
	}
	if len(rows) != 2 || rows[0].ProjectMemberID != m.ID || rows[1].ProjectID != board.Project.ID {
		t.Errorf("rows not stamped: %+v", rows)
	}

	got, err := store.ListPermissions(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListPermissions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows after replace, got %d", len(got))
	}
	if got[0].StatusID != nil || got[0].CanCreate {
		t.Errorf("default row should be replaced with read-only, got %+v", got[0])
	}
}

func TestStore_ReplaceForMember_DuplicateKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := permissionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m := models.ProjectMember{ID: primitive.NewObjectID(), ProjectID: primitive.NewObjectID()}
	sid := primitive.NewObjectID()

	cases := map[string][]models.Permission{
		"two defaults":   {{CanRead: true}, {CanRead: false}},
		"same status x2": {{StatusID: &sid}, {StatusID: &sid, CanRead: true}},
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := store.ReplaceForMember(ctx, m, rows); !errors.Is(err, permissionstore.ErrDuplicateKey) {
				t.Errorf("expected ErrDuplicateKey, got %v", err)
			}
		})
	}
}

func TestStore_Deletes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := permissionstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	u1 := fixtures.CreateUser(ctx, "U1", "u1@example.com")
	u2 := fixtures.CreateUser(ctx, "U2", "u2@example.com")
	board := fixtures.CreateProject(ctx, "Board", owner.ID)
	m1 := fixtures.AddMember(ctx, board.Project.ID, u1.ID, models.RoleViewer)
	m2 := fixtures.AddMember(ctx, board.Project.ID, u2.ID, models.RoleViewer)
	todo := board.Statuses[0].ID

	fixtures.GrantPermission(ctx, m1, nil, true, false, false, false)
	fixtures.GrantPermission(ctx, m1, &todo, true, true, false, false)
	fixtures.GrantPermission(ctx, m2, &todo, true, false, false, false)

	n, err := store.DeleteByStatus(ctx, todo)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByStatus: got %d, %v; want 2", n, err)
	}
	n, err = store.DeleteByMembers(ctx, []primitive.ObjectID{m1.ID, m2.ID})
	if err != nil || n != 1 {
		t.Fatalf("DeleteByMembers: got %d, %v; want 1", n, err)
	}

	fixtures.GrantPermission(ctx, m2, nil, true, false, false, false)
	n, err = store.DeleteByProject(ctx, board.Project.ID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByProject: got %d, %v; want 1", n, err)
	}
}

func TestStore_ResolvesThroughAuthz(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	user := fixtures.CreateUser(ctx, "User", "user@example.com")
	board := fixtures.CreateProject(ctx, "Board", owner.ID)
	m := fixtures.AddMember(ctx, board.Project.ID, user.ID, models.RoleViewer)
	done := board.Statuses[2].ID
	fixtures.GrantPermission(ctx, m, &done, true, false, false, false)

	resolver := authz.NewResolver(authz.JoinSource(membershipstore.New(db), permissionstore.New(db)))
	mc, err := resolver.Resolve(ctx, authz.Actor{UserID: user.ID}, board.Project.ID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !authz.CheckPermission(mc, authz.ActionRead, &done).Allowed {
		t.Error("expected read on done")
	}
	todo := board.Statuses[0].ID
	if d := authz.CheckPermission(mc, authz.ActionRead, &todo); !errors.Is(d.Err(), authz.ErrNoPermissionRecord) {
		t.Errorf("expected ErrNoPermissionRecord on todo, got %v", d.Err())
	}
}
