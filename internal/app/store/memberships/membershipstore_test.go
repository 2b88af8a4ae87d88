package membershipstore_test

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - MemberID / memberID: The ProjectMember _id, which permission rows reference

import (
	"errors"
	"testing"

	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/dalemusser/taskboard/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Add(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := fixtures.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	user := fixtures.CreateUser(ctx, "User", "user@example.com")
	board := fixtures.CreateProject(ctx, "Board", owner.ID)

	m, err := store.Add(ctx, board.Project.ID, user.ID, models.RoleViewer)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if m.ID.IsZero() || m.CreatedAt.IsZero() {
		t.Error("expected ID and CreatedAt to be set")
	}

	_, err = store.Add(ctx, board.Project.ID, user.ID, models.RoleMember)
	if !errors.Is(err, membershipstore.ErrDuplicateMembership) {
		t.Errorf("expected ErrDuplicateMembership, got %v", err)
	}

	if _, err := store.Add(ctx, board.Project.ID, primitive.NewObjectID(), models.Role("boss")); err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestStore_FindMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	board := fixtures.CreateProject(ctx, "Board", owner.ID)

	m, err := store.FindMembership(ctx, board.Project.ID, owner.ID)
	if err != nil {
		t.Fatalf("FindMembership failed: %v", err)
	}
	if m == nil || m.Role != models.RoleOwner {
		t.Fatalf("expected owner membership, got %+v", m)
	}

	m, err = store.FindMembership(ctx, board.Project.ID, primitive.NewObjectID())
	if err != nil || m != nil {
		t.Errorf("absent membership: got %+v, %v; want nil, nil", m, err)
	}
}

func TestStore_UpdateRoleAndDelete_SkipOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	user := fixtures.CreateUser(ctx, "User", "user@example.com")
	board := fixtures.CreateProject(ctx, "Board", owner.ID)
	m := fixtures.AddMember(ctx, board.Project.ID, user.ID, models.RoleViewer)

	if err := store.UpdateRole(ctx, m.ID, models.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	got, err := store.GetByID(ctx, board.Project.ID, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Role != models.RoleAdmin {
		t.Errorf("role: got %q, want admin", got.Role)
	}

	if err := store.UpdateRole(ctx, board.Owner.ID, models.RoleViewer); !errors.Is(err, membershipstore.ErrNotFound) {
		t.Errorf("owner role change: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, board.Owner.ID); !errors.Is(err, membershipstore.ErrNotFound) {
		t.Errorf("owner delete: expected ErrNotFound, got %v", err)
	}

	if err := store.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, board.Project.ID, m.ID); !errors.Is(err, membershipstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_ListAndCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	user := fixtures.CreateUser(ctx, "User", "user@example.com")
	a := fixtures.CreateProject(ctx, "A", owner.ID)
	b := fixtures.CreateProject(ctx, "B", owner.ID)
	fixtures.AddMember(ctx, a.Project.ID, user.ID, models.RoleMember)

	members, err := store.ListByProject(ctx, a.Project.ID)
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("expected 2 members in A, got %d", len(members))
	}

	mine, err := store.ListByUser(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected owner in 2 projects, got %d", len(mine))
	}

	counts, err := store.CountPerProject(ctx, []primitive.ObjectID{a.Project.ID, b.Project.ID})
	if err != nil {
		t.Fatalf("CountPerProject failed: %v", err)
	}
	if counts[a.Project.ID] != 2 || counts[b.Project.ID] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	owned, err := store.CountOwnedByUser(ctx, owner.ID)
	if err != nil || owned != 2 {
		t.Errorf("CountOwnedByUser: got %d, %v", owned, err)
	}

	n, err := store.DeleteByUser(ctx, user.ID)
	if err != nil || n != 1 {
		t.Errorf("DeleteByUser: got %d, %v", n, err)
	}
	n, err = store.DeleteByProject(ctx, b.Project.ID)
	if err != nil || n != 1 {
		t.Errorf("DeleteByProject: got %d, %v", n, err)
	}
}
