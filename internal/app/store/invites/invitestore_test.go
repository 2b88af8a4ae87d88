package invitestore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	invitestore "github.com/dalemusser/taskboard/internal/app/store/invites"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/dalemusser/taskboard/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(n int) *int { return &n }

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	inv, err := store.Create(ctx, models.Invite{ProjectID: primitive.NewObjectID(), Role: models.RoleMember, UsedCount: 7})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if inv.Code == "" || inv.UsedCount != 0 {
		t.Errorf("unexpected invite: %+v", inv)
	}

	if _, err := store.Create(ctx, models.Invite{Role: models.RoleOwner}); !errors.Is(err, authz.ErrInvalidRoleAssignment) {
		t.Errorf("owner invite: expected ErrInvalidRoleAssignment, got %v", err)
	}
	if _, err := store.Create(ctx, models.Invite{Role: models.RoleViewer, MaxUses: intPtr(0)}); err == nil {
		t.Error("expected error for max_uses 0")
	}
}

func TestStore_Redeem(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	projectID := primitive.NewObjectID()
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	unlimited, _ := store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleViewer, ExpiresAt: &future})
	once, _ := store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleMember, MaxUses: intPtr(1)})
	expired, _ := store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleMember, ExpiresAt: &past})

	for i := 0; i < 3; i++ {
		if _, err := store.Redeem(ctx, unlimited.Code); err != nil {
			t.Fatalf("unlimited redeem %d: %v", i, err)
		}
	}

	got, err := store.Redeem(ctx, once.Code)
	if err != nil {
		t.Fatalf("single-use redeem failed: %v", err)
	}
	if got.UsedCount != 1 {
		t.Errorf("used_count: got %d, want 1", got.UsedCount)
	}
	if _, err := store.Redeem(ctx, once.Code); !errors.Is(err, authz.ErrInviteExhausted) {
		t.Errorf("expected ErrInviteExhausted, got %v", err)
	}

	if _, err := store.Redeem(ctx, expired.Code); !errors.Is(err, authz.ErrInviteExpired) {
		t.Errorf("expected ErrInviteExpired, got %v", err)
	}
	if _, err := store.Redeem(ctx, "no-such-code"); !errors.Is(err, authz.ErrInviteInvalid) {
		t.Errorf("expected ErrInviteInvalid, got %v", err)
	}

	if err := store.Release(ctx, once.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := store.Redeem(ctx, once.Code); err != nil {
		t.Errorf("redeem after release: %v", err)
	}
}

// Concurrent redemptions never push used_count past max_uses.
func TestStore_Redeem_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	const maxUses, workers = 3, 20
	inv, err := store.Create(ctx, models.Invite{ProjectID: primitive.NewObjectID(), Role: models.RoleViewer, MaxUses: intPtr(maxUses)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		exhausted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Redeem(ctx, inv.Code)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, authz.ErrInviteExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != maxUses {
		t.Errorf("successful redemptions: got %d, want %d", ok, maxUses)
	}
	if exhausted != workers-maxUses {
		t.Errorf("exhausted: got %d, want %d", exhausted, workers-maxUses)
	}
	got, err := store.GetByCode(ctx, inv.Code)
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if got.UsedCount != maxUses {
		t.Errorf("used_count: got %d, want %d", got.UsedCount, maxUses)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	projectID := primitive.NewObjectID()
	a, _ := store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleViewer})
	store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleAdmin})

	list, err := store.ListByProject(ctx, projectID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByProject: got %d, %v", len(list), err)
	}

	if _, err := store.Delete(ctx, primitive.NewObjectID(), a.ID); !errors.Is(err, invitestore.ErrNotFound) {
		t.Errorf("delete from other project: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Delete(ctx, projectID, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	n, err := store.DeleteByProject(ctx, projectID)
	if err != nil || n != 1 {
		t.Errorf("DeleteByProject: got %d, %v", n, err)
	}
}

func TestStore_DeleteSpent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	projectID := primitive.NewObjectID()
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	expired, _ := store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleMember, ExpiresAt: &past})
	usedUp, _ := store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleMember, MaxUses: intPtr(1)})
	partly, _ := store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleMember, MaxUses: intPtr(2)})
	open, _ := store.Create(ctx, models.Invite{ProjectID: projectID, Role: models.RoleViewer, ExpiresAt: &future})
	for _, code := range []string{usedUp.Code, partly.Code, open.Code} {
		if _, err := store.Redeem(ctx, code); err != nil {
			t.Fatalf("Redeem %s: %v", code, err)
		}
	}

	// Nothing is old enough yet.
	n, err := store.DeleteSpent(ctx, time.Now().UTC().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("DeleteSpent failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 deleted with an old cutoff, got %d", n)
	}

	n, err = store.DeleteSpent(ctx, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("DeleteSpent failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}

	for _, code := range []string{expired.Code, usedUp.Code} {
		if _, err := store.GetByCode(ctx, code); !errors.Is(err, invitestore.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", code, err)
		}
	}
	for _, code := range []string{partly.Code, open.Code} {
		if _, err := store.GetByCode(ctx, code); err != nil {
			t.Errorf("%s should survive: %v", code, err)
		}
	}
}
