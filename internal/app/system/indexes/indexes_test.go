package indexes_test

import (
	"testing"

	"github.com/dalemusser/taskboard/internal/app/system/indexes"
	"github.com/dalemusser/taskboard/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":           {"uniq_users_email", "idx_users_nameci__id"},
		"project_members": {"uniq_pm_project_user", "idx_pm_user"},
		"permissions":     {"uniq_perm_member_status", "idx_perm_project", "idx_perm_status"},
		"statuses":        {"uniq_status_project_slug", "idx_status_project_position"},
		"tasks":           {"idx_tasks_project_created", "idx_tasks_status", "text_tasks_title_description"},
		"comments":        {"idx_comments_task_created"},
		"project_invites": {"uniq_invites_code"},
	}

	for coll, names := range expected {
		t.Run(coll, func(t *testing.T) {
			cur, err := db.Collection(coll).Indexes().List(ctx)
			if err != nil {
				t.Fatalf("List indexes failed: %v", err)
			}
			defer cur.Close(ctx)

			have := make(map[string]bool)
			for cur.Next(ctx) {
				var idx bson.M
				if err := cur.Decode(&idx); err != nil {
					continue
				}
				if name, ok := idx["name"].(string); ok {
					have[name] = true
				}
			}
			for _, name := range names {
				if !have[name] {
					t.Errorf("expected index %q on %s", name, coll)
				}
			}
		})
	}
}

func TestEnsureAll_DefaultPermissionRowIsUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	memberID := primitive.NewObjectID()
	row := bson.M{"project_member_id": memberID, "status_id": nil, "can_read": true}
	if _, err := db.Collection("permissions").InsertOne(ctx, row); err != nil {
		t.Fatalf("insert default row: %v", err)
	}
	if _, err := db.Collection("permissions").InsertOne(ctx, bson.M{"project_member_id": memberID, "status_id": nil}); err == nil {
		t.Error("expected duplicate key error for a second default row")
	}
}

func TestEnsureAll_UniqueSlugPerProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()
	coll := db.Collection("statuses")
	if _, err := coll.InsertOne(ctx, bson.M{"project_id": p1, "slug": "todo"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := coll.InsertOne(ctx, bson.M{"project_id": p2, "slug": "todo"}); err != nil {
		t.Errorf("same slug in another project should be allowed: %v", err)
	}
	if _, err := coll.InsertOne(ctx, bson.M{"project_id": p1, "slug": "todo"}); err == nil {
		t.Error("expected duplicate key error for repeated slug in one project")
	}
}
