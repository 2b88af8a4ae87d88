package authz_test

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Email: The address users type to log in

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	_, _, ok := authz.UserCtx(req)
	if ok {
		t.Error("expected ok=false when no user in context")
	}
}

func TestUserCtx_ValidUser(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: id.Hex(), Name: "Ada"})

	actor, name, ok := authz.UserCtx(req)
	if !ok {
		t.Fatal("expected ok=true for valid user")
	}
	if actor.UserID != id {
		t.Errorf("UserID: got %s, want %s", actor.UserID.Hex(), id.Hex())
	}
	if actor.GlobalAdmin {
		t.Error("expected GlobalAdmin=false")
	}
	if name != "Ada" {
		t.Errorf("name: got %q, want %q", name, "Ada")
	}
}

func TestUserCtx_MalformedID_FailsClosed(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "not-an-object-id", IsGlobalAdmin: true})

	if _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected ok=false for malformed user ID")
	}
}

func TestIsGlobalAdmin(t *testing.T) {
	tests := []struct {
		name string
		user *auth.SessionUser
		want bool
	}{
		{"no user", nil, false},
		{"regular user", &auth.SessionUser{ID: primitive.NewObjectID().Hex()}, false},
		{"global admin", &auth.SessionUser{ID: primitive.NewObjectID().Hex(), IsGlobalAdmin: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.user != nil {
				req = auth.WithTestUser(req, tt.user)
			}
			if got := authz.IsGlobalAdmin(req); got != tt.want {
				t.Errorf("IsGlobalAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}
