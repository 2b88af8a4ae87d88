package accounts_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/taskboard/internal/app/features/accounts"
	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/ratelimit"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/dalemusser/taskboard/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, limiter *ratelimit.LoginLimiter) (*accounts.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	h := accounts.NewHandler(db, testutil.NewSessionManager(t), limiter, uierrors.NewErrorLogger(logger), nil, logger)
	return h, testutil.NewFixtures(t, db)
}

func TestHandleRegister_FirstUserIsGlobalAdmin(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewJSONRequest("POST", "/register", map[string]string{
		"email": "First@Example.com", "password": "secret", "name": "First",
	}))
	rec.AssertStatus(t, http.StatusCreated)

	var first models.User
	rec.Decode(t, &first)
	if !first.IsGlobalAdmin {
		t.Error("first registered user should be a global admin")
	}
	if first.Email != "first@example.com" {
		t.Errorf("email should be normalized, got %q", first.Email)
	}
	rec.AssertContains(t, `"is_global_admin":true`)
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not expose the password hash")
	}

	rec = testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewJSONRequest("POST", "/register", map[string]string{
		"email": "second@example.com", "password": "secret", "name": "Second",
	}))
	rec.AssertStatus(t, http.StatusCreated)
	var second models.User
	rec.Decode(t, &second)
	if second.IsGlobalAdmin {
		t.Error("second user should not be a global admin")
	}
}

func TestHandleRegister_Rejections(t *testing.T) {
	h, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateUser(ctx, "Taken", "taken@example.com")

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"duplicate email", map[string]string{"email": "TAKEN@example.com", "password": "x", "name": "Dup"}, "Email already exists"},
		{"missing name", map[string]string{"email": "new@example.com", "password": "x"}, "Name is required."},
		{"missing password", map[string]string{"email": "new@example.com", "name": "New"}, "Password is required."},
		{"bad email", map[string]string{"email": "nope", "password": "x", "name": "New"}, "A valid email address is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleRegister(rec, testutil.NewJSONRequest("POST", "/register", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tt.want)
		})
	}
}

func TestHandleLogin(t *testing.T) {
	h, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	user := fixtures.CreateUser(ctx, "Alice", "alice@example.com")

	t.Run("success", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.NewJSONRequest("POST", "/login", map[string]string{
			"email": "ALICE@example.com", "password": testutil.FixturePassword,
		}))
		rec.AssertStatus(t, http.StatusOK)

		var resp struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		}
		rec.Decode(t, &resp)
		if resp.Token == "" {
			t.Error("expected a bearer token")
		}
		if resp.User.ID != user.ID {
			t.Errorf("user id: got %s, want %s", resp.User.ID.Hex(), user.ID.Hex())
		}
		if rec.Header().Get("Set-Cookie") == "" {
			t.Error("expected a session cookie")
		}

		sub, err := h.Sessions.Tokens().Parse(resp.Token)
		if err != nil || sub != user.ID.Hex() {
			t.Errorf("token subject: got %q, %v", sub, err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.NewJSONRequest("POST", "/login", map[string]string{
			"email": "alice@example.com", "password": "wrong",
		}))
		rec.AssertStatus(t, http.StatusUnauthorized)
		rec.AssertContains(t, "Invalid credentials")
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.NewJSONRequest("POST", "/login", map[string]string{
			"email": "ghost@example.com", "password": "whatever",
		}))
		rec.AssertStatus(t, http.StatusUnauthorized)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.NewJSONRequest("POST", "/login", map[string]string{"email": "alice@example.com"}))
		rec.AssertStatus(t, http.StatusBadRequest)
	})
}

func TestHandleLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLoginLimiter(2, time.Minute) // one attempt per email
	defer limiter.Close()
	h, fixtures := newTestHandler(t, limiter)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateUser(ctx, "Bob", "bob@example.com")

	body := map[string]string{"email": "bob@example.com", "password": "wrong"}

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest("POST", "/login", body))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest("POST", "/login", body))
	rec.AssertStatus(t, http.StatusTooManyRequests)
}

func TestServeMe(t *testing.T) {
	h, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	user := fixtures.CreateUser(ctx, "Carol", "carol@example.com")

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewAuthenticatedRequest("GET", "/me", nil, testutil.AsTestUser(user)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "carol@example.com")
}

func TestHandleUpdateUser(t *testing.T) {
	h, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := fixtures.CreateGlobalAdmin(ctx, "Admin", "admin@example.com")
	dave := fixtures.CreateUser(ctx, "Dave", "dave@example.com")
	erin := fixtures.CreateUser(ctx, "Erin", "erin@example.com")

	patch := func(actor models.User, target models.User, body map[string]any) *testutil.ResponseRecorder {
		req := testutil.NewAuthenticatedRequest("PATCH", "/users/"+target.ID.Hex(), body, testutil.AsTestUser(actor))
		req = testutil.WithChiURLParam(req, "id", target.ID.Hex())
		rec := testutil.NewRecorder()
		h.HandleUpdateUser(rec, req)
		return rec
	}

	t.Run("self rename", func(t *testing.T) {
		rec := patch(dave, dave, map[string]any{"name": "David"})
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, "David")
	})

	t.Run("other user forbidden", func(t *testing.T) {
		patch(dave, erin, map[string]any{"name": "Hacked"}).AssertStatus(t, http.StatusForbidden)
	})

	t.Run("self promotion forbidden", func(t *testing.T) {
		patch(dave, dave, map[string]any{"is_global_admin": true}).AssertStatus(t, http.StatusForbidden)
	})

	t.Run("admin promotes", func(t *testing.T) {
		rec := patch(admin, erin, map[string]any{"is_global_admin": true})
		rec.AssertStatus(t, http.StatusOK)
		u, err := userstore.New(fixtures.DB()).GetByID(ctx, erin.ID)
		if err != nil || !u.IsGlobalAdmin {
			t.Errorf("expected erin promoted: %+v, %v", u, err)
		}
	})

	t.Run("admin cannot demote self", func(t *testing.T) {
		patch(admin, admin, map[string]any{"is_global_admin": false}).AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("empty update", func(t *testing.T) {
		patch(admin, dave, map[string]any{}).AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("password change", func(t *testing.T) {
		patch(dave, dave, map[string]any{"password": "newpass"}).AssertStatus(t, http.StatusOK)
		u, _ := userstore.New(fixtures.DB()).GetByID(ctx, dave.ID)
		if !userstore.CheckPassword(u, "newpass") {
			t.Error("password was not changed")
		}
	})
}

func TestHandleDeleteUser(t *testing.T) {
	h, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fixtures.DB()

	admin := fixtures.CreateGlobalAdmin(ctx, "Admin", "admin@example.com")
	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")

	board := fixtures.CreateProject(ctx, "Roadmap", owner.ID)
	m := fixtures.AddMember(ctx, board.Project.ID, member.ID, models.RoleMember)
	fixtures.GrantPermission(ctx, m, nil, true, true, true, false)
	task := fixtures.CreateTask(ctx, board.Project.ID, board.Statuses[0].ID, owner.ID, "Assigned")
	if _, err := taskstore.New(db).Update(ctx, task.ID, taskstore.Update{AssignedTo: &member.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	del := func(target models.User) *testutil.ResponseRecorder {
		req := testutil.NewAuthenticatedRequest("DELETE", "/users/"+target.ID.Hex(), nil, testutil.AsTestUser(admin))
		req = testutil.WithChiURLParam(req, "id", target.ID.Hex())
		rec := testutil.NewRecorder()
		h.HandleDeleteUser(rec, req)
		return rec
	}

	t.Run("self", func(t *testing.T) {
		del(admin).AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("owner refused", func(t *testing.T) {
		del(owner).AssertStatus(t, http.StatusConflict)
	})

	t.Run("member removed everywhere", func(t *testing.T) {
		del(member).AssertStatus(t, http.StatusNoContent)

		if _, err := userstore.New(db).GetByID(ctx, member.ID); err != userstore.ErrNotFound {
			t.Errorf("user should be gone, got %v", err)
		}
		mem, err := membershipstore.New(db).FindMembership(ctx, board.Project.ID, member.ID)
		if err != nil || mem != nil {
			t.Errorf("membership should be gone: %+v, %v", mem, err)
		}
		rows, err := permissionstore.New(db).ListPermissions(ctx, m.ID)
		if err != nil || len(rows) != 0 {
			t.Errorf("permission rows should be gone: %d, %v", len(rows), err)
		}
		got, err := taskstore.New(db).GetByID(ctx, task.ID)
		if err != nil || got.AssignedTo != nil {
			t.Errorf("task should be unassigned: %+v, %v", got, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		del(member).AssertStatus(t, http.StatusNotFound)
	})
}
