package comments_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/taskboard/internal/app/features/comments"
	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	commentstore "github.com/dalemusser/taskboard/internal/app/store/comments"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/dalemusser/taskboard/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type env struct {
	router   chi.Router
	fixtures *testutil.Fixtures
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := comments.NewHandler(db, testutil.NewGate(db), uierrors.NewErrorLogger(logger), logger)
	sm := testutil.NewSessionManager(t)

	r := chi.NewRouter()
	r.Mount("/tasks/{taskID}/comments", comments.TaskRoutes(h, sm))
	r.Mount("/comments", comments.ItemRoutes(h, sm))
	return env{router: r, fixtures: testutil.NewFixtures(t, db)}
}

func (e env) do(method, target string, body any, user models.User) *testutil.ResponseRecorder {
	return testutil.Serve(e.router, testutil.NewAuthenticatedRequest(method, target, body, testutil.AsTestUser(user)))
}

type commentJSON struct {
	ID       string `json:"id"`
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

func TestListAndCreate(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := e.fixtures.CreateUser(ctx, "Alice", "alice@example.com")
	bob := e.fixtures.CreateUser(ctx, "Bob", "bob@example.com")
	b := e.fixtures.CreateProject(ctx, "Board", alice.ID)
	m := e.fixtures.AddMember(ctx, b.Project.ID, bob.ID, models.RoleViewer)
	done := b.Statuses[2].ID
	e.fixtures.GrantPermission(ctx, m, nil, true, false, false, false)
	e.fixtures.GrantPermission(ctx, m, &done, false, false, false, false)

	open := e.fixtures.CreateTask(ctx, b.Project.ID, b.Statuses[0].ID, alice.ID, "Open")
	hidden := e.fixtures.CreateTask(ctx, b.Project.ID, done, alice.ID, "Hidden")
	e.fixtures.CreateComment(ctx, open, alice.ID, "first")

	url := "/tasks/" + open.ID.Hex() + "/comments"

	rec := e.do("POST", url, map[string]string{"text": "  <b>looks</b> good "}, bob)
	rec.AssertStatus(t, http.StatusCreated)
	var c commentJSON
	rec.Decode(t, &c)
	if c.Text != "looks good" || c.UserName != "Bob" {
		t.Errorf("unexpected comment %+v", c)
	}

	rec = e.do("GET", url, nil, bob)
	rec.AssertStatus(t, http.StatusOK)
	var list []commentJSON
	rec.Decode(t, &list)
	if len(list) != 2 || list[0].Text != "first" || list[0].UserName != "Alice" {
		t.Errorf("unexpected comments %+v", list)
	}

	e.do("POST", url, map[string]string{"text": "   "}, bob).AssertStatus(t, http.StatusBadRequest)
	e.do("GET", "/tasks/"+hidden.ID.Hex()+"/comments", nil, bob).AssertStatus(t, http.StatusForbidden)
	e.do("POST", "/tasks/"+hidden.ID.Hex()+"/comments", map[string]string{"text": "hi"}, bob).AssertStatus(t, http.StatusForbidden)
}

func TestUpdateAndDelete_AuthorOnly(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := e.fixtures.CreateUser(ctx, "Alice", "alice@example.com")
	bob := e.fixtures.CreateUser(ctx, "Bob", "bob@example.com")
	b := e.fixtures.CreateProject(ctx, "Board", alice.ID)
	e.fixtures.AddMember(ctx, b.Project.ID, bob.ID, models.RoleAdmin)
	task := e.fixtures.CreateTask(ctx, b.Project.ID, b.Statuses[0].ID, alice.ID, "Task")
	c := e.fixtures.CreateComment(ctx, task, bob.ID, "mine")
	url := "/comments/" + c.ID.Hex()

	e.do("PATCH", url, map[string]string{"text": "hijack"}, alice).AssertStatus(t, http.StatusForbidden)
	e.do("DELETE", url, nil, alice).AssertStatus(t, http.StatusForbidden)

	rec := e.do("PATCH", url, map[string]string{"text": "edited"}, bob)
	rec.AssertStatus(t, http.StatusOK)
	var out commentJSON
	rec.Decode(t, &out)
	if out.Text != "edited" {
		t.Errorf("text = %q", out.Text)
	}

	e.do("DELETE", url, nil, bob).AssertStatus(t, http.StatusNoContent)
	if _, err := commentstore.New(e.fixtures.DB()).GetByID(ctx, c.ID); err != commentstore.ErrNotFound {
		t.Errorf("comment should be gone, got %v", err)
	}
	e.do("DELETE", url, nil, bob).AssertStatus(t, http.StatusNotFound)
}
