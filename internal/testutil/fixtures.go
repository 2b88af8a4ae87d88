package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/taskboard/internal/app/system/indexes"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it repeatedly on the same request accumulates parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// FixturePassword is the plain-text password of every fixture user.
const FixturePassword = "password123"

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// EnsureIndexes builds the production indexes so unique constraints
// behave as they do in a running server.
func (f *Fixtures) EnsureIndexes(ctx context.Context) error {
	return indexes.EnsureAll(ctx, f.db)
}

// CreateUser inserts a user whose password is FixturePassword.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.createUser(ctx, name, email, false)
}

// CreateGlobalAdmin inserts a user with the global admin flag set.
func (f *Fixtures) CreateGlobalAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.createUser(ctx, name, email, true)
}

func (f *Fixtures) createUser(ctx context.Context, name, email string, admin bool) models.User {
	f.t.Helper()

	// MinCost keeps fixture setup fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash fixture password: %v", err)
	}
	now := time.Now().UTC()
	user := models.User{
		ID:            primitive.NewObjectID(),
		Email:         strings.ToLower(email),
		Name:          name,
		NameCI:        text.Fold(name),
		PasswordHash:  string(hash),
		IsGlobalAdmin: admin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// Board is a project with its owner membership and default statuses.
type Board struct {
	Project  models.Project
	Owner    models.ProjectMember
	Statuses []models.Status // todo, in_progress, done
}

// CreateProject inserts a project owned by ownerID together with the owner
// membership and the three default statuses.
func (f *Fixtures) CreateProject(ctx context.Context, name string, ownerID primitive.ObjectID) Board {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}

	owner := f.AddMember(ctx, p.ID, ownerID, models.RoleOwner)

	statuses := models.DefaultStatuses(p.ID, now)
	docs := make([]interface{}, len(statuses))
	for i, s := range statuses {
		docs[i] = s
	}
	if _, err := f.db.Collection("statuses").InsertMany(ctx, docs); err != nil {
		f.t.Fatalf("failed to create test statuses: %v", err)
	}

	return Board{Project: p, Owner: owner, Statuses: statuses}
}

// AddMember inserts a membership without any permission rows.
func (f *Fixtures) AddMember(ctx context.Context, projectID, userID primitive.ObjectID, role models.Role) models.ProjectMember {
	f.t.Helper()

	m := models.ProjectMember{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("project_members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// GrantPermission inserts one permission row. statusID nil makes it the
// member's default row.
func (f *Fixtures) GrantPermission(ctx context.Context, m models.ProjectMember, statusID *primitive.ObjectID, read, create, edit, del bool) models.Permission {
	f.t.Helper()

	p := models.Permission{
		ID:              primitive.NewObjectID(),
		ProjectMemberID: m.ID,
		ProjectID:       m.ProjectID,
		StatusID:        statusID,
		CanRead:         read,
		CanCreate:       create,
		CanEdit:         edit,
		CanDelete:       del,
	}
	if _, err := f.db.Collection("permissions").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test permission: %v", err)
	}
	return p
}

// CreateTask inserts a medium-priority task in the given status.
func (f *Fixtures) CreateTask(ctx context.Context, projectID, statusID, createdBy primitive.ObjectID, title string) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	t := models.Task{
		ID:          primitive.NewObjectID(),
		ProjectID:   projectID,
		Title:       title,
		StatusID:    statusID,
		Priority:    models.PriorityMedium,
		CreatedBy:   createdBy,
		Checklist:   []models.ChecklistItem{},
		Attachments: []models.Attachment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("tasks").InsertOne(ctx, t); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return t
}

// CreateComment inserts a comment on a task.
func (f *Fixtures) CreateComment(ctx context.Context, task models.Task, authorID primitive.ObjectID, body string) models.Comment {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Comment{
		ID:        primitive.NewObjectID(),
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		AuthorID:  authorID,
		Text:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("comments").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test comment: %v", err)
	}
	return c
}
