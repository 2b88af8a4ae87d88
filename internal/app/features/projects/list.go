// internal/app/features/projects/list.go
package projects

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	projectstore "github.com/dalemusser/taskboard/internal/app/store/projects"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// projectView is a project as returned to clients.
type projectView struct {
	models.Project
	CreatorName  string `json:"creator_name,omitempty"`
	MyRole       string `json:"my_role"`
	MembersCount int    `json:"members_count"`
	TasksCount   int    `json:"tasks_count"`
}

// globalAdminRole is reported as my_role to a global admin with no
// membership in the project.
const globalAdminRole = "admin"

// ServeList handles GET /. Global admins see every project; everyone else
// sees the projects they belong to.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	members := membershipstore.New(h.DB)
	mine, err := members.ListByUser(ctx, actor.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list memberships", err, "A server error occurred.")
		return
	}
	roles := make(map[primitive.ObjectID]models.Role, len(mine))
	ids := make([]primitive.ObjectID, 0, len(mine))
	for _, m := range mine {
		roles[m.ProjectID] = m.Role
		ids = append(ids, m.ProjectID)
	}
	if actor.GlobalAdmin {
		ids = nil // every project
	}

	projects, err := projectstore.New(h.DB).List(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list projects", err, "A server error occurred.")
		return
	}

	views, err := h.decorate(ctx, projects, func(p models.Project) string {
		if role, ok := roles[p.ID]; ok {
			return string(role)
		}
		return globalAdminRole
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count project members and tasks", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, views)
}

// decorate adds counts, creator names, and the caller's role.
func (h *Handler) decorate(ctx context.Context, projects []models.Project, roleOf func(models.Project) string) ([]projectView, error) {
	ids := make([]primitive.ObjectID, len(projects))
	ownerIDs := make([]primitive.ObjectID, 0, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
		ownerIDs = append(ownerIDs, p.OwnerID)
	}

	memberCounts, err := membershipstore.New(h.DB).CountPerProject(ctx, ids)
	if err != nil {
		return nil, err
	}
	taskCounts, err := taskstore.New(h.DB).CountPerProject(ctx, ids)
	if err != nil {
		return nil, err
	}
	owners, err := userstore.New(h.DB).ListByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(owners))
	for _, u := range owners {
		names[u.ID] = u.Name
	}

	views := make([]projectView, len(projects))
	for i, p := range projects {
		views[i] = projectView{
			Project:      p,
			CreatorName:  names[p.OwnerID],
			MyRole:       roleOf(p),
			MembersCount: memberCounts[p.ID],
			TasksCount:   taskCounts[p.ID],
		}
	}
	return views, nil
}
