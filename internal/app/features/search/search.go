package search

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	projectstore "github.com/dalemusser/taskboard/internal/app/store/projects"
	statusstore "github.com/dalemusser/taskboard/internal/app/store/statuses"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/limits"
	querytext "github.com/dalemusser/taskboard/internal/app/system/search"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// candidateFactor widens the text query so hits dropped by the read
// filter still leave a full page.
const candidateFactor = 5

type hitView struct {
	ID          primitive.ObjectID `json:"id"`
	ProjectID   primitive.ObjectID `json:"project_id"`
	ProjectName string             `json:"project_name"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	StatusID    primitive.ObjectID `json:"status_id"`
	StatusTitle string             `json:"status_title"`
	StatusSlug  string             `json:"status_slug"`
	CreatorName string             `json:"creator_name"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ServeSearch handles GET /?q=&project_id=&exact=.
//
// Without project_id it searches every project the caller belongs to, or
// every project for a global admin. Each hit must be readable on its
// current status.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := querytext.Normalize(r.URL.Query().Get("q"))
	if !ok {
		uierrors.Error(w, http.StatusBadRequest, "Query is required")
		return
	}
	if r.URL.Query().Get("exact") == "true" {
		q = querytext.Phrase(q)
	}
	actor, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	contexts := map[primitive.ObjectID]*authz.MembershipContext{}
	var projectIDs []primitive.ObjectID

	if raw := r.URL.Query().Get("project_id"); raw != "" {
		pid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			uierrors.Error(w, http.StatusBadRequest, "invalid project id")
			return
		}
		mc, ok := h.Gate.Resolve(w, r, pid)
		if !ok {
			return
		}
		contexts[pid] = mc
		projectIDs = []primitive.ObjectID{pid}
	} else {
		ids, err := h.visibleProjects(ctx, actor)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "list projects", err, "A server error occurred.")
			return
		}
		projectIDs = ids
	}

	found, err := taskstore.New(h.DB).Search(ctx, q, projectIDs, limits.MaxSearchResults*candidateFactor)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "search tasks", err, "Search failed")
		return
	}

	var readable []models.Task
	for _, t := range found {
		mc, seen := contexts[t.ProjectID]
		if !seen {
			mc, err = h.Gate.Lookup(ctx, actor, t.ProjectID)
			if err != nil && !authz.IsDenial(err) {
				h.ErrLog.LogServerError(w, r, "resolve membership", err, "A server error occurred.")
				return
			}
			contexts[t.ProjectID] = mc
		}
		if mc == nil {
			continue
		}
		sid := t.StatusID
		if authz.CheckPermission(mc, authz.ActionRead, &sid).Allowed {
			readable = append(readable, t)
		}
		if len(readable) == limits.MaxSearchResults {
			break
		}
	}

	hits, err := h.decorate(ctx, readable)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decorate results", err, "A server error occurred.")
		return
	}
	h.Log.Debug("search",
		zap.String("user_id", actor.UserID.Hex()),
		zap.Int("projects", len(projectIDs)),
		zap.Int("candidates", len(found)),
		zap.Int("hits", len(hits)))
	uierrors.JSON(w, http.StatusOK, hits)
}

func (h *Handler) visibleProjects(ctx context.Context, actor authz.Actor) ([]primitive.ObjectID, error) {
	if actor.GlobalAdmin {
		return projectstore.New(h.DB).ListIDs(ctx)
	}
	ms, err := membershipstore.New(h.DB).ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ProjectID)
	}
	return ids, nil
}

// decorate joins project names, status labels and creator names.
func (h *Handler) decorate(ctx context.Context, ts []models.Task) ([]hitView, error) {
	out := make([]hitView, 0, len(ts))
	if len(ts) == 0 {
		return out, nil
	}

	var projectIDs, userIDs []primitive.ObjectID
	seenProject := map[primitive.ObjectID]bool{}
	seenUser := map[primitive.ObjectID]bool{}
	for _, t := range ts {
		if !seenProject[t.ProjectID] {
			seenProject[t.ProjectID] = true
			projectIDs = append(projectIDs, t.ProjectID)
		}
		if !seenUser[t.CreatedBy] {
			seenUser[t.CreatedBy] = true
			userIDs = append(userIDs, t.CreatedBy)
		}
	}

	projects, err := projectstore.New(h.DB).List(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	projectNames := make(map[primitive.ObjectID]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	statuses := map[primitive.ObjectID]models.Status{}
	ss := statusstore.New(h.DB)
	for _, pid := range projectIDs {
		sts, err := ss.ListByProject(ctx, pid)
		if err != nil {
			return nil, err
		}
		for _, st := range sts {
			statuses[st.ID] = st
		}
	}

	users, err := userstore.New(h.DB).ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	for _, t := range ts {
		st := statuses[t.StatusID]
		out = append(out, hitView{
			ID:          t.ID,
			ProjectID:   t.ProjectID,
			ProjectName: projectNames[t.ProjectID],
			Title:       t.Title,
			Description: t.Description,
			StatusID:    t.StatusID,
			StatusTitle: st.Title,
			StatusSlug:  st.Slug,
			CreatorName: names[t.CreatedBy],
			CreatedAt:   t.CreatedAt,
		})
	}
	return out, nil
}
