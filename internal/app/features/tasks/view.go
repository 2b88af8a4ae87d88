// internal/app/features/tasks/view.go
package tasks

import (
	"context"

	statusstore "github.com/dalemusser/taskboard/internal/app/store/statuses"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// taskView is a task with the names a board card shows.
type taskView struct {
	models.Task
	AssignedName string `json:"assigned_name,omitempty"`
	CreatorName  string `json:"creator_name,omitempty"`
	StatusTitle  string `json:"status_title,omitempty"`
	StatusSlug   string `json:"status_slug,omitempty"`
}

// decorate joins user names and status labels onto ts.
func (h *Handler) decorate(ctx context.Context, projectID primitive.ObjectID, ts []models.Task) ([]taskView, error) {
	sts, err := statusstore.New(h.DB).ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[primitive.ObjectID]models.Status, len(sts))
	for _, st := range sts {
		byStatus[st.ID] = st
	}

	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !id.IsZero() && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, t := range ts {
		add(t.CreatedBy)
		if t.AssignedTo != nil {
			add(*t.AssignedTo)
		}
	}
	users, err := userstore.New(h.DB).ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	out := make([]taskView, len(ts))
	for i, t := range ts {
		v := taskView{Task: t, CreatorName: names[t.CreatedBy]}
		if t.AssignedTo != nil {
			v.AssignedName = names[*t.AssignedTo]
		}
		if st, ok := byStatus[t.StatusID]; ok {
			v.StatusTitle = st.Title
			v.StatusSlug = st.Slug
		}
		out[i] = v
	}
	return out, nil
}

func (h *Handler) decorateOne(ctx context.Context, t models.Task) (taskView, error) {
	views, err := h.decorate(ctx, t.ProjectID, []models.Task{t})
	if err != nil {
		return taskView{}, err
	}
	return views[0], nil
}
