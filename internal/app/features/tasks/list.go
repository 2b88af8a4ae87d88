// internal/app/features/tasks/list.go
package tasks

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	statusstore "github.com/dalemusser/taskboard/internal/app/store/statuses"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	errAssigneeNotMember = errors.New("assignee must be a project member")
	errBadDueDate        = errors.New("due date must be YYYY-MM-DD or an RFC 3339 timestamp")
)

// ServeList handles GET /. Tasks in statuses the caller cannot read are
// left out.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	all, err := taskstore.New(h.DB).ListByProject(ctx, mc.ProjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list tasks", err, "A server error occurred.")
		return
	}
	visible := authz.FilterReadable(mc, all, func(t models.Task) primitive.ObjectID { return t.StatusID })

	views, err := h.decorate(ctx, mc.ProjectID, visible)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decorate tasks", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, views)
}

type createInput struct {
	Title       string `json:"title" validate:"required,max=500" label:"Title"`
	Description string `json:"description" validate:"max=20000" label:"Description"`
	StatusID    string `json:"status_id" validate:"omitempty,objectid" label:"Status"`
	Priority    string `json:"priority" validate:"omitempty,priority" label:"Priority"`
	AssignedTo  string `json:"assigned_to" validate:"omitempty,objectid" label:"Assignee"`
	DueDate     string `json:"due_date" label:"Due date"`
}

// HandleCreate handles POST /. Without a status_id the task lands in the
// first column. The caller needs create on that status.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	var in createInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, res.First())
		return
	}
	due, err := parseDueDate(in.DueDate)
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	statuses := statusstore.New(h.DB)
	var st *models.Status
	if in.StatusID == "" {
		st, err = statuses.First(ctx, mc.ProjectID)
	} else {
		sid, _ := primitive.ObjectIDFromHex(in.StatusID)
		st, err = statuses.GetInProject(ctx, mc.ProjectID, sid)
	}
	switch {
	case errors.Is(err, statusstore.ErrNotFound):
		uierrors.Error(w, http.StatusBadRequest, "No statuses in project")
		return
	case errors.Is(err, statusstore.ErrForeignStatus):
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load status", err, "A server error occurred.")
		return
	}

	sid := st.ID
	if err := authz.CheckPermission(mc, authz.ActionCreate, &sid).Err(); err != nil {
		h.ErrLog.Handle(w, r, "create task", err)
		return
	}

	var assignee *primitive.ObjectID
	if in.AssignedTo != "" {
		uid, _ := primitive.ObjectIDFromHex(in.AssignedTo)
		if err := h.checkAssignee(ctx, mc.ProjectID, uid); err != nil {
			h.ErrLog.Handle(w, r, "create task", err)
			return
		}
		assignee = &uid
	}

	t, err := taskstore.New(h.DB).Create(ctx, models.Task{
		ProjectID:   mc.ProjectID,
		Title:       in.Title,
		Description: htmlsanitize.Sanitize(in.Description),
		StatusID:    st.ID,
		Priority:    models.Priority(in.Priority),
		AssignedTo:  assignee,
		CreatedBy:   mc.UserID,
		DueDate:     due,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create task", err, "Failed to create task")
		return
	}
	if err := statuses.Touch(ctx, mc.ProjectID, st.ID); err != nil {
		if derr := taskstore.New(h.DB).Delete(ctx, t.ID); derr != nil {
			h.Log.Warn("undo task create", zap.Error(derr), zap.String("task_id", t.ID.Hex()))
		}
		if errors.Is(err, statusstore.ErrForeignStatus) {
			uierrors.Error(w, http.StatusConflict, errStatusGone)
			return
		}
		h.ErrLog.LogServerError(w, r, "touch status", err, "Failed to create task")
		return
	}

	v, err := h.decorateOne(ctx, t)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decorate task", err, "A server error occurred.")
		return
	}
	h.Log.Debug("task created", zap.String("task_id", t.ID.Hex()), zap.String("status", st.Slug))
	uierrors.JSON(w, http.StatusCreated, v)
}

type assignee struct {
	ID    primitive.ObjectID `json:"id"`
	Email string             `json:"email"`
	Name  string             `json:"name"`
	Role  models.Role        `json:"role"`
}

// ServeAssignees handles GET /api/projects/{projectID}/users: every
// member of the project, by name.
func (h *Handler) ServeAssignees(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ms, err := membershipstore.New(h.DB).ListByProject(ctx, mc.ProjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list members", err, "A server error occurred.")
		return
	}
	roles := make(map[primitive.ObjectID]models.Role, len(ms))
	ids := make([]primitive.ObjectID, len(ms))
	for i, m := range ms {
		roles[m.UserID] = m.Role
		ids[i] = m.UserID
	}
	users, err := userstore.New(h.DB).ListByIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users", err, "A server error occurred.")
		return
	}

	out := make([]assignee, len(users))
	for i, u := range users {
		out[i] = assignee{ID: u.ID, Email: u.Email, Name: u.Name, Role: roles[u.ID]}
	}
	uierrors.JSON(w, http.StatusOK, out)
}

// checkAssignee rejects users without a membership in projectID.
func (h *Handler) checkAssignee(ctx context.Context, projectID, userID primitive.ObjectID) error {
	m, err := membershipstore.New(h.DB).FindMembership(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return uierrors.BadRequest(errAssigneeNotMember)
	}
	return nil
}

// parseDueDate accepts a calendar date or a full timestamp. Empty means
// no due date.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errBadDueDate
}
