// internal/app/features/tasks/item.go
package tasks

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/features/shared/taskctx"
	commentstore "github.com/dalemusser/taskboard/internal/app/store/comments"
	statusstore "github.com/dalemusser/taskboard/internal/app/store/statuses"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/app/system/txn"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxChecklistItems bounds one checklist replacement.
const maxChecklistItems = 200

const (
	errTaskMoved  = "Task was moved by someone else. Reload and try again."
	errStatusGone = "Status was deleted. Reload and try again."
)

// ServeTask handles GET /{taskID}.
func (h *Handler) ServeTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionRead, t) {
		return
	}
	v, err := h.decorateOne(ctx, *t)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decorate task", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, v)
}

type updateInput struct {
	Title       *string                               `json:"title"`
	Description *string                               `json:"description"`
	StatusID    *primitive.ObjectID                   `json:"status_id"`
	Priority    *string                               `json:"priority"`
	AssignedTo  inputval.Optional[primitive.ObjectID] `json:"assigned_to"`
	DueDate     inputval.Optional[string]             `json:"due_date"`
}

// HandleUpdate handles PATCH /{taskID}. Edits need edit on the current
// status; a move also needs create on the destination.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	upd := taskstore.Update{Title: in.Title, StatusID: in.StatusID}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		uierrors.Error(w, http.StatusBadRequest, "Title is required.")
		return
	}
	if in.Description != nil {
		clean := htmlsanitize.Sanitize(*in.Description)
		upd.Description = &clean
	}
	if in.Priority != nil {
		p := models.Priority(*in.Priority)
		if !p.IsValid() {
			uierrors.Error(w, http.StatusBadRequest, "Priority must be one of low, medium, high.")
			return
		}
		upd.Priority = &p
	}
	if in.AssignedTo.Set {
		if in.AssignedTo.Value == nil || in.AssignedTo.Value.IsZero() {
			upd.ClearAssignee = true
		} else {
			upd.AssignedTo = in.AssignedTo.Value
		}
	}
	if in.DueDate.Set {
		var raw string
		if in.DueDate.Value != nil {
			raw = *in.DueDate.Value
		}
		due, err := parseDueDate(raw)
		if err != nil {
			uierrors.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if due == nil {
			upd.ClearDueDate = true
		} else {
			upd.DueDate = due
		}
	}
	if upd.Empty() {
		uierrors.Error(w, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionEdit, t) {
		return
	}

	if in.StatusID != nil && *in.StatusID != t.StatusID {
		_, err := statusstore.New(h.DB).GetInProject(ctx, t.ProjectID, *in.StatusID)
		if errors.Is(err, statusstore.ErrForeignStatus) {
			uierrors.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load status", err, "A server error occurred.")
			return
		}
		if err := authz.CheckTransition(mc, t.StatusID, *in.StatusID).Err(); err != nil {
			h.ErrLog.Handle(w, r, "move task", err)
			return
		}
	}
	if upd.AssignedTo != nil {
		if err := h.checkAssignee(ctx, t.ProjectID, *upd.AssignedTo); err != nil {
			h.ErrLog.Handle(w, r, "update task", err)
			return
		}
	}

	updated, err := taskstore.New(h.DB).UpdateInStatus(ctx, t.ID, t.StatusID, upd)
	if errors.Is(err, taskstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Task not found")
		return
	}
	if errors.Is(err, taskstore.ErrStatusChanged) {
		uierrors.Error(w, http.StatusConflict, errTaskMoved)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update task", err, "Failed to update task")
		return
	}
	if updated.StatusID != t.StatusID {
		if err := statusstore.New(h.DB).Touch(ctx, t.ProjectID, updated.StatusID); err != nil {
			back := t.StatusID
			if _, rerr := taskstore.New(h.DB).UpdateInStatus(ctx, t.ID, updated.StatusID, taskstore.Update{StatusID: &back}); rerr != nil {
				h.Log.Warn("undo task move", zap.Error(rerr), zap.String("task_id", t.ID.Hex()))
			}
			if errors.Is(err, statusstore.ErrForeignStatus) {
				uierrors.Error(w, http.StatusConflict, errStatusGone)
				return
			}
			h.ErrLog.LogServerError(w, r, "touch status", err, "Failed to update task")
			return
		}
	}

	v, err := h.decorateOne(ctx, *updated)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decorate task", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, v)
}

// HandleDelete handles DELETE /{taskID}. Comments go with the task and
// attachment files are removed after the commit.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionDelete, t) {
		return
	}

	// The task goes first so a moved task leaves its comments in place.
	err := txn.Run(ctx, h.DB.Client(), h.Log, "delete task", func(ctx context.Context) error {
		err := taskstore.New(h.DB).DeleteInStatus(ctx, t.ID, t.StatusID)
		if err != nil && !errors.Is(err, taskstore.ErrNotFound) {
			return err
		}
		_, err = commentstore.New(h.DB).DeleteByTask(ctx, t.ID)
		return err
	})
	if errors.Is(err, taskstore.ErrStatusChanged) {
		uierrors.Error(w, http.StatusConflict, errTaskMoved)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete task", err, "Failed to delete task")
		return
	}

	if h.Blobs != nil {
		for _, a := range t.Attachments {
			if err := h.Blobs.Delete(ctx, a.Path); err != nil {
				h.Log.Warn("delete attachment file", zap.Error(err), zap.String("path", a.Path))
			}
		}
	}
	h.Log.Debug("task deleted", zap.String("task_id", t.ID.Hex()))
	uierrors.NoContent(w)
}

type checklistInput struct {
	Items []models.ChecklistItem `json:"items"`
}

// HandleChecklist handles PUT /{taskID}/checklist, replacing every item.
// Blank items are dropped.
func (h *Handler) HandleChecklist(w http.ResponseWriter, r *http.Request) {
	var in checklistInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.Items) > maxChecklistItems {
		uierrors.Error(w, http.StatusBadRequest, "Too many checklist items.")
		return
	}
	for i := range in.Items {
		in.Items[i].Text = htmlsanitize.Plain(in.Items[i].Text)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionEdit, t) {
		return
	}

	updated, err := taskstore.New(h.DB).SetChecklistInStatus(ctx, t.ID, t.StatusID, in.Items)
	if errors.Is(err, taskstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Task not found")
		return
	}
	if errors.Is(err, taskstore.ErrStatusChanged) {
		uierrors.Error(w, http.StatusConflict, errTaskMoved)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update checklist", err, "Failed to update checklist")
		return
	}
	v, err := h.decorateOne(ctx, *updated)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decorate task", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, v)
}
