// internal/app/features/statuses/item.go
package statuses

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	statusstore "github.com/dalemusser/taskboard/internal/app/store/statuses"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/app/system/txn"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// loadManaged loads {statusID} and resolves the caller in its project.
// Only owners and admins get past it.
func (h *Handler) loadManaged(ctx context.Context, w http.ResponseWriter, r *http.Request, op string) (*models.Status, *authz.MembershipContext, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "statusID"))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid status id")
		return nil, nil, false
	}
	st, err := statusstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, statusstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Status not found")
		return nil, nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load status", err, "A server error occurred.")
		return nil, nil, false
	}
	mc, ok := h.Gate.Resolve(w, r, st.ProjectID)
	if !ok {
		return nil, nil, false
	}
	if err := authz.RequireRole(mc, models.RoleOwner, models.RoleAdmin).Err(); err != nil {
		h.ErrLog.Handle(w, r, op, err)
		return nil, nil, false
	}
	return st, mc, true
}

type updateInput struct {
	Title *string `json:"title"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

// HandleUpdate handles PATCH /{statusID}. The slug never changes.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	upd := statusstore.Update{Title: in.Title, Color: in.Color, Icon: in.Icon}
	if upd.Empty() {
		uierrors.Error(w, http.StatusBadRequest, "No fields to update")
		return
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		uierrors.Error(w, http.StatusBadRequest, "Title is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, mc, ok := h.loadManaged(ctx, w, r, "update status")
	if !ok {
		return
	}
	updated, err := statusstore.New(h.DB).Update(ctx, st.ID, upd)
	if errors.Is(err, statusstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Status not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update status", err, "Could not update status.")
		return
	}
	uierrors.JSON(w, http.StatusOK, viewsOf(mc, []models.Status{*updated})[0])
}

// HandleDelete handles DELETE /{statusID}. A project keeps at least one
// status, and a status with tasks cannot go. Rows keyed to the status are
// removed with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, _, ok := h.loadManaged(ctx, w, r, "delete status")
	if !ok {
		return
	}

	err := txn.Run(ctx, h.DB.Client(), h.Log, "delete status", func(ctx context.Context) error {
		if err := statusstore.New(h.DB).Delete(ctx, *st); err != nil {
			return err
		}
		_, err := permissionstore.New(h.DB).DeleteByStatus(ctx, st.ID)
		return err
	})
	switch {
	case errors.Is(err, statusstore.ErrLastStatus), errors.Is(err, statusstore.ErrInUse):
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, statusstore.ErrNotFound):
		uierrors.Error(w, http.StatusNotFound, "Status not found")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "delete status", err, "Could not delete status.")
		return
	}

	h.Log.Info("status deleted", zap.String("status_id", st.ID.Hex()), zap.String("project_id", st.ProjectID.Hex()))
	uierrors.NoContent(w)
}
