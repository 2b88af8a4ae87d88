// internal/app/features/statuses/list.go
package statuses

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	statusstore "github.com/dalemusser/taskboard/internal/app/store/statuses"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/normalize"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// statusView is a column plus what the caller may do with tasks in it.
type statusView struct {
	models.Status
	authz.Grant
}

func viewsOf(mc *authz.MembershipContext, sts []models.Status) []statusView {
	out := make([]statusView, len(sts))
	for i, st := range sts {
		id := st.ID
		out[i] = statusView{Status: st, Grant: mc.Effective(&id)}
	}
	return out
}

// ServeList handles GET /.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sts, err := statusstore.New(h.DB).ListByProject(ctx, mc.ProjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list statuses", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, viewsOf(mc, sts))
}

type createInput struct {
	Slug  string `json:"slug" validate:"max=100" label:"Slug"`
	Title string `json:"title" validate:"required,max=100" label:"Title"`
	Color string `json:"color" validate:"max=100" label:"Color"`
	Icon  string `json:"icon" validate:"max=20" label:"Icon"`
}

// HandleCreate handles POST /. An empty slug is derived from the title.
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
	slugSource := in.Slug
	if slugSource == "" {
		slugSource = in.Title
	}
	if normalize.Slug(slugSource) == "" {
		uierrors.Error(w, http.StatusBadRequest, "Slug must contain letters or digits.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := statusstore.New(h.DB).Create(ctx, models.Status{
		ProjectID: mc.ProjectID,
		Slug:      in.Slug,
		Title:     in.Title,
		Color:     in.Color,
		Icon:      in.Icon,
	})
	if errors.Is(err, statusstore.ErrDuplicateSlug) {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create status", err, "Could not create status.")
		return
	}

	h.Log.Info("status created", zap.String("project_id", mc.ProjectID.Hex()), zap.String("slug", st.Slug))
	uierrors.JSON(w, http.StatusCreated, viewsOf(mc, []models.Status{st})[0])
}

type reorderInput struct {
	IDs []primitive.ObjectID `json:"ids"`
}

// HandleReorder handles PUT /reorder. Positions follow the order of ids.
func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	var in reorderInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.IDs) == 0 {
		uierrors.Error(w, http.StatusBadRequest, "ids are required")
		return
	}
	seen := make(map[primitive.ObjectID]bool, len(in.IDs))
	for _, id := range in.IDs {
		if seen[id] {
			uierrors.Error(w, http.StatusBadRequest, "ids must not repeat")
			return
		}
		seen[id] = true
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := statusstore.New(h.DB)
	err := store.Reorder(ctx, mc.ProjectID, in.IDs)
	if errors.Is(err, statusstore.ErrForeignStatus) {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reorder statuses", err, "Could not reorder statuses.")
		return
	}

	sts, err := store.ListByProject(ctx, mc.ProjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list statuses", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, viewsOf(mc, sts))
}
