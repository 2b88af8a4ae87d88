// internal/app/features/members/permissions.go
package members

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/policy/memberpolicy"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	statusstore "github.com/dalemusser/taskboard/internal/app/store/statuses"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/app/system/txn"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type permissionView struct {
	models.Permission
	StatusTitle string `json:"status_title,omitempty"`
	StatusSlug  string `json:"status_slug,omitempty"`
}

type permissionsResponse struct {
	Role        models.Role      `json:"role"`
	Permissions []permissionView `json:"permissions"`
}

type replaceInput struct {
	Permissions []memberpolicy.PermissionInput `json:"permissions"`
}

// ServePermissions handles GET /{memberID}/permissions. Owners and admins
// may read anyone's rows; other members only their own.
func (h *Handler) ServePermissions(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	target, ok := h.loadTarget(ctx, w, r, mc)
	if !ok {
		return
	}
	if target.ID != mc.MemberID {
		if err := memberpolicy.CanManage(mc); err != nil {
			h.ErrLog.Handle(w, r, "read permissions", err)
			return
		}
	}

	out := permissionsResponse{Role: target.Role, Permissions: []permissionView{}}
	if target.Role.IsPrivileged() {
		uierrors.JSON(w, http.StatusOK, out)
		return
	}

	rows, err := permissionstore.New(h.DB).ListPermissions(ctx, target.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list permissions", err, "A server error occurred.")
		return
	}
	statuses, err := h.statusIndex(ctx, mc.ProjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list statuses", err, "A server error occurred.")
		return
	}
	out.Permissions = decorateRows(rows, statuses)
	uierrors.JSON(w, http.StatusOK, out)
}

// HandleReplacePermissions handles PUT /{memberID}/permissions. The whole
// row set is replaced in one transaction.
func (h *Handler) HandleReplacePermissions(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	var in replaceInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := h.loadTarget(ctx, w, r, mc)
	if !ok {
		return
	}
	if err := memberpolicy.CanEditPermissions(mc, *target); err != nil {
		h.ErrLog.Handle(w, r, "replace permissions", err)
		return
	}

	statuses, err := h.statusIndex(ctx, mc.ProjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list statuses", err, "A server error occurred.")
		return
	}
	rows := memberpolicy.Normalize(in.Permissions)
	for _, p := range rows {
		if p.StatusID == nil {
			continue
		}
		if _, ok := statuses[*p.StatusID]; !ok {
			uierrors.Error(w, http.StatusBadRequest, statusstore.ErrForeignStatus.Error())
			return
		}
	}

	var saved []models.Permission
	err = txn.Run(ctx, h.DB.Client(), h.Log, "replace permissions", func(ctx context.Context) error {
		var err error
		saved, err = permissionstore.New(h.DB).ReplaceForMember(ctx, *target, rows)
		return err
	})
	if errors.Is(err, permissionstore.ErrDuplicateKey) {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "replace permissions", err, "Could not save permissions.")
		return
	}

	h.AuditLog.PermissionsReplaced(ctx, r, mc.UserID, mc.ProjectID, target.UserID, len(saved))
	h.Log.Info("permissions replaced", zap.String("member_id", target.ID.Hex()), zap.Int("rows", len(saved)))
	uierrors.JSON(w, http.StatusOK, permissionsResponse{
		Role:        target.Role,
		Permissions: decorateRows(saved, statuses),
	})
}

func (h *Handler) statusIndex(ctx context.Context, projectID primitive.ObjectID) (map[primitive.ObjectID]models.Status, error) {
	list, err := statusstore.New(h.DB).ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]models.Status, len(list))
	for _, st := range list {
		out[st.ID] = st
	}
	return out, nil
}

func decorateRows(rows []models.Permission, statuses map[primitive.ObjectID]models.Status) []permissionView {
	out := make([]permissionView, len(rows))
	for i, p := range rows {
		out[i] = permissionView{Permission: p}
		if p.StatusID != nil {
			if st, ok := statuses[*p.StatusID]; ok {
				out[i].StatusTitle = st.Title
				out[i].StatusSlug = st.Slug
			}
		}
	}
	return out
}
