// internal/app/features/members/role.go
package members

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/policy/memberpolicy"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/app/system/txn"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.uber.org/zap"
)

type roleInput struct {
	Role string `json:"role" validate:"required,projectrole" label:"Role"`
}

// HandleUpdateRole handles PATCH /{memberID}. The member's rows are reset
// to the new role's default; promotion to admin leaves no rows.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	var in roleInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, res.First())
		return
	}
	role := models.Role(in.Role)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := h.loadTarget(ctx, w, r, mc)
	if !ok {
		return
	}
	if err := memberpolicy.CanChangeRole(mc, *target, role); err != nil {
		h.ErrLog.Handle(w, r, "update member role", err)
		return
	}

	from := target.Role
	err := txn.Run(ctx, h.DB.Client(), h.Log, "update member role", func(ctx context.Context) error {
		if err := membershipstore.New(h.DB).UpdateRole(ctx, target.ID, role); err != nil {
			return err
		}
		updated := *target
		updated.Role = role
		_, err := permissionstore.New(h.DB).ReplaceForMember(ctx, updated, memberpolicy.DefaultPermissions(role))
		return err
	})
	if errors.Is(err, membershipstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update member role", err, "Could not update member.")
		return
	}
	target.Role = role

	u, err := userstore.New(h.DB).GetByID(ctx, target.UserID)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "load member account", err, "A server error occurred.")
		return
	}

	h.AuditLog.MemberRoleChanged(ctx, r, mc.UserID, mc.ProjectID, target.UserID, string(from), string(role))
	h.Log.Info("member role changed",
		zap.String("member_id", target.ID.Hex()),
		zap.String("from", string(from)),
		zap.String("to", string(role)))
	uierrors.JSON(w, http.StatusOK, viewOf(*target, u))
}

// HandleRemove handles DELETE /{memberID}. The member's rows go with the
// membership and their task assignments in this project are cleared.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := h.loadTarget(ctx, w, r, mc)
	if !ok {
		return
	}
	if err := memberpolicy.CanRemove(mc, *target); err != nil {
		h.ErrLog.Handle(w, r, "remove member", err)
		return
	}

	err := txn.Run(ctx, h.DB.Client(), h.Log, "remove member", func(ctx context.Context) error {
		if _, err := permissionstore.New(h.DB).DeleteByMember(ctx, target.ID); err != nil {
			return err
		}
		if err := membershipstore.New(h.DB).Delete(ctx, target.ID); err != nil {
			return err
		}
		_, err := taskstore.New(h.DB).UnassignUser(ctx, &mc.ProjectID, target.UserID)
		return err
	})
	if errors.Is(err, membershipstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "remove member", err, "Could not remove member.")
		return
	}

	h.AuditLog.MemberRemoved(ctx, r, mc.UserID, mc.ProjectID, target.UserID, string(target.Role))
	h.Log.Info("member removed", zap.String("member_id", target.ID.Hex()), zap.String("project_id", mc.ProjectID.Hex()))
	uierrors.NoContent(w)
}
