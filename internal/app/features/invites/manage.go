package invites

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/policy/memberpolicy"
	invitestore "github.com/dalemusser/taskboard/internal/app/store/invites"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createInput struct {
	Role           string `json:"role" validate:"omitempty,projectrole" label:"Role"`
	MaxUses        *int   `json:"max_uses" validate:"omitempty,min=1" label:"Max uses"`
	ExpiresInHours *int   `json:"expires_in_hours" validate:"omitempty,min=1,max=8760" label:"Expiry"`
}

// inviteView adds the computed validity to a stored invite.
type inviteView struct {
	models.Invite
	Valid bool `json:"valid"`
}

func viewOf(inv models.Invite, now time.Time) inviteView {
	return inviteView{Invite: inv, Valid: authz.CheckInvite(&inv, now) == nil}
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

	list, err := invitestore.New(h.DB).ListByProject(ctx, mc.ProjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list invites", err, "A server error occurred.")
		return
	}
	now := time.Now().UTC()
	out := make([]inviteView, 0, len(list))
	for _, inv := range list {
		out = append(out, viewOf(inv, now))
	}
	uierrors.JSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /. The role defaults to member and can never
// be owner.
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
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, res.First())
		return
	}
	role := models.RoleMember
	if in.Role != "" {
		role = models.Role(in.Role)
	}
	if err := memberpolicy.CanAdd(mc, role); err != nil {
		h.ErrLog.Handle(w, r, "create invite", err)
		return
	}

	inv := models.Invite{
		ProjectID: mc.ProjectID,
		Role:      role,
		MaxUses:   in.MaxUses,
		CreatedBy: mc.UserID,
	}
	now := time.Now().UTC()
	switch {
	case in.ExpiresInHours != nil:
		exp := now.Add(time.Duration(*in.ExpiresInHours) * time.Hour)
		inv.ExpiresAt = &exp
	case h.DefaultTTL > 0:
		exp := now.Add(h.DefaultTTL)
		inv.ExpiresAt = &exp
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := invitestore.New(h.DB).Create(ctx, inv)
	if err != nil {
		h.ErrLog.Handle(w, r, "create invite", err)
		return
	}

	h.AuditLog.InviteCreated(ctx, r, mc.UserID, mc.ProjectID, string(role))
	h.Log.Info("invite created",
		zap.String("project_id", mc.ProjectID.Hex()),
		zap.String("role", string(role)))
	uierrors.JSON(w, http.StatusCreated, viewOf(created, now))
}

// HandleRevoke handles DELETE /{inviteID}.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "inviteID"))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid invite id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := invitestore.New(h.DB).Delete(ctx, mc.ProjectID, id)
	if errors.Is(err, invitestore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Invite not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "revoke invite", err, "Failed to revoke invite")
		return
	}

	h.AuditLog.InviteRevoked(ctx, r, mc.UserID, mc.ProjectID, inv.Code)
	uierrors.NoContent(w)
}
