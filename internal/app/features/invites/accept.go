package invites

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/policy/memberpolicy"
	invitestore "github.com/dalemusser/taskboard/internal/app/store/invites"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	projectstore "github.com/dalemusser/taskboard/internal/app/store/projects"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/app/system/txn"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type previewView struct {
	Code        string      `json:"code"`
	ProjectID   string      `json:"project_id"`
	ProjectName string      `json:"project_name"`
	Role        models.Role `json:"role"`
	Valid       bool        `json:"valid"`
	Reason      string      `json:"reason,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at"`
}

type acceptView struct {
	ProjectID   string      `json:"project_id"`
	ProjectName string      `json:"project_name"`
	MemberID    string      `json:"member_id"`
	Role        models.Role `json:"role"`
}

// ServePreview handles GET /{code}. It shows what accepting would grant
// without consuming a use.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := invitestore.New(h.DB).GetByCode(ctx, chi.URLParam(r, "code"))
	if errors.Is(err, invitestore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, authz.ErrInviteInvalid.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load invite", err, "A server error occurred.")
		return
	}
	p, err := projectstore.New(h.DB).GetByID(ctx, inv.ProjectID)
	if errors.Is(err, projectstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, authz.ErrInviteInvalid.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load project", err, "A server error occurred.")
		return
	}

	v := previewView{
		Code:        inv.Code,
		ProjectID:   p.ID.Hex(),
		ProjectName: p.Name,
		Role:        inv.Role,
		Valid:       true,
		ExpiresAt:   inv.ExpiresAt,
	}
	if err := authz.CheckInvite(inv, time.Now().UTC()); err != nil {
		v.Valid = false
		v.Reason = err.Error()
	}
	uierrors.JSON(w, http.StatusOK, v)
}

// HandleAccept handles POST /{code}/accept. The use is consumed by a
// guarded increment in the same transaction as the membership write.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := invitestore.New(h.DB).GetByCode(ctx, chi.URLParam(r, "code"))
	if errors.Is(err, invitestore.ErrNotFound) {
		h.ErrLog.Handle(w, r, "accept invite", authz.ErrInviteInvalid)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load invite", err, "A server error occurred.")
		return
	}
	p, err := projectstore.New(h.DB).GetByID(ctx, inv.ProjectID)
	if errors.Is(err, projectstore.ErrNotFound) {
		h.ErrLog.Handle(w, r, "accept invite", authz.ErrInviteInvalid)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load project", err, "A server error occurred.")
		return
	}

	redeemed, m, err := h.join(ctx, inv, actor.UserID)
	if err != nil {
		h.ErrLog.Handle(w, r, "accept invite", err)
		return
	}

	h.AuditLog.InviteRedeemed(ctx, r, actor.UserID, redeemed.ProjectID, string(redeemed.Role))
	h.Log.Info("invite redeemed",
		zap.String("project_id", redeemed.ProjectID.Hex()),
		zap.String("user_id", actor.UserID.Hex()),
		zap.String("role", string(redeemed.Role)))
	uierrors.JSON(w, http.StatusCreated, acceptView{
		ProjectID:   p.ID.Hex(),
		ProjectName: p.Name,
		MemberID:    m.ID.Hex(),
		Role:        m.Role,
	})
}

// join redeems the invite and writes the membership with its default rows.
// Inside a transaction a failed write rolls the use back. Without one the
// use is released explicitly. A user who already belongs to the project
// gets ErrAlreadyMember even when the code itself is spent.
func (h *Handler) join(ctx context.Context, inv *models.Invite, userID primitive.ObjectID) (*models.Invite, models.ProjectMember, error) {
	store := invitestore.New(h.DB)
	var (
		redeemed *models.Invite
		m        models.ProjectMember
	)
	err := txn.Run(ctx, h.DB.Client(), h.Log, "accept invite", func(ctx context.Context) error {
		var err error
		redeemed, err = store.Redeem(ctx, inv.Code)
		if err != nil {
			existing, ferr := membershipstore.New(h.DB).FindMembership(ctx, inv.ProjectID, userID)
			if ferr == nil && existing != nil {
				return uierrors.Conflict(authz.ErrAlreadyMember)
			}
			return err
		}
		m, err = h.addMember(ctx, redeemed.ProjectID, userID, redeemed.Role)
		if err != nil && !txn.InTransaction(ctx) {
			if rerr := store.Release(ctx, redeemed.ID); rerr != nil {
				h.Log.Warn("release invite use", zap.Error(rerr), zap.String("invite_id", redeemed.ID.Hex()))
			}
		}
		return err
	})
	return redeemed, m, err
}

func (h *Handler) addMember(ctx context.Context, projectID, userID primitive.ObjectID, role models.Role) (models.ProjectMember, error) {
	m, err := membershipstore.New(h.DB).Add(ctx, projectID, userID, role)
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		return m, uierrors.Conflict(authz.ErrAlreadyMember)
	}
	if err != nil {
		return m, err
	}
	_, err = permissionstore.New(h.DB).ReplaceForMember(ctx, m, memberpolicy.DefaultPermissions(role))
	return m, err
}
