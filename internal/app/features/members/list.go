// internal/app/features/members/list.go
package members

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memberView is a membership joined with the member's account.
type memberView struct {
	ID        primitive.ObjectID `json:"id"`
	ProjectID primitive.ObjectID `json:"project_id"`
	UserID    primitive.ObjectID `json:"user_id"`
	Role      models.Role        `json:"role"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"created_at"`
}

func viewOf(m models.ProjectMember, u *models.User) memberView {
	v := memberView{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
	if u != nil {
		v.Email = u.Email
		v.Name = u.Name
	}
	return v
}

// ServeList handles GET /. Any member may list the roster.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
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

	ids := make([]primitive.ObjectID, len(ms))
	for i, m := range ms {
		ids[i] = m.UserID
	}
	users, err := userstore.New(h.DB).ListByIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load member accounts", err, "A server error occurred.")
		return
	}
	byID := make(map[primitive.ObjectID]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	out := make([]memberView, len(ms))
	for i, m := range ms {
		out[i] = viewOf(m, byID[m.UserID])
	}
	uierrors.JSON(w, http.StatusOK, out)
}

// loadTarget resolves {memberID} within the gated project. It writes the
// error response itself and returns ok=false when the member is unusable.
func (h *Handler) loadTarget(ctx context.Context, w http.ResponseWriter, r *http.Request, mc *authz.MembershipContext) (*models.ProjectMember, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberID"))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid member id")
		return nil, false
	}
	m, err := membershipstore.New(h.DB).GetByID(ctx, mc.ProjectID, id)
	if errors.Is(err, membershipstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Member not found")
		return nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load member", err, "A server error occurred.")
		return nil, false
	}
	return m, true
}
