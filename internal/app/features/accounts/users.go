// internal/app/features/accounts/users.go
package accounts

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/app/system/txn"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errOwnsProjects = errors.New("user owns projects; transfer or delete them first")

// ServeUsers handles GET /users. Any signed-in user may list accounts so
// owners can pick people to add.
func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users, err := userstore.New(h.DB).List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, users)
}

type updateUserInput struct {
	Name          *string `json:"name"`
	Password      *string `json:"password"`
	IsGlobalAdmin *bool   `json:"is_global_admin"`
}

// HandleUpdateUser handles PATCH /users/{id}. Global admins may change any
// field of anyone; other users may change their own name and password.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	actor, _ := auth.CurrentUser(r)

	targetID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var in updateUserInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	upd := userstore.Update{Name: in.Name, Password: in.Password, IsGlobalAdmin: in.IsGlobalAdmin}
	if upd.Empty() {
		uierrors.Error(w, http.StatusBadRequest, "No fields to update")
		return
	}

	self := targetID == actorID
	switch {
	case !actor.IsGlobalAdmin && !self:
		uierrors.Error(w, http.StatusForbidden, "global admin access required")
		return
	case !actor.IsGlobalAdmin && in.IsGlobalAdmin != nil:
		uierrors.Error(w, http.StatusForbidden, "only a global admin can change admin status")
		return
	case self && in.IsGlobalAdmin != nil && !*in.IsGlobalAdmin:
		uierrors.Error(w, http.StatusBadRequest, "cannot remove your own global admin status")
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		uierrors.Error(w, http.StatusBadRequest, "Name is required.")
		return
	}
	if in.Password != nil && *in.Password == "" {
		uierrors.Error(w, http.StatusBadRequest, "Password is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).Update(ctx, targetID, upd)
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update user", err, "Could not update user.")
		return
	}

	h.AuditLog.UserUpdated(ctx, r, actorID, targetID, changedFields(in))
	uierrors.JSON(w, http.StatusOK, u)
}

func changedFields(in updateUserInput) string {
	var f []string
	if in.Name != nil {
		f = append(f, "name")
	}
	if in.Password != nil {
		f = append(f, "password")
	}
	if in.IsGlobalAdmin != nil {
		f = append(f, "is_global_admin")
	}
	return strings.Join(f, ",")
}

// HandleDeleteUser handles DELETE /users/{id} (global admin only). A user
// who still owns projects is refused; otherwise their memberships,
// permission rows, and task assignments go with them.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if targetID == actorID {
		uierrors.Error(w, http.StatusBadRequest, "Cannot delete yourself")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users := userstore.New(h.DB)
	members := membershipstore.New(h.DB)
	if _, err := users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			uierrors.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "load user", err, "A server error occurred.")
		return
	}
	owned, err := members.CountOwnedByUser(ctx, targetID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count owned projects", err, "A server error occurred.")
		return
	}
	if owned > 0 {
		uierrors.Error(w, http.StatusConflict, errOwnsProjects.Error())
		return
	}

	err = txn.Run(ctx, h.DB.Client(), h.Log, "delete user", func(ctx context.Context) error {
		ms, err := members.ListByUser(ctx, targetID)
		if err != nil {
			return err
		}
		ids := make([]primitive.ObjectID, len(ms))
		for i, m := range ms {
			ids[i] = m.ID
		}
		if _, err := permissionstore.New(h.DB).DeleteByMembers(ctx, ids); err != nil {
			return err
		}
		if _, err := members.DeleteByUser(ctx, targetID); err != nil {
			return err
		}
		if _, err := taskstore.New(h.DB).UnassignUser(ctx, nil, targetID); err != nil {
			return err
		}
		_, err = users.Delete(ctx, targetID)
		return err
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete user", err, "Could not delete user.")
		return
	}

	h.AuditLog.UserDeleted(ctx, r, actorID, targetID)
	h.Log.Info("user deleted", zap.String("user_id", targetID.Hex()), zap.String("actor_id", actorID.Hex()))
	uierrors.NoContent(w)
}
