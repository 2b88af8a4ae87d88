// internal/app/features/members/add.go
package members

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/policy/memberpolicy"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/app/system/txn"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type addInput struct {
	UserID string `json:"user_id" validate:"required,objectid" label:"User"`
	Role   string `json:"role" validate:"omitempty,projectrole" label:"Role"`
}

type createAndAddInput struct {
	Email    string `json:"email" validate:"required,emailaddr" label:"Email"`
	Name     string `json:"name" validate:"required,max=200" label:"Name"`
	Password string `json:"password" validate:"required" label:"Password"`
	Role     string `json:"role" validate:"omitempty,projectrole" label:"Role"`
}

// roleOrDefault returns the requested role, member when none was given.
func roleOrDefault(s string) models.Role {
	if s == "" {
		return models.RoleMember
	}
	return models.Role(s)
}

// HandleAdd handles POST /. It adds an existing user with the requested
// role (member by default) and seeds the role's default permission rows.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	var in addInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, res.First())
		return
	}
	role := roleOrDefault(in.Role)
	if err := memberpolicy.CanAdd(mc, role); err != nil {
		h.ErrLog.Handle(w, r, "add member", err)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(in.UserID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := userstore.New(h.DB).GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user", err, "A server error occurred.")
		return
	}

	m, err := h.addMember(ctx, mc.ProjectID, u.ID, role)
	if err != nil {
		h.ErrLog.Handle(w, r, "add member", err)
		return
	}

	h.AuditLog.MemberAdded(ctx, r, mc.UserID, mc.ProjectID, u.ID, string(role), "direct")
	h.Log.Info("member added",
		zap.String("project_id", mc.ProjectID.Hex()),
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", string(role)))
	uierrors.JSON(w, http.StatusCreated, viewOf(m, u))
}

// HandleCreateAndAdd handles POST /create. It registers a new account and
// adds it to the project in one step.
func (h *Handler) HandleCreateAndAdd(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	var in createAndAddInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, res.First())
		return
	}
	role := roleOrDefault(in.Role)
	if err := memberpolicy.CanAdd(mc, role); err != nil {
		h.ErrLog.Handle(w, r, "create member", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := userstore.New(h.DB).Create(ctx, models.User{Email: in.Email, Name: in.Name}, in.Password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		uierrors.Error(w, http.StatusBadRequest, "Email already exists")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user", err, "Could not create account.")
		return
	}
	h.AuditLog.UserCreated(ctx, r, mc.UserID, u.ID)

	m, err := h.addMember(ctx, mc.ProjectID, u.ID, role)
	if err != nil {
		h.ErrLog.Handle(w, r, "add member", err)
		return
	}

	h.AuditLog.MemberAdded(ctx, r, mc.UserID, mc.ProjectID, u.ID, string(role), "created")
	h.Log.Info("member created",
		zap.String("project_id", mc.ProjectID.Hex()),
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", string(role)))
	uierrors.JSON(w, http.StatusCreated, viewOf(m, &u))
}

// addMember writes the membership and its default rows together.
func (h *Handler) addMember(ctx context.Context, projectID, userID primitive.ObjectID, role models.Role) (models.ProjectMember, error) {
	var m models.ProjectMember
	err := txn.Run(ctx, h.DB.Client(), h.Log, "add member", func(ctx context.Context) error {
		var err error
		m, err = membershipstore.New(h.DB).Add(ctx, projectID, userID, role)
		if errors.Is(err, membershipstore.ErrDuplicateMembership) {
			return uierrors.Conflict(authz.ErrAlreadyMember)
		}
		if err != nil {
			return err
		}
		_, err = permissionstore.New(h.DB).ReplaceForMember(ctx, m, memberpolicy.DefaultPermissions(role))
		return err
	})
	return m, err
}
