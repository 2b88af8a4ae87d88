// internal/app/features/accounts/session.go
package accounts

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	audit "github.com/dalemusser/taskboard/internal/app/store/audit"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type registerInput struct {
	Email    string `json:"email" validate:"required,emailaddr" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
	Name     string `json:"name" validate:"required,max=200" label:"Name"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type loginResponse struct {
	Token     string      `json:"token,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	User      models.User `json:"user"`
}

// HandleRegister handles POST /register. The first account becomes a
// global admin.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).Create(ctx, models.User{Email: in.Email, Name: in.Name}, in.Password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		uierrors.Error(w, http.StatusBadRequest, "Email already exists")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register user", err, "Could not create account.")
		return
	}

	h.AuditLog.UserRegistered(ctx, r, u.ID, u.IsGlobalAdmin)
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.Bool("global_admin", u.IsGlobalAdmin))
	uierrors.JSON(w, http.StatusCreated, u)
}

// HandleLogin handles POST /login. It answers {token, user} and also sets
// the session cookie so browser clients need no token handling.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, in.Email); !ok {
			h.AuditLog.LoginFailed(r.Context(), r, audit.EventLoginFailedRateLimit, nil, in.Email, "rate limited")
			uierrors.Error(w, http.StatusTooManyRequests, reason)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).GetByEmail(ctx, in.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, in.Email, "unknown email")
		uierrors.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login lookup", err, "A server error occurred.")
		return
	}
	if !userstore.CheckPassword(u, in.Password) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &u.ID, u.Email, "wrong password")
		uierrors.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	su := sessionUser(u)
	if err := h.Sessions.Login(w, r, su); err != nil {
		h.ErrLog.LogServerError(w, r, "save session", err, "Could not sign in.")
		return
	}

	resp := loginResponse{User: *u}
	if tokens := h.Sessions.Tokens(); tokens != nil {
		tok, exp, err := tokens.Issue(su.ID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "issue token", err, "Could not sign in.")
			return
		}
		resp.Token = tok
		resp.ExpiresAt = &exp
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)
	uierrors.JSON(w, http.StatusOK, resp)
}

// HandleLogout handles POST /logout. Bearer tokens stay valid until they
// expire; only the cookie session is cleared.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		if uid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
			h.AuditLog.Logout(r.Context(), r, uid)
		}
	}
	if err := h.Sessions.Logout(w, r); err != nil {
		h.Log.Warn("logout: clear session", zap.Error(err))
	}
	uierrors.NoContent(w)
}

// ServeMe handles GET /me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load current user", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, u)
}

func sessionUser(u *models.User) *auth.SessionUser {
	return &auth.SessionUser{
		ID:            u.ID.Hex(),
		Name:          u.Name,
		Email:         u.Email,
		IsGlobalAdmin: u.IsGlobalAdmin,
	}
}

// currentUserID returns the signed-in user's ID, answering 401 otherwise.
func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Error(w, http.StatusUnauthorized, "authentication required")
		return primitive.NilObjectID, false
	}
	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		uierrors.Error(w, http.StatusUnauthorized, "authentication required")
		return primitive.NilObjectID, false
	}
	return uid, true
}
