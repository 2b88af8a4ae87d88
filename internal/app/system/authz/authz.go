// Package authz decides what a user may do inside a project.
//
// A decision is made in two steps. Resolve turns (user, project) into a
// MembershipContext once per request; the Check functions then evaluate
// that snapshot against an action and the status of the resource involved.
//
// Rules:
//   - Global admins act as the owner of every project.
//   - Owner and admin are privileged and allowed every task and status action.
//   - Member and viewer are governed by permission rows: a row for the
//     status wins outright, otherwise the default row (no status) applies,
//     otherwise the action is denied.
package authz

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Email: The address users type to log in

import (
	"net/http"

	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the signed-in user as seen by the engine.
type Actor struct {
	UserID      primitive.ObjectID
	GlobalAdmin bool
}

// UserCtx returns the current user as an Actor, plus the display name.
// If no user is present or the session carries a malformed ID it returns
// ok=false, so callers can trust ok=true to mean a valid ObjectID.
func UserCtx(r *http.Request) (actor Actor, name string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return Actor{}, "", false
	}
	uid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session; fail closed.
		return Actor{}, "", false
	}
	return Actor{UserID: uid, GlobalAdmin: user.IsGlobalAdmin}, user.Name, true
}

// IsGlobalAdmin reports whether the current request's user is a global admin.
func IsGlobalAdmin(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	return ok && user.IsGlobalAdmin
}
