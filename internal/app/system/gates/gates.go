// Package gates resolves the caller's project membership for HTTP handlers.
//
// # Two-Tier Authorization Pattern
//
//  1. Route-level middleware (auth.RequireSignedIn, Gate.LoadMembership,
//     RequireProjectRole) applied in routes.go. LoadMembership resolves the
//     MembershipContext once and stores it in the request context.
//
//  2. Engine checks (authz.CheckPermission, authz.CheckTransition,
//     memberpolicy, commentpolicy) inside handlers, against the stored
//     context and the status of the resource being touched.
//
// Routes addressed by a task, status, or comment ID learn the project only
// after loading the resource; those handlers call Gate.Resolve directly.
package gates

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ctxKey struct{}

// WithMembership stores mc in ctx.
func WithMembership(ctx context.Context, mc *authz.MembershipContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, mc)
}

// MembershipFrom returns the context stored by LoadMembership.
func MembershipFrom(ctx context.Context) (*authz.MembershipContext, bool) {
	mc, ok := ctx.Value(ctxKey{}).(*authz.MembershipContext)
	return mc, ok && mc != nil
}

// Gate wraps the membership resolver with HTTP error handling.
type Gate struct {
	resolver *authz.Resolver
	errLog   *uierrors.ErrorLogger
}

func New(resolver *authz.Resolver, errLog *uierrors.ErrorLogger) *Gate {
	return &Gate{resolver: resolver, errLog: errLog}
}

// Resolve resolves the signed-in caller in projectID. On failure it has
// already written the response and returns ok=false.
func (g *Gate) Resolve(w http.ResponseWriter, r *http.Request, projectID primitive.ObjectID) (*authz.MembershipContext, bool) {
	actor, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	mc, err := g.resolver.Resolve(r.Context(), actor, projectID)
	if err != nil {
		g.errLog.Handle(w, r, "resolve membership", err)
		return nil, false
	}
	return mc, true
}

// Lookup resolves actor in projectID without writing a response. It
// serves handlers that span several projects and skip the ones the
// actor cannot see.
func (g *Gate) Lookup(ctx context.Context, actor authz.Actor, projectID primitive.ObjectID) (*authz.MembershipContext, error) {
	return g.resolver.Resolve(ctx, actor, projectID)
}

// LoadMembership resolves the caller in the project named by the chi URL
// parameter and stores the result for handlers and RequireProjectRole.
func (g *Gate) LoadMembership(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
			if err != nil {
				uierrors.Error(w, http.StatusBadRequest, "invalid project id")
				return
			}
			mc, ok := g.Resolve(w, r, projectID)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(WithMembership(r.Context(), mc)))
		})
	}
}

// RequireProjectRole rejects requests whose stored membership role is not
// one of roles. Global admins pass. It must run after LoadMembership.
func RequireProjectRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mc, ok := MembershipFrom(r.Context())
			if !ok {
				uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
				return
			}
			if err := authz.RequireRole(mc, roles...).Err(); err != nil {
				uierrors.Error(w, http.StatusForbidden, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
