package authz

import (
	"context"

	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Source is the persistence the resolver needs.
// FindMembership returns (nil, nil) when the user is not a member.
type Source interface {
	FindMembership(ctx context.Context, projectID, userID primitive.ObjectID) (*models.ProjectMember, error)
	ListPermissions(ctx context.Context, projectMemberID primitive.ObjectID) ([]models.Permission, error)
}

// MembershipFinder and PermissionLister are the two halves of Source,
// usually backed by different stores.
type MembershipFinder interface {
	FindMembership(ctx context.Context, projectID, userID primitive.ObjectID) (*models.ProjectMember, error)
}

type PermissionLister interface {
	ListPermissions(ctx context.Context, projectMemberID primitive.ObjectID) ([]models.Permission, error)
}

type joined struct {
	MembershipFinder
	PermissionLister
}

// JoinSource combines a membership store and a permission store.
func JoinSource(m MembershipFinder, p PermissionLister) Source {
	return joined{m, p}
}

// Resolver turns an actor and project into a MembershipContext.
type Resolver struct {
	src Source
}

func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// Resolve loads the actor's membership in projectID.
//
// Global admins always resolve, with a synthetic owner context. Privileged
// members never have their permission rows loaded. A user with no
// membership gets ErrNotAMember.
func (r *Resolver) Resolve(ctx context.Context, actor Actor, projectID primitive.ObjectID) (*MembershipContext, error) {
	if actor.GlobalAdmin {
		// The membership only fills MemberID; a failed lookup never denies.
		m, err := r.src.FindMembership(ctx, projectID, actor.UserID)
		if err != nil {
			m = nil
		}
		return globalAdminContext(actor, projectID, m), nil
	}
	m, err := r.src.FindMembership(ctx, projectID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotAMember
	}
	if m.Role.IsPrivileged() {
		return NewContext(*m, nil), nil
	}
	rows, err := r.src.ListPermissions(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return NewContext(*m, rows), nil
}
