package authz

import (
	"time"

	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckPermission decides whether mc may perform action on a resource in
// statusID. A nil statusID checks the default grant only.
func CheckPermission(mc *MembershipContext, action Action, statusID *primitive.ObjectID) Decision {
	if mc == nil {
		return deny(ErrNotAMember)
	}
	if mc.IsPrivileged() {
		return allow()
	}
	g, ok := mc.perms.Lookup(statusID)
	if !ok {
		return deny(ErrNoPermissionRecord)
	}
	if !g.Allows(action) {
		return deny(ErrActionNotGranted)
	}
	return allow()
}

// CheckTransition decides whether mc may move a task from one status to
// another: edit on the source and create on the destination.
func CheckTransition(mc *MembershipContext, from, to primitive.ObjectID) Decision {
	if d := CheckPermission(mc, ActionEdit, &from); !d.Allowed {
		return d
	}
	return CheckPermission(mc, ActionCreate, &to)
}

// RequireRole allows mc when its role is one of roles. Global admins
// always pass.
func RequireRole(mc *MembershipContext, roles ...models.Role) Decision {
	if mc == nil {
		return deny(ErrNotAMember)
	}
	if mc.GlobalAdmin {
		return allow()
	}
	for _, r := range roles {
		if mc.Role == r {
			return allow()
		}
	}
	return deny(ErrInsufficientRole)
}

// FilterReadable keeps the items whose status allows read. Denied items
// are dropped without error.
func FilterReadable[T any](mc *MembershipContext, items []T, statusOf func(T) primitive.ObjectID) []T {
	if mc == nil {
		return nil
	}
	if mc.IsPrivileged() {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		sid := statusOf(it)
		if CheckPermission(mc, ActionRead, &sid).Allowed {
			out = append(out, it)
		}
	}
	return out
}

// CheckInvite reports whether inv can still be redeemed at now.
func CheckInvite(inv *models.Invite, now time.Time) error {
	if inv == nil {
		return ErrInviteInvalid
	}
	if inv.ExpiresAt != nil && !now.Before(*inv.ExpiresAt) {
		return ErrInviteExpired
	}
	if inv.MaxUses != nil && inv.UsedCount >= *inv.MaxUses {
		return ErrInviteExhausted
	}
	return nil
}
