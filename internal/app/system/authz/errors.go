package authz

import "errors"

var (
	// ErrNotAMember: the actor has no membership in the project.
	ErrNotAMember = errors.New("you are not a member of this project")
	// ErrNoPermissionRecord: neither a status row nor a default row exists.
	ErrNoPermissionRecord = errors.New("no permission for this status")
	// ErrActionNotGranted: a row exists but the action's flag is false.
	ErrActionNotGranted = errors.New("action not permitted for this status")
	// ErrInsufficientRole: the operation needs a role the actor lacks.
	ErrInsufficientRole = errors.New("insufficient project role")
	// ErrInvalidRoleAssignment: owner assignment, an admin acting on another
	// admin, or another forbidden role change.
	ErrInvalidRoleAssignment = errors.New("invalid role assignment")

	ErrInviteInvalid   = errors.New("invite code is not valid")
	ErrInviteExpired   = errors.New("invite has expired")
	ErrInviteExhausted = errors.New("invite has no uses left")
	ErrAlreadyMember   = errors.New("user is already a member of this project")
)

// Decision is the outcome of a check. A denied decision always carries
// one of the sentinel errors above as its Reason.
type Decision struct {
	Allowed bool
	Reason  error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason error) Decision { return Decision{Reason: reason} }

// Err returns nil for an allowed decision and the reason otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}

// IsDenial reports whether err is one of the engine's authorization
// failures (as opposed to a storage or validation error).
func IsDenial(err error) bool {
	return errors.Is(err, ErrNotAMember) ||
		errors.Is(err, ErrNoPermissionRecord) ||
		errors.Is(err, ErrActionNotGranted) ||
		errors.Is(err, ErrInsufficientRole) ||
		errors.Is(err, ErrInvalidRoleAssignment)
}
