package authz

import (
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is an operation on a task in some status.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Grant is the four permission flags of one row.
type Grant struct {
	Read   bool `json:"can_read"`
	Create bool `json:"can_create"`
	Edit   bool `json:"can_edit"`
	Delete bool `json:"can_delete"`
}

// FullGrant allows everything.
var FullGrant = Grant{Read: true, Create: true, Edit: true, Delete: true}

// GrantOf extracts the flags from a stored row.
func GrantOf(p models.Permission) Grant {
	return Grant{Read: p.CanRead, Create: p.CanCreate, Edit: p.CanEdit, Delete: p.CanDelete}
}

// Allows reports whether g grants a.
func (g Grant) Allows(a Action) bool {
	switch a {
	case ActionRead:
		return g.Read
	case ActionCreate:
		return g.Create
	case ActionEdit:
		return g.Edit
	case ActionDelete:
		return g.Delete
	}
	return false
}

// PermissionIndex holds one member's rows keyed for lookup. Status rows and
// the default row are kept apart so "no default" is explicit.
type PermissionIndex struct {
	byStatus map[primitive.ObjectID]Grant
	fallback *Grant
}

// NewPermissionIndex builds an index from stored rows. Storage keeps keys
// unique; if duplicates slip through, the later row wins.
func NewPermissionIndex(rows []models.Permission) PermissionIndex {
	ix := PermissionIndex{byStatus: make(map[primitive.ObjectID]Grant, len(rows))}
	for _, p := range rows {
		g := GrantOf(p)
		if p.StatusID == nil {
			ix.fallback = &g
			continue
		}
		ix.byStatus[*p.StatusID] = g
	}
	return ix
}

// Lookup returns the grant that applies to statusID: the status row when
// present, otherwise the default row. A nil statusID consults only the
// default. ok is false when nothing applies.
func (ix PermissionIndex) Lookup(statusID *primitive.ObjectID) (Grant, bool) {
	if statusID != nil {
		if g, ok := ix.byStatus[*statusID]; ok {
			return g, true
		}
	}
	if ix.fallback != nil {
		return *ix.fallback, true
	}
	return Grant{}, false
}

// Len is the number of rows in the index, counting the default.
func (ix PermissionIndex) Len() int {
	n := len(ix.byStatus)
	if ix.fallback != nil {
		n++
	}
	return n
}
