// internal/domain/models/permission.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Permission is one grant row for a member or viewer.
//
// StatusID nil is the member's default grant; a non-nil StatusID applies
// to that status only. (project_member_id, status_id) is unique, with nil
// counted as a key. Rows belonging to owner or admin members are ignored.
type Permission struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectMemberID primitive.ObjectID  `bson:"project_member_id" json:"project_member_id"`
	ProjectID       primitive.ObjectID  `bson:"project_id" json:"project_id"`
	StatusID        *primitive.ObjectID `bson:"status_id" json:"status_id"`

	CanRead   bool `bson:"can_read" json:"can_read"`
	CanCreate bool `bson:"can_create" json:"can_create"`
	CanEdit   bool `bson:"can_edit" json:"can_edit"`
	CanDelete bool `bson:"can_delete" json:"can_delete"`
}
