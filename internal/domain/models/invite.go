// internal/domain/models/invite.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invite is a shareable code that grants a project role when redeemed.
//
// MaxUses nil means unlimited; ExpiresAt nil means it never expires.
// UsedCount only grows through the guarded increment in the invite store.
type Invite struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	Code      string             `bson:"code" json:"code"`
	Role      Role               `bson:"role" json:"role"`
	MaxUses   *int               `bson:"max_uses" json:"max_uses"`
	UsedCount int                `bson:"used_count" json:"used_count"`
	ExpiresAt *time.Time         `bson:"expires_at" json:"expires_at"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
