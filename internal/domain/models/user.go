// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account that can sign in and join projects.
//
// NOTE:
//   - Project access is not embedded on User.
//     Use the project_members collection to discover a user's projects.
//   - IsGlobalAdmin bypasses every project-level check.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"` // lower-cased, unique
	Name          string             `bson:"name" json:"name"`
	NameCI        string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	PasswordHash  string             `bson:"password_hash" json:"-"`
	IsGlobalAdmin bool               `bson:"is_global_admin" json:"is_global_admin"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
