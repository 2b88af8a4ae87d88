// internal/domain/models/status.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is a board column. Slug is unique per project and Position
// orders the columns left to right.
type Status struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	Slug      string             `bson:"slug" json:"slug"`
	Title     string             `bson:"title" json:"title"`
	Color     string             `bson:"color" json:"color"`
	Icon      string             `bson:"icon" json:"icon"`
	Position  int                `bson:"position" json:"position"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	// UpdatedAt moves on every edit and whenever a task is written into the status.
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

const (
	DefaultStatusColor = "from-slate-700 to-slate-800"
	DefaultStatusIcon  = "📌"
)

// DefaultStatuses returns the columns seeded into every new project.
func DefaultStatuses(projectID primitive.ObjectID, now time.Time) []Status {
	return []Status{
		{ID: primitive.NewObjectID(), ProjectID: projectID, Slug: "todo", Title: "To Do", Color: "from-slate-700 to-slate-800", Icon: "📋", Position: 0, CreatedAt: now},
		{ID: primitive.NewObjectID(), ProjectID: projectID, Slug: "in_progress", Title: "In Progress", Color: "from-blue-700 to-blue-800", Icon: "⚡", Position: 1, CreatedAt: now},
		{ID: primitive.NewObjectID(), ProjectID: projectID, Slug: "done", Title: "Done", Color: "from-green-700 to-green-800", Icon: "✓", Position: 2, CreatedAt: now},
	}
}
