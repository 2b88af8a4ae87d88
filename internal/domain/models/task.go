// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Priority is a task's urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task is a card on the board. StatusID always references a status of the
// same project; the status decides which permission row applies.
type Task struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectID   primitive.ObjectID  `bson:"project_id" json:"project_id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	StatusID    primitive.ObjectID  `bson:"status_id" json:"status_id"`
	Priority    Priority            `bson:"priority" json:"priority"`
	AssignedTo  *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	CreatedBy   primitive.ObjectID  `bson:"created_by" json:"created_by"`
	DueDate     *time.Time          `bson:"due_date,omitempty" json:"due_date,omitempty"`

	Checklist   []ChecklistItem `bson:"checklist" json:"checklist"`
	Attachments []Attachment    `bson:"attachments" json:"attachments"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ChecklistItem is one line of a task's checklist.
type ChecklistItem struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Text      string             `bson:"text" json:"text"`
	Completed bool               `bson:"completed" json:"completed"`
}

// Attachment describes an uploaded file. The bytes live in blob storage
// under Path; only metadata is kept on the task.
type Attachment struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	FileName     string             `bson:"file_name" json:"file_name"`
	OriginalName string             `bson:"original_name" json:"original_name"`
	ContentType  string             `bson:"content_type" json:"content_type"`
	Size         int64              `bson:"size" json:"size"`
	Path         string             `bson:"path" json:"path"`
	UploadedBy   primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploaded_at"`
}
