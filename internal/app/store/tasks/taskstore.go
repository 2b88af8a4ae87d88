// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

var (
	// ErrNotFound is returned when the task does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrAttachmentNotFound is returned when the task has no such attachment.
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrNoChanges is returned by Update when nothing would change.
	ErrNoChanges = errors.New("no fields to update")
	// ErrStatusChanged is returned by the InStatus writes when the task has
	// left the status the caller authorized against.
	ErrStatusChanged = errors.New("task status changed")

	errTitleRequired = errors.New("title is required")
	errBadPriority   = errors.New(`priority must be "low"|"medium"|"high"`)
)

// Create inserts a task. Priority defaults to medium.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return models.Task{}, errTitleRequired
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if !t.Priority.IsValid() {
		return models.Task{}, errBadPriority
	}
	if t.Checklist == nil {
		t.Checklist = []models.ChecklistItem{}
	}
	if t.Attachments == nil {
		t.Attachments = []models.Attachment{}
	}

	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// GetByID loads a task by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByProject returns a project's tasks, newest first. Callers filter by
// read permission.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return s.find(ctx, bson.M{"project_id": projectID}, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Task, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds optional changes; nil fields are left untouched.
// ClearAssignee and ClearDueDate remove the field and win over a value.
type Update struct {
	Title         *string
	Description   *string
	StatusID      *primitive.ObjectID
	Priority      *models.Priority
	AssignedTo    *primitive.ObjectID
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
}

// Empty reports whether upd changes nothing.
func (upd Update) Empty() bool {
	return upd.Title == nil && upd.Description == nil && upd.StatusID == nil &&
		upd.Priority == nil && upd.AssignedTo == nil && !upd.ClearAssignee &&
		upd.DueDate == nil && !upd.ClearDueDate
}

// Update applies upd and returns the stored task.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Task, error) {
	return s.update(ctx, bson.M{"_id": id}, upd)
}

// UpdateInStatus applies upd only while the task is still in statusID.
func (s *Store) UpdateInStatus(ctx context.Context, id, statusID primitive.ObjectID, upd Update) (*models.Task, error) {
	t, err := s.update(ctx, bson.M{"_id": id, "status_id": statusID}, upd)
	if errors.Is(err, ErrNotFound) {
		return nil, s.missReason(ctx, id)
	}
	return t, err
}

// missReason tells a deleted task from one that moved out of the guarded status.
func (s *Store) missReason(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}

func (s *Store) update(ctx context.Context, filter bson.M, upd Update) (*models.Task, error) {
	if upd.Empty() {
		return nil, ErrNoChanges
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, errTitleRequired
		}
		set["title"] = title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.StatusID != nil {
		set["status_id"] = *upd.StatusID
	}
	if upd.Priority != nil {
		if !upd.Priority.IsValid() {
			return nil, errBadPriority
		}
		set["priority"] = *upd.Priority
	}
	switch {
	case upd.ClearAssignee:
		unset["assigned_to"] = ""
	case upd.AssignedTo != nil:
		set["assigned_to"] = *upd.AssignedTo
	}
	switch {
	case upd.ClearDueDate:
		unset["due_date"] = ""
	case upd.DueDate != nil:
		set["due_date"] = upd.DueDate.UTC()
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Task, error) {
	var t models.Task
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// SetChecklist replaces the checklist. Items without an ID get one.
func (s *Store) SetChecklist(ctx context.Context, id primitive.ObjectID, items []models.ChecklistItem) (*models.Task, error) {
	return s.setChecklist(ctx, bson.M{"_id": id}, items)
}

// SetChecklistInStatus is SetChecklist guarded by the task's current status.
func (s *Store) SetChecklistInStatus(ctx context.Context, id, statusID primitive.ObjectID, items []models.ChecklistItem) (*models.Task, error) {
	t, err := s.setChecklist(ctx, bson.M{"_id": id, "status_id": statusID}, items)
	if errors.Is(err, ErrNotFound) {
		return nil, s.missReason(ctx, id)
	}
	return t, err
}

func (s *Store) setChecklist(ctx context.Context, filter bson.M, items []models.ChecklistItem) (*models.Task, error) {
	clean := make([]models.ChecklistItem, 0, len(items))
	for _, it := range items {
		it.Text = strings.TrimSpace(it.Text)
		if it.Text == "" {
			continue
		}
		if it.ID.IsZero() {
			it.ID = primitive.NewObjectID()
		}
		clean = append(clean, it)
	}
	return s.findOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{
		"checklist":  clean,
		"updated_at": time.Now().UTC(),
	}})
}

// AddAttachment appends attachment metadata to a task.
func (s *Store) AddAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment) (*models.Task, error) {
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"attachments": a},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveAttachment pulls one attachment and returns its metadata so the
// caller can delete the stored bytes.
func (s *Store) RemoveAttachment(ctx context.Context, id, attachmentID primitive.ObjectID) (*models.Attachment, error) {
	var before models.Task
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "attachments._id": attachmentID},
		bson.M{
			"$pull": bson.M{"attachments": bson.M{"_id": attachmentID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	for _, a := range before.Attachments {
		if a.ID == attachmentID {
			return &a, nil
		}
	}
	return nil, ErrAttachmentNotFound
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInStatus removes a task only while it is still in statusID.
func (s *Store) DeleteInStatus(ctx context.Context, id, statusID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status_id": statusID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return s.missReason(ctx, id)
	}
	return nil
}

// DeleteByProject removes all tasks of a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UnassignUser clears assigned_to wherever it points at userID, within
// projectID when non-nil or everywhere otherwise.
func (s *Store) UnassignUser(ctx context.Context, projectID *primitive.ObjectID, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{"assigned_to": userID}
	if projectID != nil {
		filter["project_id"] = *projectID
	}
	res, err := s.c.UpdateMany(ctx, filter, bson.M{"$unset": bson.M{"assigned_to": ""}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListAttachmentPaths returns the blob paths of every attachment in a
// project, for cleanup on project deletion.
func (s *Store) ListAttachmentPaths(ctx context.Context, projectID primitive.ObjectID) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"attachments.path": 1})
	tasks, err := s.find(ctx, bson.M{"project_id": projectID, "attachments.0": bson.M{"$exists": true}}, opts)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, t := range tasks {
		for _, a := range t.Attachments {
			paths = append(paths, a.Path)
		}
	}
	return paths, nil
}

// CountPerProject returns a map of project IDs to task counts.
func (s *Store) CountPerProject(ctx context.Context, projectIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	result := make(map[primitive.ObjectID]int)
	if len(projectIDs) == 0 {
		return result, nil
	}

	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"project_id": bson.M{"$in": projectIDs}}},
		{"$group": bson.M{"_id": "$project_id", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.ID] = row.N
	}
	return result, cur.Err()
}

// Search runs a text query over title and description in the given
// projects, best match first. Requires the text index from EnsureSchema.
func (s *Store) Search(ctx context.Context, q string, projectIDs []primitive.ObjectID, limit int64) ([]models.Task, error) {
	if len(projectIDs) == 0 || strings.TrimSpace(q) == "" {
		return []models.Task{}, nil
	}
	filter := bson.M{
		"$text":      bson.M{"$search": q},
		"project_id": bson.M{"$in": projectIDs},
	}
	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}).
		SetLimit(limit)
	return s.find(ctx, filter, opts)
}
