// internal/app/store/statuses/statusstore.go
package statusstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/taskboard/internal/app/system/normalize"
	"github.com/dalemusser/taskboard/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c     *mongo.Collection
	tasks *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("statuses"),
		tasks: db.Collection("tasks"),
	}
}

var (
	// ErrDuplicateSlug is returned when the project already has a status with the slug.
	ErrDuplicateSlug = errors.New("status with this slug already exists")
	// ErrNotFound is returned when the status does not exist.
	ErrNotFound = errors.New("status not found")
	// ErrLastStatus is returned when deleting would leave the project with no status.
	ErrLastStatus = errors.New("cannot delete the last status")
	// ErrInUse is returned when tasks still reference the status.
	ErrInUse = errors.New("cannot delete status with existing tasks; move or delete tasks first")
	// ErrForeignStatus is returned when an ID does not belong to the project.
	ErrForeignStatus = errors.New("status does not belong to this project")

	errTitleRequired = errors.New("title is required")
	errSlugRequired  = errors.New("slug must contain letters or digits")
)

// ListByProject returns the project's statuses ordered by position.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Status, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Status{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID loads a status by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Status, error) {
	var st models.Status
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&st); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// GetInProject loads a status and checks it belongs to projectID.
// A status of another project yields ErrForeignStatus.
func (s *Store) GetInProject(ctx context.Context, projectID, id primitive.ObjectID) (*models.Status, error) {
	st, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrForeignStatus
		}
		return nil, err
	}
	if st.ProjectID != projectID {
		return nil, ErrForeignStatus
	}
	return st, nil
}

// First returns the leftmost status of a project.
func (s *Store) First(ctx context.Context, projectID primitive.ObjectID) (*models.Status, error) {
	var st models.Status
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}})
	if err := s.c.FindOne(ctx, bson.M{"project_id": projectID}, opts).Decode(&st); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// CreateDefaults seeds a new project with the default columns.
func (s *Store) CreateDefaults(ctx context.Context, projectID primitive.ObjectID) ([]models.Status, error) {
	sts := models.DefaultStatuses(projectID, time.Now().UTC())
	docs := make([]interface{}, len(sts))
	for i, st := range sts {
		docs[i] = st
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		return nil, err
	}
	return sts, nil
}

// Create appends a status after the project's last column. An empty
// slug is derived from the title; color and icon fall back to defaults.
func (s *Store) Create(ctx context.Context, st models.Status) (models.Status, error) {
	st.Title = strings.TrimSpace(st.Title)
	if st.Title == "" {
		return models.Status{}, errTitleRequired
	}
	if st.Slug == "" {
		st.Slug = normalize.Slug(st.Title)
	} else {
		st.Slug = normalize.Slug(st.Slug)
	}
	if st.Slug == "" {
		return models.Status{}, errSlugRequired
	}
	if st.Color == "" {
		st.Color = models.DefaultStatusColor
	}
	if st.Icon == "" {
		st.Icon = models.DefaultStatusIcon
	}

	pos, err := s.nextPosition(ctx, st.ProjectID)
	if err != nil {
		return models.Status{}, err
	}
	st.ID = primitive.NewObjectID()
	st.Position = pos
	st.CreatedAt = time.Now().UTC()

	if _, err := s.c.InsertOne(ctx, st); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Status{}, ErrDuplicateSlug
		}
		return models.Status{}, err
	}
	return st, nil
}

func (s *Store) nextPosition(ctx context.Context, projectID primitive.ObjectID) (int, error) {
	var last models.Status
	opts := options.FindOne().
		SetSort(bson.D{{Key: "position", Value: -1}}).
		SetProjection(bson.M{"position": 1})
	err := s.c.FindOne(ctx, bson.M{"project_id": projectID}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Position + 1, nil
}

// Update holds optional changes; nil fields are left untouched.
type Update struct {
	Title *string
	Color *string
	Icon  *string
}

// Empty reports whether upd changes nothing.
func (upd Update) Empty() bool {
	return upd.Title == nil && upd.Color == nil && upd.Icon == nil
}

// Update applies upd and returns the stored status.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Status, error) {
	set := bson.M{}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, errTitleRequired
		}
		set["title"] = title
	}
	if upd.Color != nil {
		set["color"] = *upd.Color
	}
	if upd.Icon != nil {
		set["icon"] = *upd.Icon
	}
	if len(set) == 0 {
		return s.GetByID(ctx, id)
	}
	set["updated_at"] = time.Now().UTC()

	var st models.Status
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&st)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// Delete removes a status unless it is the project's last one or tasks
// still reference it. Tasks are counted after the delete and the status is
// put back if any turned up, so a task written before the delete is always
// seen. Task writes that land later find the status gone in Touch.
func (s *Store) Delete(ctx context.Context, st models.Status) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"project_id": st.ProjectID}, options.Count().SetLimit(2))
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastStatus
	}

	var gone models.Status
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": st.ID}).Decode(&gone); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}

	used, err := s.tasks.CountDocuments(ctx, bson.M{"status_id": st.ID}, options.Count().SetLimit(1))
	if err == nil && used == 0 {
		return nil
	}
	if _, rerr := s.c.InsertOne(ctx, gone); rerr != nil {
		return fmt.Errorf("restore status %s: %w", gone.ID.Hex(), rerr)
	}
	if err != nil {
		return err
	}
	return ErrInUse
}

// Touch bumps updated_at on a status of projectID. Task writes call it after
// storing a task in the status so they collide with a concurrent Delete. A
// status that is already gone yields ErrForeignStatus and the caller undoes
// its task write.
func (s *Store) Touch(ctx context.Context, projectID, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "project_id": projectID},
		bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrForeignStatus
	}
	return nil
}

// Reorder sets each status's position to its index in ids. Every ID must
// belong to projectID; statuses not listed keep their position.
func (s *Store) Reorder(ctx context.Context, projectID primitive.ObjectID, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"project_id": projectID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return ErrForeignStatus
	}

	writes := make([]mongo.WriteModel, len(ids))
	for i, id := range ids {
		writes[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id, "project_id": projectID}).
			SetUpdate(bson.M{"$set": bson.M{"position": i}})
	}
	_, err = s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	return err
}

// DeleteByProject removes all statuses for a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
