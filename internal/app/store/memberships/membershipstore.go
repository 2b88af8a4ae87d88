// internal/app/store/memberships/membershipstore.go
package membershipstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - MemberID / memberID: The ProjectMember _id, which permission rows reference

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/taskboard/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("project_members")}
}

var (
	// ErrDuplicateMembership is returned when the user already belongs to the project.
	ErrDuplicateMembership = errors.New("user is already a member of this project")
	// ErrNotFound is returned when the membership does not exist.
	ErrNotFound = errors.New("membership not found")

	errBadRole = errors.New(`role must be "owner"|"admin"|"member"|"viewer"`)
)

// Add creates a membership. Owner is accepted here because project creation
// writes the owner row; role assignment rules live in memberpolicy.
func (s *Store) Add(ctx context.Context, projectID, userID primitive.ObjectID, role models.Role) (models.ProjectMember, error) {
	if !role.IsValid() {
		return models.ProjectMember{}, errBadRole
	}
	m := models.ProjectMember{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ProjectMember{}, ErrDuplicateMembership
		}
		return models.ProjectMember{}, err
	}
	return m, nil
}

// FindMembership returns (nil, nil) when userID has no membership in
// projectID. It satisfies authz.Source together with the permission store.
func (s *Store) FindMembership(ctx context.Context, projectID, userID primitive.ObjectID) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := s.c.FindOne(ctx, bson.M{"project_id": projectID, "user_id": userID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID loads a membership and checks it belongs to projectID.
func (s *Store) GetByID(ctx context.Context, projectID, memberID primitive.ObjectID) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := s.c.FindOne(ctx, bson.M{"_id": memberID, "project_id": projectID}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListByProject returns the project's memberships, oldest first.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.ProjectMember, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ProjectMember{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns every membership held by userID.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.ProjectMember, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ProjectMember{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRole changes the role of a non-owner membership.
func (s *Store) UpdateRole(ctx context.Context, memberID primitive.ObjectID, role models.Role) error {
	if !role.IsValid() {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": memberID, "role": bson.M{"$ne": models.RoleOwner}},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a non-owner membership.
func (s *Store) Delete(ctx context.Context, memberID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": memberID, "role": bson.M{"$ne": models.RoleOwner}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByProject removes all memberships for a project.
// Returns the number of documents deleted.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all memberships for a user.
// Returns the number of documents deleted.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountOwnedByUser returns how many projects userID owns.
func (s *Store) CountOwnedByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "role": models.RoleOwner})
}

// CountPerProject returns a map of project IDs to member counts.
// This is a batch operation that aggregates counts for many projects in one query.
func (s *Store) CountPerProject(ctx context.Context, projectIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	return countBy(ctx, s.c, "project_id", projectIDs)
}

// countBy groups documents whose field is in ids and counts them.
func countBy(ctx context.Context, c *mongo.Collection, field string, ids []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	result := make(map[primitive.ObjectID]int)
	if len(ids) == 0 {
		return result, nil
	}

	cur, err := c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{field: bson.M{"$in": ids}}},
		{"$group": bson.M{"_id": "$" + field, "n": bson.M{"$sum": 1}}},
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
