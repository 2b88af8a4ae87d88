// internal/app/store/permissions/permissionstore.go
package permissionstore

import (
	"context"
	"errors"

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
	return &Store{c: db.Collection("permissions")}
}

// ErrDuplicateKey is returned when two rows target the same status (or
// both are default rows) for one member.
var ErrDuplicateKey = errors.New("duplicate permission entry for a status")

// ListPermissions returns every row of one membership. Default row first.
func (s *Store) ListPermissions(ctx context.Context, memberID primitive.ObjectID) ([]models.Permission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "status_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"project_member_id": memberID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Permission{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceForMember deletes the member's rows and inserts rows in their
// place. Rows get fresh IDs and are stamped with the member and project.
// Callers wrap it in txn.Run so readers never see the empty set.
func (s *Store) ReplaceForMember(ctx context.Context, m models.ProjectMember, rows []models.Permission) ([]models.Permission, error) {
	if err := checkUniqueKeys(rows); err != nil {
		return nil, err
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"project_member_id": m.ID}); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.Permission{}, nil
	}

	out := make([]models.Permission, len(rows))
	docs := make([]interface{}, len(rows))
	for i, p := range rows {
		p.ID = primitive.NewObjectID()
		p.ProjectMemberID = m.ID
		p.ProjectID = m.ProjectID
		out[i] = p
		docs[i] = p
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return out, nil
}

func checkUniqueKeys(rows []models.Permission) error {
	seenDefault := false
	seen := make(map[primitive.ObjectID]bool, len(rows))
	for _, p := range rows {
		if p.StatusID == nil {
			if seenDefault {
				return ErrDuplicateKey
			}
			seenDefault = true
			continue
		}
		if seen[*p.StatusID] {
			return ErrDuplicateKey
		}
		seen[*p.StatusID] = true
	}
	return nil
}

// DeleteByMember removes all rows of one membership.
func (s *Store) DeleteByMember(ctx context.Context, memberID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_member_id": memberID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByMembers removes the rows of several memberships at once.
func (s *Store) DeleteByMembers(ctx context.Context, memberIDs []primitive.ObjectID) (int64, error) {
	if len(memberIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"project_member_id": bson.M{"$in": memberIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByStatus removes status-specific rows when a status goes away.
func (s *Store) DeleteByStatus(ctx context.Context, statusID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"status_id": statusID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByProject removes every row in a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
