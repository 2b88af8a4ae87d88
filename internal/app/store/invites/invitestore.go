// internal/app/store/invites/invitestore.go
package invitestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection("project_invites"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

var (
	// ErrNotFound is returned when the invite does not exist.
	ErrNotFound = errors.New("invite not found")

	errBadMaxUses = errors.New("max_uses must be at least 1")
)

// NewCode returns an opaque, URL-safe invite code.
func NewCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create inserts an invite with a fresh code. Owner is never an invitable
// role; the caller checks that with authz/memberpolicy first.
func (s *Store) Create(ctx context.Context, inv models.Invite) (models.Invite, error) {
	if !inv.Role.IsAssignable() {
		return models.Invite{}, authz.ErrInvalidRoleAssignment
	}
	if inv.MaxUses != nil && *inv.MaxUses < 1 {
		return models.Invite{}, errBadMaxUses
	}
	inv.ID = primitive.NewObjectID()
	inv.UsedCount = 0
	inv.CreatedAt = s.now()

	// A code collision is astronomically unlikely; retry once anyway.
	for attempt := 0; ; attempt++ {
		inv.Code = NewCode()
		_, err := s.c.InsertOne(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !wafflemongo.IsDup(err) || attempt > 0 {
			return models.Invite{}, err
		}
	}
}

// GetByCode loads an invite without judging its validity.
func (s *Store) GetByCode(ctx context.Context, code string) (*models.Invite, error) {
	var inv models.Invite
	if err := s.c.FindOne(ctx, bson.M{"code": code}).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ListByProject returns a project's invites, newest first.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Invite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Invite{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Redeem consumes one use of the invite identified by code.
//
// The validity check and the increment are a single conditional update, so
// concurrent redemptions of the last use cannot push used_count past
// max_uses. When the update matches nothing, the invite is re-read only to
// pick the right error.
func (s *Store) Redeem(ctx context.Context, code string) (*models.Invite, error) {
	now := s.now()
	filter := bson.M{
		"code": code,
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"expires_at": nil},
				bson.M{"expires_at": bson.M{"$gt": now}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"max_uses": nil},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$max_uses"}}},
			}},
		},
	}

	var inv models.Invite
	err := s.c.FindOneAndUpdate(ctx, filter,
		bson.M{"$inc": bson.M{"used_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&inv)
	if err == nil {
		return &inv, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	cur, err := s.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, authz.ErrInviteInvalid
	}
	if err != nil {
		return nil, err
	}
	if err := authz.CheckInvite(cur, now); err != nil {
		return nil, err
	}
	// Valid on re-read means the last use was taken between our two reads.
	return nil, authz.ErrInviteExhausted
}

// Release gives back a use taken by Redeem when the membership write that
// followed it failed outside a transaction.
func (s *Store) Release(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "used_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"used_count": -1}})
	return err
}

// Delete removes an invite of projectID.
func (s *Store) Delete(ctx context.Context, projectID, id primitive.ObjectID) (*models.Invite, error) {
	var inv models.Invite
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id, "project_id": projectID}).Decode(&inv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// DeleteByProject removes every invite of a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteSpent removes invites that expired before cutoff, and used-up
// invites created before cutoff. A nil max_uses never counts as used up.
func (s *Store) DeleteSpent(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"expires_at": bson.M{"$lt": cutoff}},
		bson.M{
			"created_at": bson.M{"$lt": cutoff},
			"max_uses":   bson.M{"$ne": nil},
			"$expr":      bson.M{"$gte": bson.A{"$used_count", "$max_uses"}},
		},
	}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
