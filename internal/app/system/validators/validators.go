// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Core collections this app uses
	ensure("users", usersSchema())
	ensure("projects", projectsSchema())
	ensure("statuses", statusesSchema())
	ensure("tasks", tasksSchema())

	// Access control collections
	ensure("project_members", projectMembersSchema())
	ensure("permissions", permissionsSchema())
	ensure("project_invites", invitesSchema())

	// These don't strictly need validators; we still ensure the collections exist.
	ensure("comments", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func nonBlank() bson.M {
	return bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "name", "password_hash", "is_global_admin"},
			"properties": bson.M{
				"email":           nonBlank(),
				"name":            nonBlank(),
				"name_ci":         bson.M{"bsonType": "string"},
				"password_hash":   nonBlank(),
				"is_global_admin": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "owner_id"},
			"properties": bson.M{
				"name":     nonBlank(),
				"owner_id": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func projectMembersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "user_id", "role"},
			"properties": bson.M{
				"project_id": bson.M{"bsonType": "objectId"},
				"user_id":    bson.M{"bsonType": "objectId"},
				"role": bson.M{"enum": bson.A{
					string(models.RoleOwner), string(models.RoleAdmin),
					string(models.RoleMember), string(models.RoleViewer),
				}},
			},
		},
	}
}

func permissionsSchema() bson.M {
	flag := bson.M{"bsonType": "bool"}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_member_id", "can_read", "can_create", "can_edit", "can_delete"},
			"properties": bson.M{
				"project_member_id": bson.M{"bsonType": "objectId"},
				"status_id":         bson.M{"bsonType": bson.A{"objectId", "null"}},
				"can_read":          flag,
				"can_create":        flag,
				"can_edit":          flag,
				"can_delete":        flag,
			},
		},
	}
}

func statusesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "slug", "title", "position"},
			"properties": bson.M{
				"project_id": bson.M{"bsonType": "objectId"},
				"slug":       bson.M{"bsonType": "string", "pattern": "^[a-z0-9_]+$"},
				"title":      nonBlank(),
				"position":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func tasksSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "title", "status_id", "priority", "created_by"},
			"properties": bson.M{
				"project_id": bson.M{"bsonType": "objectId"},
				"title":      nonBlank(),
				"status_id":  bson.M{"bsonType": "objectId"},
				"priority": bson.M{"enum": bson.A{
					string(models.PriorityLow), string(models.PriorityMedium), string(models.PriorityHigh),
				}},
				"created_by": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func invitesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "code", "role", "used_count"},
			"properties": bson.M{
				"project_id": bson.M{"bsonType": "objectId"},
				"code":       nonBlank(),
				// Owner is never granted through an invite.
				"role": bson.M{"enum": bson.A{
					string(models.RoleAdmin), string(models.RoleMember), string(models.RoleViewer),
				}},
				"used_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"max_uses":   bson.M{"bsonType": bson.A{"int", "long", "null"}},
			},
		},
	}
}
