// internal/app/features/tasks/handler.go
package tasks

import (
	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/system/blobstore"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves tasks. Blobs is used to remove attachment files when a
// task is deleted; it may be nil.
type Handler struct {
	DB     *mongo.Database
	Blobs  blobstore.Store
	Gate   *gates.Gate
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, blobs blobstore.Store, gate *gates.Gate, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Blobs:  blobs,
		Gate:   gate,
		Log:    logger,
		ErrLog: errLog,
	}
}
