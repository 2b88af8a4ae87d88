// internal/app/features/projects/handler.go
package projects

import (
	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/system/auditlog"
	"github.com/dalemusser/taskboard/internal/app/system/blobstore"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Blobs    blobstore.Store
	Gate     *gates.Gate
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
}

// NewHandler constructs a projects Handler. Blobs may be nil when
// attachments are disabled; project deletion then skips file cleanup.
func NewHandler(db *mongo.Database, blobs blobstore.Store, gate *gates.Gate, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Blobs:    blobs,
		Gate:     gate,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
	}
}
