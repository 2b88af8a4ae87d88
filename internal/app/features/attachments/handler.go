package attachments

import (
	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/system/blobstore"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/limits"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves task attachments. MaxBytes caps one upload.
type Handler struct {
	DB       *mongo.Database
	Blobs    blobstore.Store
	Gate     *gates.Gate
	MaxBytes int64
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, blobs blobstore.Store, gate *gates.Gate, maxBytes int64, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = limits.DefaultUploadBytes
	}
	return &Handler{
		DB:       db,
		Blobs:    blobs,
		Gate:     gate,
		MaxBytes: maxBytes,
		Log:      logger,
		ErrLog:   errLog,
	}
}
