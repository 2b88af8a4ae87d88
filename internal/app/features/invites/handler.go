package invites

import (
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/system/auditlog"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler manages invite codes. DefaultTTL applies when a create request
// names no expiry; zero means such invites never expire.
type Handler struct {
	DB         *mongo.Database
	Gate       *gates.Gate
	DefaultTTL time.Duration
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, defaultTTL time.Duration, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Gate:       gate,
		DefaultTTL: defaultTTL,
		Log:        logger,
		ErrLog:     errLog,
		AuditLog:   audit,
	}
}
