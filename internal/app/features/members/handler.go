// internal/app/features/members/handler.go
package members

import (
	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/system/auditlog"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler manages project memberships and member permission rows.
type Handler struct {
	DB       *mongo.Database
	Gate     *gates.Gate
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Gate:     gate,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
	}
}
