// internal/app/features/accounts/handler.go
package accounts

import (
	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/system/auditlog"
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves registration, login, and user administration.
type Handler struct {
	DB       *mongo.Database
	Sessions *auth.SessionManager
	Limiter  *ratelimit.LoginLimiter
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
}

// NewHandler constructs an accounts Handler. A nil limiter disables login
// throttling.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, limiter *ratelimit.LoginLimiter, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Sessions: sm,
		Limiter:  limiter,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
	}
}
