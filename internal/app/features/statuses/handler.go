// internal/app/features/statuses/handler.go
package statuses

import (
	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves board columns.
type Handler struct {
	DB     *mongo.Database
	Gate   *gates.Gate
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Gate:   gate,
		Log:    logger,
		ErrLog: errLog,
	}
}
