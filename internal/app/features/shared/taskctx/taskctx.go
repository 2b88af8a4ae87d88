// Package taskctx loads the task named in a route and resolves the
// caller's membership in the task's project.
package taskctx

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Param is the chi URL parameter holding the task ID.
const Param = "taskID"

// Load reads {taskID}, loads the task and resolves the caller in its
// project. On failure the response is already written and ok is false.
func Load(ctx context.Context, w http.ResponseWriter, r *http.Request, db *mongo.Database, gate *gates.Gate, errLog *uierrors.ErrorLogger) (*models.Task, *authz.MembershipContext, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, Param))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid task id")
		return nil, nil, false
	}
	t, err := taskstore.New(db).GetByID(ctx, id)
	if errors.Is(err, taskstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Task not found")
		return nil, nil, false
	}
	if err != nil {
		errLog.LogServerError(w, r, "load task", err, "A server error occurred.")
		return nil, nil, false
	}
	mc, ok := gate.Resolve(w, r, t.ProjectID)
	if !ok {
		return nil, nil, false
	}
	return t, mc, true
}

// Require checks action on the task's current status and answers 403
// when it is denied.
func Require(w http.ResponseWriter, r *http.Request, errLog *uierrors.ErrorLogger, mc *authz.MembershipContext, action authz.Action, t *models.Task) bool {
	sid := t.StatusID
	if err := authz.CheckPermission(mc, action, &sid).Err(); err != nil {
		errLog.Handle(w, r, string(action)+" task", err)
		return false
	}
	return true
}
