// internal/app/features/comments/comments.go
package comments

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/features/shared/taskctx"
	"github.com/dalemusser/taskboard/internal/app/policy/commentpolicy"
	commentstore "github.com/dalemusser/taskboard/internal/app/store/comments"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type commentView struct {
	ID        primitive.ObjectID `json:"id"`
	TaskID    primitive.ObjectID `json:"task_id"`
	UserID    primitive.ObjectID `json:"user_id"`
	UserName  string             `json:"user_name"`
	Text      string             `json:"text"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (h *Handler) views(ctx context.Context, cs []models.Comment) ([]commentView, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, c := range cs {
		if !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			ids = append(ids, c.AuthorID)
		}
	}
	users, err := userstore.New(h.DB).ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	out := make([]commentView, len(cs))
	for i, c := range cs {
		out[i] = commentView{
			ID:        c.ID,
			TaskID:    c.TaskID,
			UserID:    c.AuthorID,
			UserName:  names[c.AuthorID],
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
	}
	return out, nil
}

// ServeList handles GET /. Needs read on the task's status.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionRead, t) {
		return
	}

	cs, err := commentstore.New(h.DB).ListByTask(ctx, t.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list comments", err, "Server error")
		return
	}
	out, err := h.views(ctx, cs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load comment authors", err, "Server error")
		return
	}
	uierrors.JSON(w, http.StatusOK, out)
}

type textInput struct {
	Text string `json:"text" validate:"required,max=10000" label:"Text"`
}

// decodeText reads {text}, strips markup and rejects blank results.
func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var in textInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	in.Text = htmlsanitize.Plain(in.Text)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, res.First())
		return "", false
	}
	return in.Text, true
}

// HandleCreate handles POST /. Commenting needs read on the task's status.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionRead, t) {
		return
	}

	c, err := commentstore.New(h.DB).Create(ctx, models.Comment{
		TaskID:    t.ID,
		ProjectID: t.ProjectID,
		AuthorID:  mc.UserID,
		Text:      text,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create comment", err, "Server error")
		return
	}
	out, err := h.views(ctx, []models.Comment{c})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load comment author", err, "Server error")
		return
	}
	uierrors.JSON(w, http.StatusCreated, out[0])
}

// loadOwn loads {commentID} and checks the caller wrote it.
func (h *Handler) loadOwn(ctx context.Context, w http.ResponseWriter, r *http.Request, op string) (*models.Comment, bool) {
	actor, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentID"))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid comment id")
		return nil, false
	}
	c, err := commentstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, commentstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Comment not found")
		return nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load comment", err, "Server error")
		return nil, false
	}
	if err := commentpolicy.CanModify(*c, actor.UserID); err != nil {
		h.ErrLog.Handle(w, r, op, err)
		return nil, false
	}
	return c, true
}

// HandleUpdate handles PATCH /{commentID}. Author only.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, ok := h.loadOwn(ctx, w, r, "update comment")
	if !ok {
		return
	}
	updated, err := commentstore.New(h.DB).UpdateText(ctx, c.ID, text)
	if errors.Is(err, commentstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Comment not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update comment", err, "Server error")
		return
	}
	out, err := h.views(ctx, []models.Comment{*updated})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load comment author", err, "Server error")
		return
	}
	uierrors.JSON(w, http.StatusOK, out[0])
}

// HandleDelete handles DELETE /{commentID}. Author only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, ok := h.loadOwn(ctx, w, r, "delete comment")
	if !ok {
		return
	}
	err := commentstore.New(h.DB).Delete(ctx, c.ID)
	if err != nil && !errors.Is(err, commentstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete comment", err, "Server error")
		return
	}
	uierrors.NoContent(w)
}
