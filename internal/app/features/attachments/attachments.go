package attachments

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/features/shared/taskctx"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/blobstore"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for the form boundary and headers on top
// of the file itself.
const multipartOverhead = 64 << 10

// HandleUpload handles POST / with a multipart "file" field. The caller
// needs edit on the task's status.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionEdit, t) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			uierrors.Error(w, http.StatusRequestEntityTooLarge, blobstore.ErrTooLarge.Error())
			return
		}
		uierrors.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.MaxBytes {
		uierrors.Error(w, http.StatusRequestEntityTooLarge, blobstore.ErrTooLarge.Error())
		return
	}
	ext, err := blobstore.CheckExtension(header.Filename)
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	mt, err := mimetype.DetectReader(file)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "detect content type", err, "Failed to read upload")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.ErrLog.LogServerError(w, r, "rewind upload", err, "Failed to read upload")
		return
	}

	key := blobstore.NewKey(t.ProjectID.Hex(), ext)
	if err := h.Blobs.Put(ctx, key, file, &blobstore.PutOptions{ContentType: mt.String()}); err != nil {
		h.ErrLog.LogServerError(w, r, "store attachment", err, "Failed to store file")
		return
	}

	a := models.Attachment{
		ID:           primitive.NewObjectID(),
		FileName:     path.Base(key),
		OriginalName: blobstore.SanitizeFilename(header.Filename),
		ContentType:  mt.String(),
		Size:         header.Size,
		Path:         key,
		UploadedBy:   mc.UserID,
		UploadedAt:   time.Now().UTC(),
	}
	if _, err := taskstore.New(h.DB).AddAttachment(ctx, t.ID, a); err != nil {
		if derr := h.Blobs.Delete(ctx, key); derr != nil {
			h.Log.Warn("remove orphaned attachment file", zap.Error(derr), zap.String("path", key))
		}
		if errors.Is(err, taskstore.ErrNotFound) {
			uierrors.Error(w, http.StatusNotFound, "Task not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "add attachment", err, "Failed to save attachment")
		return
	}

	h.Log.Debug("attachment uploaded",
		zap.String("task_id", t.ID.Hex()),
		zap.String("path", key),
		zap.Int64("size", a.Size))
	uierrors.JSON(w, http.StatusCreated, a)
}

// find returns the attachment named by {attachmentID} on t.
func find(w http.ResponseWriter, r *http.Request, t *models.Task) (*models.Attachment, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "attachmentID"))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid attachment id")
		return nil, false
	}
	for i := range t.Attachments {
		if t.Attachments[i].ID == id {
			return &t.Attachments[i], true
		}
	}
	uierrors.Error(w, http.StatusNotFound, "Attachment not found")
	return nil, false
}

// ServeDownload handles GET /{attachmentID}. Reading a file takes the
// same permission as reading its task.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionRead, t) {
		return
	}
	a, ok := find(w, r, t)
	if !ok {
		return
	}

	rc, err := h.Blobs.Open(ctx, a.Path)
	if errors.Is(err, blobstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Attachment not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "open attachment", err, "Failed to read file")
		return
	}
	defer rc.Close()

	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.OriginalName}))
	if a.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("stream attachment", zap.Error(err), zap.String("path", a.Path))
	}
}

// HandleDelete handles DELETE /{attachmentID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, mc, ok := taskctx.Load(ctx, w, r, h.DB, h.Gate, h.ErrLog)
	if !ok {
		return
	}
	if !taskctx.Require(w, r, h.ErrLog, mc, authz.ActionEdit, t) {
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "attachmentID"))
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, "invalid attachment id")
		return
	}

	a, err := taskstore.New(h.DB).RemoveAttachment(ctx, t.ID, id)
	if errors.Is(err, taskstore.ErrAttachmentNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Attachment not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "remove attachment", err, "Failed to delete attachment")
		return
	}
	if err := h.Blobs.Delete(ctx, a.Path); err != nil {
		h.Log.Warn("delete attachment file", zap.Error(err), zap.String("path", a.Path))
	}
	uierrors.NoContent(w)
}
