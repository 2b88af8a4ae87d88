package attachments

import (
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves the attachments of one task:
//
//	r.Mount("/api/tasks/{taskID}/attachments", attachments.Routes(h, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.HandleUpload)
	r.Get("/{attachmentID}", h.ServeDownload)
	r.Delete("/{attachmentID}", h.HandleDelete)
	return r
}
