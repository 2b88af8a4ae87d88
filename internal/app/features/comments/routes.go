// internal/app/features/comments/routes.go
package comments

import (
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// TaskRoutes serves the comments of one task:
//
//	r.Mount("/api/tasks/{taskID}/comments", comments.TaskRoutes(h, sm))
func TaskRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	return r
}

// ItemRoutes serves a comment addressed by its own ID:
//
//	r.Mount("/api/comments", comments.ItemRoutes(h, sm))
func ItemRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Patch("/{commentID}", h.HandleUpdate)
	r.Delete("/{commentID}", h.HandleDelete)
	return r
}
