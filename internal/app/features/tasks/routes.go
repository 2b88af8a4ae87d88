// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/dalemusser/taskboard/internal/app/features/shared/taskctx"
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves the task list of one project:
//
//	r.Mount("/api/projects/{projectID}/tasks", tasks.Routes(h, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(h.Gate.LoadMembership("projectID"))
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	return r
}

// UserRoutes lists the people a task can be assigned to:
//
//	r.Mount("/api/projects/{projectID}/users", tasks.UserRoutes(h, sm))
func UserRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(h.Gate.LoadMembership("projectID"))
	r.Get("/", h.ServeAssignees)
	return r
}

// ItemRoutes serves a task addressed by its own ID:
//
//	r.Mount("/api/tasks", tasks.ItemRoutes(h, sm))
func ItemRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Route("/{"+taskctx.Param+"}", func(tr chi.Router) {
		tr.Get("/", h.ServeTask)
		tr.Patch("/", h.HandleUpdate)
		tr.Delete("/", h.HandleDelete)
		tr.Put("/checklist", h.HandleChecklist)
	})
	return r
}
