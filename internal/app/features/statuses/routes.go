// internal/app/features/statuses/routes.go
package statuses

import (
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves the statuses of one project. Mount under a path carrying
// {projectID}:
//
//	r.Mount("/api/projects/{projectID}/statuses", statuses.Routes(h, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(h.Gate.LoadMembership("projectID"))

	managers := gates.RequireProjectRole(models.RoleOwner, models.RoleAdmin)

	r.Get("/", h.ServeList)
	r.With(managers).Post("/", h.HandleCreate)
	r.With(managers).Put("/reorder", h.HandleReorder)
	return r
}

// ItemRoutes serves a status addressed by its own ID. The project is
// resolved from the stored status.
//
//	r.Mount("/api/statuses", statuses.ItemRoutes(h, sm))
func ItemRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Patch("/{statusID}", h.HandleUpdate)
	r.Delete("/{statusID}", h.HandleDelete)
	return r
}
