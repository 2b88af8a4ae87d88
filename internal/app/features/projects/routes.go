// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the project endpoints (typically under /api/projects).
// Project sub-resources (members, statuses, tasks, invites) are mounted by
// their own features under /api/projects/{projectID}/...
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	r.Route("/{projectID}", func(pr chi.Router) {
		pr.Use(h.Gate.LoadMembership("projectID"))

		pr.Get("/", h.ServeProject)
		pr.With(gates.RequireProjectRole(models.RoleOwner, models.RoleAdmin)).Patch("/", h.HandleUpdate)
		pr.With(gates.RequireProjectRole(models.RoleOwner)).Delete("/", h.HandleDelete)
	})

	return r
}
