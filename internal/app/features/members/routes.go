// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the member endpoints. Mount under a path carrying the
// {projectID} parameter:
//
//	r.Mount("/api/projects/{projectID}/members", members.Routes(h, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(h.Gate.LoadMembership("projectID"))

	managers := gates.RequireProjectRole(models.RoleOwner, models.RoleAdmin)

	r.Get("/", h.ServeList)
	r.With(managers).Post("/", h.HandleAdd)
	r.With(managers).Post("/create", h.HandleCreateAndAdd)

	r.Route("/{memberID}", func(mr chi.Router) {
		mr.With(managers).Patch("/", h.HandleUpdateRole)
		mr.With(managers).Delete("/", h.HandleRemove)
		mr.Get("/permissions", h.ServePermissions)
		mr.With(managers).Put("/permissions", h.HandleReplacePermissions)
	})

	return r
}
