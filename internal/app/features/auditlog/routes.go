package auditlog

import (
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the site-wide audit log, restricted to global admins:
//
//	r.Mount("/api/admin/audit", auditlog.Routes(h, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireGlobalAdmin)
	r.Get("/", h.ServeList)
	return r
}

// ProjectRoutes mounts one project's access events for its owners and
// admins. Events are always filtered to the project in the path.
func ProjectRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(h.Gate.LoadMembership("projectID"))
	r.Use(gates.RequireProjectRole(models.RoleOwner, models.RoleAdmin))
	r.Get("/", h.ServeProjectList)
	return r
}
