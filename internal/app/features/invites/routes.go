package invites

import (
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// ProjectRoutes lets owners and admins manage a project's invites:
//
//	r.Mount("/api/projects/{projectID}/invites", invites.ProjectRoutes(h, sm))
func ProjectRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(h.Gate.LoadMembership("projectID"))
	r.Use(gates.RequireProjectRole(models.RoleOwner, models.RoleAdmin))
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Delete("/{inviteID}", h.HandleRevoke)
	return r
}

// CodeRoutes serves invites addressed by code to any signed-in user:
//
//	r.Mount("/api/invites", invites.CodeRoutes(h, sm))
func CodeRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/{code}", h.ServePreview)
	r.Post("/{code}/accept", h.HandleAccept)
	return r
}
