// internal/app/features/accounts/routes.go
package accounts

import (
	"github.com/dalemusser/taskboard/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the account endpoints (typically under /api/auth).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/me", h.ServeMe)
		pr.Get("/users", h.ServeUsers)
		pr.Patch("/users/{id}", h.HandleUpdateUser)
		pr.With(sm.RequireGlobalAdmin).Delete("/users/{id}", h.HandleDeleteUser)
	})

	return r
}
