// internal/app/features/selectbooks/routes.go
package selectbooks

import (
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the selection view for admins and selectors.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRoute(rbac.SelectPath))

	r.Get("/", h.ServeSelect)
	r.Post("/generate", h.HandleGenerate)
	return r
}
