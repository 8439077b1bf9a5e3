// internal/app/features/importbooks/routes.go
package importbooks

import (
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the upload form for admins and importers.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRoute(rbac.ImportPath))

	r.Get("/", h.ServeImport)
	r.Post("/", h.HandleUpload)
	return r
}
