// internal/app/features/books/routes.go
package books

import (
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the catalog. Every signed-in user may see it.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRoute(rbac.CatalogPath))

	r.Get("/", h.ServeCatalog)
	r.Get("/{id}/preview", h.ServePreview)
	r.Get("/{id}/view", h.ServeView)
	r.Get("/{id}/download", h.ServeDownload)
	return r
}
