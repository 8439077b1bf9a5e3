// internal/app/features/questions/routes.go
package questions

import (
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRoute(rbac.GeneratePath))

	r.Get("/", h.ServeSet)
	r.Post("/", h.HandleRegenerate)
	r.Get("/history", h.ServeHistory)
	return r
}
