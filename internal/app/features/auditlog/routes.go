// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// Path is where bootstrap mounts the audit log.
const Path = rbac.AuditPath

// Routes mounts the audit log. Access is restricted to admins; the view is
// not part of the route table so it never appears in other roles' menus.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(Path, rbac.AuditRoles()...))

	r.Get("/", h.ServeList)
	return r
}
