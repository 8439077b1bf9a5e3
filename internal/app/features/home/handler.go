package home

import (
	"net/http"

	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"go.uber.org/zap"
)

// Handler sends visitors to the right starting page.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot redirects signed-in users to the catalog and everyone else to
// the login page.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, rbac.DefaultPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}
