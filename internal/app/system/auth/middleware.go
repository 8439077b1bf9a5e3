package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/questionbank/internal/app/system/metrics"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
)

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		redirectToLogin(w, r, true)
	})
}

// RequireRoute gates a handler on the route table entry for path. The
// decision is made on every request from the user restored for it.
// It panics at wiring time if path is not in the table.
func (sm *SessionManager) RequireRoute(path string) func(http.Handler) http.Handler {
	rt := rbac.MustLookup(path)
	return sm.gate(rt.Path, func(u *rbac.User) rbac.Decision {
		return rbac.AuthorizeRoute(u, rt)
	})
}

// RequireRole gates a handler that is not part of the menu, such as the
// audit log, on an explicit role list.
func (sm *SessionManager) RequireRole(label string, roles ...rbac.Role) func(http.Handler) http.Handler {
	allowed := append([]rbac.Role(nil), roles...)
	return sm.gate(label, func(u *rbac.User) rbac.Decision {
		return rbac.Authorize(u, allowed)
	})
}

func (sm *SessionManager) gate(label string, decide func(*rbac.User) rbac.Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, _ := CurrentUser(r)
			d := decide(u)
			metrics.AccessDecisionsTotal.WithLabelValues(label, d.String()).Inc()

			switch d {
			case rbac.Permit:
				next.ServeHTTP(w, r)

			case rbac.RedirectToLogin:
				redirectToLogin(w, r, true)

			case rbac.RedirectToDefault:
				sm.audit.AccessDenied(r.Context(), r, u, label)
				dest := d.Location()

				// HTMX: redirect (so the full page swaps)
				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", dest)
					w.WriteHeader(http.StatusForbidden)
					return
				}

				// HTML: land on the catalog
				if wantsHTML(r) {
					http.Redirect(w, r, dest, http.StatusSeeOther)
					return
				}

				// Non-HTML (API): keep the status code
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}

// redirectToLogin sends the client to the login page. withReturn carries
// the current URI so login can come back to it.
func redirectToLogin(w http.ResponseWriter, r *http.Request, withReturn bool) {
	dest := rbac.LoginPath
	if withReturn {
		dest += "?return=" + url.QueryEscape(currentURI(r))
	}

	// HTMX: full-page client redirect (no partial swap)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	// Browser/HTML: go to login and preserve return
	if wantsHTML(r) {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}

	// Non-HTML (API) callers: plain 401
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func wantsHTML(r *http.Request) bool {
	// Very light heuristic: treat it as HTML if it's HTMX or Accepts text/html.
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}

func currentURI(r *http.Request) string {
	// Preserve path + query as a return param.
	u := *r.URL
	return u.RequestURI()
}
