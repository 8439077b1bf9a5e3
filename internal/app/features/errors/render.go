// internal/app/features/errors/render.go
package errors

import (
	"net/http"
	"strings"

	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// RenderUnauthorized shows a "sign in required" page.
// If backURL is empty, it defaults to /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	renderError(w, r, http.StatusUnauthorized, "Sign in required", "Please sign in to continue.", backURL)
}

// RenderForbidden shows an access error page with a message.
// If backURL is empty, it resolves a safe back URL defaulting to the catalog.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if backURL == "" {
		backURL = httpnav.ResolveBackURL(r, "/books")
	}
	renderError(w, r, http.StatusForbidden, "Access denied", msg, backURL)
}

// renderError writes status and a friendly message. HTMX and API callers
// get plain text; browsers get the error page.
func renderError(w http.ResponseWriter, r *http.Request, status int, title, msg, backURL string) {
	if r.Header.Get("HX-Request") == "true" || !acceptsHTML(r) {
		http.Error(w, msg, status)
		return
	}

	vm := viewdata.NewBaseVM(r, title, backURL)
	vm.BackURL = backURL

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", pageData{
		BaseVM:  vm,
		Status:  status,
		Message: msg,
	})
}

func acceptsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}

/*─────────────────────────────────────────────────────────────────────────────*
| ErrorLogger                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// ErrorLogger logs a handler failure with request context and then shows
// the user a friendly message. Handlers hold one as ErrLog.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// LogBadRequest logs at warn level and responds 400.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Warn(msg, e.fields(r, err)...)
	renderError(w, r, http.StatusBadRequest, "Bad request", userMsg, backURL)
}

// LogServerError logs at error level and responds 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Error(msg, e.fields(r, err)...)
	renderError(w, r, http.StatusInternalServerError, "Something went wrong", userMsg, backURL)
}

// LogBadGateway logs a backend failure and responds 502.
func (e *ErrorLogger) LogBadGateway(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Error(msg, e.fields(r, err)...)
	renderError(w, r, http.StatusBadGateway, "Library unavailable", userMsg, backURL)
}

// LogNotFound logs at info level and responds 404.
func (e *ErrorLogger) LogNotFound(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Info(msg, e.fields(r, err)...)
	renderError(w, r, http.StatusNotFound, "Not found", userMsg, backURL)
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
}
