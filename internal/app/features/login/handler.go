// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/questionbank/internal/app/features/errors"
	"github.com/dalemusser/questionbank/internal/app/system/auditlog"
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/ratelimit"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// Messages shown on the login form.
const (
	msgMissingFields = "Please enter your email and password."
	msgInvalid       = "Invalid credentials"
	msgFailed        = "An error occurred during login"
)

type Handler struct {
	Backend    *libraryapi.Client
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter // nil disables throttling
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(backend *libraryapi.Client, sessionMgr *auth.SessionManager, limiter *ratelimit.LoginLimiter, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Backend:    backend,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		ErrLog:     errLog,
		AuditLog:   audit,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error     string
	Email     string
	ReturnURL string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	ret := query.Get(r, "return")

	// Already signed in: nothing to do here.
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, urlutil.SafeReturn(ret, "", rbac.DefaultPath), http.StatusSeeOther)
		return
	}

	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Login", "/"),
		ReturnURL: ret,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.renderFormWithError(w, r, http.StatusBadRequest, msgMissingFields, email)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, email); !ok {
			h.Log.Warn("login throttled", zap.String("email", email), zap.String("ip", ratelimit.ClientIP(r)))
			h.AuditLog.LoginFailed(ctx, r, email, "rate_limited")
			h.renderFormWithError(w, r, http.StatusTooManyRequests, msg, email)
			return
		}
	}

	token, err := h.Backend.ObtainToken(ctx, email, password)
	if err != nil {
		var apiErr *libraryapi.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			h.AuditLog.LoginFailed(ctx, r, email, "invalid_credentials")
			h.renderFormWithError(w, r, http.StatusUnauthorized, libraryapi.DetailOr(err, msgInvalid), email)
			return
		}
		h.Log.Error("obtain token failed", zap.Error(err), zap.String("email", email))
		h.AuditLog.LoginFailed(ctx, r, email, "backend_error")
		h.renderFormWithError(w, r, http.StatusBadGateway, msgFailed, email)
		return
	}

	u, err := h.SessionMgr.Login(ctx, w, r, token)
	if err != nil {
		reason := "session_error"
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			reason = authErr.Reason
		}
		h.Log.Warn("session login failed", zap.Error(err), zap.String("email", email))
		h.AuditLog.LoginFailed(ctx, r, email, reason)
		h.renderFormWithError(w, r, http.StatusBadGateway, msgFailed, email)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u)
	h.Log.Info("user signed in", zap.String("email", u.Email), zap.String("role", u.Role.String()))

	dest := urlutil.SafeReturn(r.FormValue("return"), "", rbac.DefaultPath)
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helper: render the form with an error                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, status int, msg, email string) {
	// From POST, "return" will be in the form; from GET, we might rely on the query.
	ret := strings.TrimSpace(r.FormValue("return"))
	if ret == "" {
		ret = query.Get(r, "return")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Login", "/"),
		Error:     msg,
		Email:     email,
		ReturnURL: ret,
	})
}
