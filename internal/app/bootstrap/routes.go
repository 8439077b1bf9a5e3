// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"net/http"

	auditlogfeature "github.com/dalemusser/questionbank/internal/app/features/auditlog"
	booksfeature "github.com/dalemusser/questionbank/internal/app/features/books"
	errorsfeature "github.com/dalemusser/questionbank/internal/app/features/errors"
	healthfeature "github.com/dalemusser/questionbank/internal/app/features/health"
	homefeature "github.com/dalemusser/questionbank/internal/app/features/home"
	importbooksfeature "github.com/dalemusser/questionbank/internal/app/features/importbooks"
	loginfeature "github.com/dalemusser/questionbank/internal/app/features/login"
	logoutfeature "github.com/dalemusser/questionbank/internal/app/features/logout"
	questionsfeature "github.com/dalemusser/questionbank/internal/app/features/questions"
	selectbooksfeature "github.com/dalemusser/questionbank/internal/app/features/selectbooks"
	"github.com/dalemusser/questionbank/internal/app/features/shared/generation"
	auditstore "github.com/dalemusser/questionbank/internal/app/store/audit"
	questionsetstore "github.com/dalemusser/questionbank/internal/app/store/questionsets"
	"github.com/dalemusser/questionbank/internal/app/system/auditlog"
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/metrics"
	"github.com/dalemusser/questionbank/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. It builds the backend client, session manager,
// template engine and stores, then mounts every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"

	backend, err := libraryapi.New(libraryapi.Options{
		BaseURL:     appCfg.BackendURL,
		ProfilePath: appCfg.BackendProfilePath,
		Timeout:     appCfg.BackendTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("backend client init failed", zap.Error(err))
		return nil, err
	}

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Profiles are fetched fresh on each request so role changes made in the
	// backend take effect immediately.
	sessionMgr.SetProfileFetcher(backend)

	auditStore := auditstore.New(deps.MongoDatabase)
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Library: appCfg.AuditLogLibrary,
	})
	sessionMgr.SetAuditLogger(auditLog)

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	r := newRouter(routerDeps{
		Backend:        backend,
		SessionMgr:     sessionMgr,
		AuditLog:       auditLog,
		AuditEvents:    auditStore,
		LoginLimiter:   ratelimit.NewLoginLimiter(),
		Sets:           questionsetstore.New(deps.MongoDatabase),
		DB:             deps.MongoClient,
		UploadMaxMB:    appCfg.UploadMaxMB,
		MetricsEnabled: appCfg.MetricsEnabled,
	}, logger)

	return protectCSRF(r, appCfg.SessionKey, secure), nil
}

// routerDeps is everything the feature routers need. Tests fill it with
// fakes to exercise the full route table without MongoDB.
type routerDeps struct {
	Backend        *libraryapi.Client
	SessionMgr     *auth.SessionManager
	AuditLog       *auditlog.Logger
	AuditEvents    auditlogfeature.EventSource
	LoginLimiter   *ratelimit.LoginLimiter
	Sets           generation.SetStore
	DB             healthfeature.DBPinger
	UploadMaxMB    int64
	MetricsEnabled bool
}

func newRouter(d routerDeps, logger *zap.Logger) chi.Router {
	errLog := errorsfeature.NewErrorLogger(logger)
	gen := generation.NewService(d.Backend, d.Sets, d.AuditLog, logger)
	sm := d.SessionMgr

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(d.DB, d.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if d.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Logout only needs the user cached in the cookie; no backend call.
	logoutHandler := logoutfeature.NewHandler(sm, d.AuditLog, logger)
	r.Group(func(lr chi.Router) {
		lr.Use(sm.LoadCachedUser)
		lr.Mount("/logout", logoutfeature.Routes(logoutHandler, sm))
	})

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(sm.LoadSessionUser(http.HandlerFunc(errorsHandler.NotFound)).ServeHTTP)

	// Pages: the user is restored (profile re-fetched) on every request.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.LoadSessionUser)

		homeHandler := homefeature.NewHandler(logger)
		pr.Get("/", homeHandler.ServeRoot)

		loginHandler := loginfeature.NewHandler(d.Backend, sm, d.LoginLimiter, errLog, d.AuditLog, logger)
		pr.Mount("/login", loginfeature.Routes(loginHandler))

		// Error pages
		pr.Get("/forbidden", errorsHandler.Forbidden)
		pr.Get("/unauthorized", errorsHandler.Unauthorized)

		// Library views; each router applies its own route policy.
		booksHandler := booksfeature.NewHandler(d.Backend, sm, errLog, logger)
		pr.Mount("/books", booksfeature.Routes(booksHandler, sm))

		importHandler := importbooksfeature.NewHandler(d.Backend, sm, errLog, d.AuditLog, d.UploadMaxMB, logger)
		pr.Mount("/import", importbooksfeature.Routes(importHandler, sm))

		selectHandler := selectbooksfeature.NewHandler(d.Backend, gen, sm, errLog, logger)
		pr.Mount("/select-books", selectbooksfeature.Routes(selectHandler, sm))

		auditHandler := auditlogfeature.NewHandler(d.AuditEvents, errLog, logger)
		pr.Mount(auditlogfeature.Path, auditlogfeature.Routes(auditHandler, sm))

		questionsHandler := questionsfeature.NewHandler(d.Sets, gen, sm, errLog, logger)
		pr.Mount("/generate-questions", questionsfeature.Routes(questionsHandler, sm))
	})

	return r
}

// protectCSRF wraps h with gorilla/csrf keyed from the session key. Outside
// production requests are marked plaintext so the Referer check does not
// demand HTTPS.
func protectCSRF(h http.Handler, sessionKey string, secure bool) http.Handler {
	key := sha256.Sum256([]byte("csrf:" + sessionKey))
	protect := csrf.Protect(key[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)(h)
	if secure {
		return protect
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protect.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
