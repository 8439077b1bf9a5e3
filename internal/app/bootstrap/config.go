// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/questionbank/internal/app/features/importbooks"
	"github.com/dalemusser/questionbank/internal/app/system/auditlog"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minProdSessionKey is the shortest session key accepted in production.
const minProdSessionKey = 32

// appConfigKeys defines the configuration keys for the question bank.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, backend_url, etc.
//   - Environment variables: QUESTIONBANK_MONGO_URI, QUESTIONBANK_BACKEND_URL, etc.
//   - Command-line flags: --mongo_uri, --backend_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "question_bank", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 50, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "questionbank-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 8h, 24h)"},

	// Library backend
	{Name: "backend_url", Default: "http://localhost:8000", Desc: "Base URL of the library REST backend"},
	{Name: "backend_profile_path", Default: libraryapi.DefaultProfilePath, Desc: "Backend path returning the signed-in user's profile"},
	{Name: "backend_timeout", Default: "30s", Desc: "Timeout for a single backend request"},

	// Uploads
	{Name: "upload_max_mb", Default: importbooks.DefaultMaxUploadMB, Desc: "Largest accepted PDF upload in megabytes"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_library", Default: "all", Desc: "Upload and generation event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Metrics
	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges flags > env > files > defaults
// and reads WAFFLE_* for core and QUESTIONBANK_* for app keys.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "QUESTIONBANK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		BackendURL:         appValues.String("backend_url"),
		BackendProfilePath: appValues.String("backend_profile_path"),
		BackendTimeout:     appValues.Duration("backend_timeout", 30*time.Second),

		UploadMaxMB: int64(appValues.Int("upload_max_mb")),

		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogLibrary: appValues.String("audit_log_library"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if err := validateBackendURL(appCfg.BackendURL); err != nil {
		logger.Error("invalid backend URL", zap.String("backend_url", appCfg.BackendURL), zap.Error(err))
		return err
	}

	if coreCfg.Env == "prod" && len(appCfg.SessionKey) < minProdSessionKey {
		return fmt.Errorf("session_key must be at least %d characters in prod", minProdSessionKey)
	}

	if appCfg.UploadMaxMB < 1 {
		return fmt.Errorf("upload_max_mb must be positive, got %d", appCfg.UploadMaxMB)
	}

	for key, v := range map[string]string{
		"audit_log_auth":    appCfg.AuditLogAuth,
		"audit_log_library": appCfg.AuditLogLibrary,
	} {
		if !auditlog.ValidSetting(v) {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v)
		}
	}

	return nil
}

func validateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid backend_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend_url must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("backend_url %q has no host", raw)
	}
	return nil
}
