// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging and request limits.
// Everything specific to the question bank lives here and is passed to
// every lifecycle hook.
type AppConfig struct {
	// MongoDB holds question sets and the audit trail.
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie
	SessionKey    string        // signs and encrypts the cookie; 32+ chars in production
	SessionName   string        // cookie name (default: questionbank-session)
	SessionDomain string        // blank means current host
	SessionMaxAge time.Duration // cookie lifetime

	// Library backend
	BackendURL         string        // e.g. http://localhost:8000
	BackendProfilePath string        // current-user endpoint
	BackendTimeout     time.Duration // per-request ceiling for backend calls

	// Uploads
	UploadMaxMB int64

	// Audit logging destinations: all | db | log | off
	AuditLogAuth    string
	AuditLogLibrary string

	// Expose Prometheus metrics at /metrics.
	MetricsEnabled bool
}
