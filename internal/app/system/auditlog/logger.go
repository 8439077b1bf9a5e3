// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/questionbank/internal/app/store/audit"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"
	Log = "log"
	Off = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, expiry)
	// and access denials.
	Auth string
	// Library controls logging for uploads and question generation.
	Library string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil store turns "db" destinations off.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// ValidSetting reports whether s is a recognised destination setting.
func ValidSetting(s string) bool {
	switch strings.ToLower(s) {
	case All, DB, Log, Off:
		return true
	}
	return false
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.Int64("user_id", *event.UserID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.Role != "" {
		fields = append(fields, zap.String("role", event.Role))
	}
	if event.Path != "" {
		fields = append(fields, zap.String("path", event.Path))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth, audit.CategorySecurity:
		setting = l.config.Auth
	case audit.CategoryLibrary:
		setting = l.config.Library
	}
	setting = strings.ToLower(setting)
	if setting == "" {
		setting = All
	}

	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}

	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// base fills the request and user fields shared by every event.
func base(r *http.Request, u *rbac.User, category, eventType string) audit.Event {
	e := audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
	}
	if u != nil {
		id := u.ID
		e.UserID = &id
		e.Email = u.Email
		e.Role = string(u.Role)
	}
	return e
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, u *rbac.User) {
	e := base(r, u, audit.CategoryAuth, audit.EventLoginSuccess)
	e.Success = true
	l.Log(ctx, e)
}

// LoginFailed logs a rejected login attempt for email.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason string) {
	e := base(r, nil, audit.CategoryAuth, audit.EventLoginFailed)
	e.Email = email
	e.FailureReason = reason
	l.Log(ctx, e)
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, u *rbac.User) {
	e := base(r, u, audit.CategoryAuth, audit.EventLogout)
	e.Success = true
	l.Log(ctx, e)
}

// SessionExpired logs a session cleared because the backend rejected its token.
func (l *Logger) SessionExpired(ctx context.Context, r *http.Request, u *rbac.User) {
	e := base(r, u, audit.CategoryAuth, audit.EventSessionExpired)
	e.Success = true
	l.Log(ctx, e)
}

// --- Security Events ---

// AccessDenied logs a signed-in user sent away from a route.
func (l *Logger) AccessDenied(ctx context.Context, r *http.Request, u *rbac.User, route string) {
	e := base(r, u, audit.CategorySecurity, audit.EventAccessDenied)
	e.Details = map[string]string{"route": route}
	l.Log(ctx, e)
}

// --- Library Events ---

// BookUploaded logs a successful upload.
func (l *Logger) BookUploaded(ctx context.Context, r *http.Request, u *rbac.User, title, fileName string, size int64) {
	e := base(r, u, audit.CategoryLibrary, audit.EventBookUploaded)
	e.Success = true
	e.Details = map[string]string{
		"title":     title,
		"file_name": fileName,
		"size":      strconv.FormatInt(size, 10),
	}
	l.Log(ctx, e)
}

// BookUploadFailed logs an upload the backend rejected.
func (l *Logger) BookUploadFailed(ctx context.Context, r *http.Request, u *rbac.User, title, reason string) {
	e := base(r, u, audit.CategoryLibrary, audit.EventBookUploadFailed)
	e.FailureReason = reason
	e.Details = map[string]string{"title": title}
	l.Log(ctx, e)
}

// QuestionsGenerated logs a stored question set.
func (l *Logger) QuestionsGenerated(ctx context.Context, r *http.Request, u *rbac.User, setID string, bookIDs []int64, count int) {
	e := base(r, u, audit.CategoryLibrary, audit.EventQuestionsGenerated)
	e.Success = true
	e.Details = map[string]string{
		"set_id":    setID,
		"book_ids":  joinIDs(bookIDs),
		"questions": strconv.Itoa(count),
	}
	l.Log(ctx, e)
}

// QuestionGenerationFailed logs a failed generation request.
func (l *Logger) QuestionGenerationFailed(ctx context.Context, r *http.Request, u *rbac.User, bookIDs []int64, reason string) {
	e := base(r, u, audit.CategoryLibrary, audit.EventQuestionGenerationFailed)
	e.FailureReason = reason
	e.Details = map[string]string{"book_ids": joinIDs(bookIDs)}
	l.Log(ctx, e)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
