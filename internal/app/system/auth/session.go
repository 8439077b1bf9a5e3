// Package auth owns the cookie session: the backend token, the signed-in
// user, and the middleware that gates routes on them.
package auth

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/questionbank/internal/app/system/auditlog"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session value keys.
const (
	tokenKey    = "backend_token"
	userIDKey   = "user_id"
	userEmail   = "user_email"
	userName    = "user_name"
	userRoleKey = "user_role"
)

// ProfileFetcher loads the user a backend token belongs to.
// *libraryapi.Client satisfies it.
type ProfileFetcher interface {
	Profile(ctx context.Context, token string) (libraryapi.Profile, error)
}

// SessionManager is the only component that reads or writes the stored
// backend token.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher ProfileFetcher
	audit   *auditlog.Logger
	log     *zap.Logger
	now     func() time.Time
}

// NewSessionManager builds the cookie store. Cookies are signed with
// sessionKey and encrypted with a key derived from it.
//
// In production (secure=true) cookies are Secure + SameSite=None. For local
// dev over http://localhost use secure=false so the browser accepts them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "questionbank-session"
	}

	block := sha256.Sum256([]byte("questionbank/session-encryption:" + sessionKey))
	store := sessions.NewCookieStore([]byte(sessionKey), block[:])
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts
	store.MaxAge(opts.MaxAge)

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{
		store: store,
		name:  name,
		log:   logger,
		now:   time.Now,
	}, nil
}

// SetProfileFetcher sets how tokens are resolved to users. Without one,
// LoadSessionUser trusts the user cached in the cookie.
func (sm *SessionManager) SetProfileFetcher(f ProfileFetcher) { sm.fetcher = f }

// SetAuditLogger records session events. A nil logger disables auditing.
func (sm *SessionManager) SetAuditLogger(l *auditlog.Logger) { sm.audit = l }

// Store exposes the cookie store (for logout cookie options).
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// Name is the session cookie name.
func (sm *SessionManager) Name() string { return sm.name }

// GetSession returns the session for r. On decode failure it returns a
// fresh session along with the error, as gorilla does.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request context                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	tokenCtxKey    ctxKey = "backendToken"
)

// CurrentUser returns the user restored for this request.
func CurrentUser(r *http.Request) (*rbac.User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*rbac.User)
	return u, ok && u != nil
}

// Token returns the backend token restored for this request, or "".
func Token(r *http.Request) string {
	t, _ := r.Context().Value(tokenCtxKey).(string)
	return t
}

// WithUser returns r carrying u and token as the signed-in session. It is
// what LoadSessionUser does after a successful restore; tests use it to
// skip the cookie round trip.
func WithUser(r *http.Request, u *rbac.User, token string) *http.Request {
	ctx := context.WithValue(r.Context(), currentUserKey, u)
	ctx = context.WithValue(ctx, tokenCtxKey, token)
	return r.WithContext(ctx)
}

// helpers

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func getInt64(s *sessions.Session, key string) int64 {
	if v, ok := s.Values[key].(int64); ok {
		return v
	}
	return 0
}

func cachedUser(s *sessions.Session) *rbac.User {
	email := getString(s, userEmail)
	role := getString(s, userRoleKey)
	if email == "" || role == "" {
		return nil
	}
	return &rbac.User{
		ID:       getInt64(s, userIDKey),
		Email:    email,
		Username: getString(s, userName),
		Role:     rbac.Normalize(role),
	}
}

func userFromProfile(p libraryapi.Profile) *rbac.User {
	return &rbac.User{
		ID:       p.ID,
		Email:    p.Email,
		Username: p.Username,
		Role:     rbac.Normalize(p.Role),
	}
}

func putUser(s *sessions.Session, u *rbac.User) {
	s.Values[userIDKey] = u.ID
	s.Values[userEmail] = u.Email
	s.Values[userName] = u.Username
	s.Values[userRoleKey] = string(u.Role)
}
