package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/metrics"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Reasons carried by AuthError.
const (
	ReasonProfileUnavailable = "profile_unavailable"
	ReasonMalformedProfile   = "malformed_profile"
	ReasonTokenExpired       = "token_expired"
	ReasonSessionSave        = "session_save"
)

// AuthError is a login or session-restore failure.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// Login resolves token to a user and stores both in the session. On any
// failure no session is left behind.
func (sm *SessionManager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, token string) (*rbac.User, error) {
	if sm.fetcher == nil {
		return nil, &AuthError{Reason: ReasonProfileUnavailable, Err: errors.New("no profile fetcher configured")}
	}

	sess := sm.session(r)

	if sm.tokenExpired(token) {
		sm.destroy(w, r, sess)
		return nil, &AuthError{Reason: ReasonTokenExpired}
	}

	p, err := sm.fetcher.Profile(ctx, token)
	if err != nil {
		sm.destroy(w, r, sess)
		if errors.Is(err, libraryapi.ErrMalformedProfile) {
			return nil, &AuthError{Reason: ReasonMalformedProfile, Err: err}
		}
		return nil, &AuthError{Reason: ReasonProfileUnavailable, Err: err}
	}

	u := userFromProfile(p)
	sess.Values[tokenKey] = token
	putUser(sess, u)

	if err := sess.Save(r, w); err != nil {
		sm.log.Error("save session failed", zap.Error(err), zap.String("email", u.Email))
		return nil, &AuthError{Reason: ReasonSessionSave, Err: err}
	}

	metrics.SessionEventsTotal.WithLabelValues("login").Inc()
	return u, nil
}

// Logout clears the token and user. It makes no backend call.
func (sm *SessionManager) Logout(w http.ResponseWriter, r *http.Request) {
	sm.destroy(w, r, sm.session(r))
	metrics.SessionEventsTotal.WithLabelValues("logout").Inc()
}

// ClearOnUnauthorized handles a backend 401 seen by any handler: the
// session is destroyed and the browser sent to the login page. It reports
// whether err was a 401; when false nothing has been written.
func (sm *SessionManager) ClearOnUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, libraryapi.ErrUnauthorized) {
		return false
	}

	u, _ := CurrentUser(r)
	sm.destroy(w, r, sm.session(r))
	metrics.SessionEventsTotal.WithLabelValues("expired").Inc()
	sm.audit.SessionExpired(r.Context(), r, u)
	sm.log.Info("backend rejected token; session cleared", zap.String("path", r.URL.Path))

	redirectToLogin(w, r, false)
	return true
}

// LoadSessionUser restores the user for each request. With a profile
// fetcher the profile is fetched fresh so role changes apply immediately;
// a 401, a malformed profile or an expired token clears the session.
// Other fetch errors leave the request anonymous without clearing.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sm.session(r)
		token := getString(sess, tokenKey)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		if sm.tokenExpired(token) {
			sm.log.Debug("stored token expired; clearing session")
			sm.destroy(w, r, sess)
			metrics.SessionEventsTotal.WithLabelValues("expired").Inc()
			next.ServeHTTP(w, r)
			return
		}

		if sm.fetcher == nil {
			if u := cachedUser(sess); u != nil {
				r = WithUser(r, u, token)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		p, err := sm.fetcher.Profile(ctx, token)
		cancel()
		switch {
		case err == nil:
			u := userFromProfile(p)
			if cached := cachedUser(sess); cached == nil || *cached != *u {
				putUser(sess, u)
				if err := sess.Save(r, w); err != nil {
					sm.log.Warn("refresh session user failed", zap.Error(err))
				}
			}
			r = WithUser(r, u, token)
		case errors.Is(err, libraryapi.ErrUnauthorized), errors.Is(err, libraryapi.ErrMalformedProfile):
			sm.log.Info("session restore rejected; clearing session", zap.Error(err))
			sm.destroy(w, r, sess)
			metrics.SessionEventsTotal.WithLabelValues("expired").Inc()
		default:
			sm.log.Warn("session restore failed; continuing signed out", zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// LoadCachedUser restores the user stored in the cookie without asking the
// backend. It serves routes such as /logout that only need to know who the
// session belonged to.
func (sm *SessionManager) LoadCachedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sm.session(r)
		if token := getString(sess, tokenKey); token != "" {
			if u := cachedUser(sess); u != nil {
				r = WithUser(r, u, token)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the current session, replacing an undecodable cookie
// with a fresh session.
func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := sm.GetSession(r)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			sm.log.Warn("session cookie invalid, using fresh session", zap.Error(err))
		} else {
			sm.log.Error("session store error, using fresh session", zap.Error(err))
		}
	}
	return sess
}

// destroy removes every session value and expires the cookie.
func (sm *SessionManager) destroy(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	if opts := sm.store.Options; opts != nil {
		o := *opts
		sess.Options = &o
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		sm.log.Error("clear session failed", zap.Error(err))
	}
}

// tokenExpired reports whether token is a JWT whose exp has passed. The
// signature is not checked; the backend remains the authority. Tokens that
// are not JWTs are never treated as expired here.
func (sm *SessionManager) tokenExpired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(sm.now().Add(-clockSkew))
}

// clockSkew tolerates small differences between this host and the backend.
const clockSkew = 5 * time.Second
