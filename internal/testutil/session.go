package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"go.uber.org/zap"
)

// SessionName is the cookie name NewSessionManager uses.
const SessionName = "test-session"

// NewSessionManager returns a dev-mode session manager that resolves
// tokens through fetcher (nil trusts the cookie).
func NewSessionManager(t *testing.T, fetcher auth.ProfileFetcher) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", SessionName, "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	if fetcher != nil {
		sm.SetProfileFetcher(fetcher)
	}
	return sm
}

// SessionCookie returns the session cookie set on rec, or nil.
func SessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionName {
			return c
		}
	}
	return nil
}

// SignIn stores token in a new session and returns its cookie.
func SignIn(t *testing.T, sm *auth.SessionManager, token string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if _, err := sm.Login(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/login", nil), token); err != nil {
		t.Fatalf("Login(%q): %v", token, err)
	}
	c := SessionCookie(rec)
	if c == nil {
		t.Fatal("Login set no session cookie")
	}
	return c
}
