package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	profiles map[string]libraryapi.Profile
	err      error
	calls    int
}

func (f *fakeFetcher) Profile(_ context.Context, token string) (libraryapi.Profile, error) {
	f.calls++
	if f.err != nil {
		return libraryapi.Profile{}, f.err
	}
	p, ok := f.profiles[token]
	if !ok {
		return libraryapi.Profile{}, &libraryapi.APIError{Op: "profile", Status: http.StatusUnauthorized}
	}
	return p, nil
}

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func withRole(r *http.Request, role rbac.Role) *http.Request {
	return auth.WithUser(r, &rbac.User{ID: 1, Email: "u@example.com", Role: role}, "tok")
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			return c
		}
	}
	return nil
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return tok
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty key")
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| RequireSignedIn                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func TestRequireSignedIn_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)
	var called bool

	req := httptest.NewRequest("GET", "/books?page=2", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler(&called)).ServeHTTP(rec, req)

	if called {
		t.Error("handler should not run")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?return=%2Fbooks%3Fpage%3D2" {
		t.Errorf("unexpected Location %q", loc)
	}
}

func TestRequireSignedIn_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	var called bool

	req := httptest.NewRequest("GET", "/books", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireSignedIn_NoUser_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm := newTestSessionManager(t)
	var called bool

	req := httptest.NewRequest("GET", "/books", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login") {
		t.Errorf("expected HX-Redirect to /login, got %q", hx)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| RequireRoute                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func TestRequireRoute_Matrix(t *testing.T) {
	sm := newTestSessionManager(t)

	tests := []struct {
		path     string
		role     rbac.Role
		wantCode int
		wantLoc  string
	}{
		{rbac.ImportPath, rbac.Admin, http.StatusOK, ""},
		{rbac.ImportPath, rbac.Importer, http.StatusOK, ""},
		{rbac.ImportPath, rbac.Viewer, http.StatusSeeOther, "/books"},
		{rbac.ImportPath, rbac.Selector, http.StatusSeeOther, "/books"},
		{rbac.SelectPath, rbac.Selector, http.StatusOK, ""},
		{rbac.SelectPath, rbac.Importer, http.StatusSeeOther, "/books"},
		{rbac.GeneratePath, rbac.Admin, http.StatusOK, ""},
		{rbac.GeneratePath, rbac.Viewer, http.StatusSeeOther, "/books"},
		{rbac.CatalogPath, rbac.Viewer, http.StatusOK, ""},
		{rbac.CatalogPath, "AUDITOR", http.StatusOK, ""},
		{rbac.SelectPath, "AUDITOR", http.StatusSeeOther, "/books"},
	}

	for _, tc := range tests {
		var called bool
		req := withRole(httptest.NewRequest("GET", tc.path, nil), tc.role)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		sm.RequireRoute(tc.path)(okHandler(&called)).ServeHTTP(rec, req)

		if rec.Code != tc.wantCode {
			t.Errorf("%s as %s: status %d, want %d", tc.path, tc.role, rec.Code, tc.wantCode)
		}
		if loc := rec.Header().Get("Location"); loc != tc.wantLoc {
			t.Errorf("%s as %s: Location %q, want %q", tc.path, tc.role, loc, tc.wantLoc)
		}
		if called != (tc.wantCode == http.StatusOK) {
			t.Errorf("%s as %s: handler called = %v", tc.path, tc.role, called)
		}
	}
}

func TestRequireRoute_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)
	var called bool

	req := httptest.NewRequest("GET", "/import", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	sm.RequireRoute(rbac.ImportPath)(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(rec.Header().Get("Location"), "/login") {
		t.Errorf("got %d %q, want 303 to /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRequireRoute_Denied_API_Returns403(t *testing.T) {
	sm := newTestSessionManager(t)
	var called bool

	req := withRole(httptest.NewRequest("POST", "/import", nil), rbac.Viewer)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	sm.RequireRoute(rbac.ImportPath)(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestRequireRoute_Denied_HTMX(t *testing.T) {
	sm := newTestSessionManager(t)
	var called bool

	req := withRole(httptest.NewRequest("GET", "/select-books", nil), rbac.Importer)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	sm.RequireRoute(rbac.SelectPath)(okHandler(&called)).ServeHTTP(rec, req)

	if hx := rec.Header().Get("HX-Redirect"); hx != "/books" {
		t.Errorf("expected HX-Redirect /books, got %q", hx)
	}
}

func TestRequireRoute_UnknownPathPanics(t *testing.T) {
	sm := newTestSessionManager(t)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown route")
		}
	}()
	sm.RequireRoute("/nowhere")
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)
	gate := sm.RequireRole("/audit", rbac.Admin)

	tests := []struct {
		role     rbac.Role
		wantCode int
	}{
		{rbac.Admin, http.StatusOK},
		{"admin", http.StatusOK},
		{rbac.Selector, http.StatusSeeOther},
		{"AUDITOR", http.StatusSeeOther},
	}
	for _, tc := range tests {
		var called bool
		req := withRole(httptest.NewRequest("GET", "/audit", nil), tc.role)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		gate(okHandler(&called)).ServeHTTP(rec, req)

		if rec.Code != tc.wantCode {
			t.Errorf("%s: status %d, want %d", tc.role, rec.Code, tc.wantCode)
		}
		if called != (tc.wantCode == http.StatusOK) {
			t.Errorf("%s: handler called = %v", tc.role, called)
		}
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login / restore / logout                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func loginAs(t *testing.T, sm *auth.SessionManager, token string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	if _, err := sm.Login(context.Background(), rec, req, token); err != nil {
		t.Fatalf("Login: %v", err)
	}
	c := sessionCookie(t, rec)
	if c == nil {
		t.Fatal("expected session cookie")
	}
	return c
}

func restore(sm *auth.SessionManager, c *http.Cookie) (*rbac.User, bool, *httptest.ResponseRecorder) {
	var (
		got *rbac.User
		ok  bool
	)
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest("GET", "/books", nil)
	if c != nil {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return got, ok, rec
}

func TestLogin_NormalizesRoleAndRestores(t *testing.T) {
	sm := newTestSessionManager(t)
	f := &fakeFetcher{profiles: map[string]libraryapi.Profile{
		"tok-t": {ID: 5, Email: "t@x.org", Username: "t", Role: "Teacher"},
	}}
	sm.SetProfileFetcher(f)

	rec := httptest.NewRecorder()
	u, err := sm.Login(context.Background(), rec, httptest.NewRequest("POST", "/login", nil), "tok-t")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.Role != rbac.Selector {
		t.Errorf("role = %q, want SELECTOR", u.Role)
	}

	got, ok, _ := restore(sm, sessionCookie(t, rec))
	if !ok || got.Email != "t@x.org" || got.Role != rbac.Selector {
		t.Errorf("restored %+v, %v", got, ok)
	}
	if f.calls != 2 {
		t.Errorf("profile fetched %d times, want once per login and once per request", f.calls)
	}
}

func TestLoadSessionUser_RoleChangeAppliesNextRequest(t *testing.T) {
	sm := newTestSessionManager(t)
	f := &fakeFetcher{profiles: map[string]libraryapi.Profile{
		"tok": {ID: 1, Email: "a@x.org", Role: "viewer"},
	}}
	sm.SetProfileFetcher(f)
	c := loginAs(t, sm, "tok")

	f.profiles["tok"] = libraryapi.Profile{ID: 1, Email: "a@x.org", Role: "importer"}
	got, ok, _ := restore(sm, c)
	if !ok || got.Role != rbac.Importer {
		t.Errorf("restored %+v, want IMPORTER", got)
	}
}

func TestLogin_ProfileFailureLeavesNoSession(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetProfileFetcher(&fakeFetcher{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	u, err := sm.Login(context.Background(), rec, httptest.NewRequest("POST", "/login", nil), "tok")
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != auth.ReasonProfileUnavailable {
		t.Fatalf("expected profile_unavailable AuthError, got %v", err)
	}
	if u != nil {
		t.Error("expected no user")
	}
	if c := sessionCookie(t, rec); c != nil && c.MaxAge >= 0 {
		t.Errorf("expected session cookie to be cleared, got %+v", c)
	}
}

func TestLogin_MalformedProfile(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetProfileFetcher(&fakeFetcher{err: libraryapi.ErrMalformedProfile})

	_, err := sm.Login(context.Background(), httptest.NewRecorder(), httptest.NewRequest("POST", "/login", nil), "tok")
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != auth.ReasonMalformedProfile {
		t.Fatalf("expected malformed_profile AuthError, got %v", err)
	}
}

func TestLogin_ExpiredJWT(t *testing.T) {
	sm := newTestSessionManager(t)
	f := &fakeFetcher{}
	sm.SetProfileFetcher(f)

	_, err := sm.Login(context.Background(), httptest.NewRecorder(), httptest.NewRequest("POST", "/login", nil), signedJWT(t, time.Now().Add(-time.Hour)))
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != auth.ReasonTokenExpired {
		t.Fatalf("expected token_expired AuthError, got %v", err)
	}
	if f.calls != 0 {
		t.Error("expired token should not reach the backend")
	}
}

func TestLoadSessionUser_BackendRejectsToken(t *testing.T) {
	sm := newTestSessionManager(t)
	f := &fakeFetcher{profiles: map[string]libraryapi.Profile{"tok": {ID: 1, Email: "a@x.org", Role: "admin"}}}
	sm.SetProfileFetcher(f)
	c := loginAs(t, sm, "tok")

	delete(f.profiles, "tok") // backend now answers 401
	_, ok, rec := restore(sm, c)
	if ok {
		t.Fatal("expected anonymous request after 401")
	}
	if cleared := sessionCookie(t, rec); cleared == nil || cleared.MaxAge >= 0 {
		t.Errorf("expected session cookie to be cleared, got %+v", cleared)
	}
}

func TestLoadSessionUser_TransientErrorKeepsSession(t *testing.T) {
	sm := newTestSessionManager(t)
	f := &fakeFetcher{profiles: map[string]libraryapi.Profile{"tok": {ID: 1, Email: "a@x.org", Role: "admin"}}}
	sm.SetProfileFetcher(f)
	c := loginAs(t, sm, "tok")

	f.err = errors.New("timeout")
	_, ok, rec := restore(sm, c)
	if ok {
		t.Error("expected anonymous request while backend is down")
	}
	if sessionCookie(t, rec) != nil {
		t.Error("transient failure must not touch the cookie")
	}
}

func TestLoadSessionUser_ExpiredJWTClears(t *testing.T) {
	sm := newTestSessionManager(t)

	// A token valid at login that has since expired.
	fresh := signedJWT(t, time.Now().Add(time.Hour))
	f := &fakeFetcher{profiles: map[string]libraryapi.Profile{fresh: {ID: 1, Email: "a@x.org", Role: "admin"}}}
	sm.SetProfileFetcher(f)
	c := loginAs(t, sm, fresh)

	sm2 := newTestSessionManager(t)
	sm2.SetProfileFetcher(f)
	auth.SetClock(sm2, func() time.Time { return time.Now().Add(2 * time.Hour) })

	_, ok, rec := restore(sm2, c)
	if ok {
		t.Fatal("expected expired token to be rejected")
	}
	if f.calls != 1 {
		t.Errorf("expired token should not reach the backend, calls=%d", f.calls)
	}
	if cleared := sessionCookie(t, rec); cleared == nil || cleared.MaxAge >= 0 {
		t.Error("expected session cookie to be cleared")
	}
}

func TestLoadSessionUser_NoFetcherUsesCachedUser(t *testing.T) {
	sm := newTestSessionManager(t)
	f := &fakeFetcher{profiles: map[string]libraryapi.Profile{"tok": {ID: 3, Email: "c@x.org", Role: "importer"}}}
	sm.SetProfileFetcher(f)
	c := loginAs(t, sm, "tok")

	sm.SetProfileFetcher(nil)
	got, ok, _ := restore(sm, c)
	if !ok || got.ID != 3 || got.Role != rbac.Importer {
		t.Errorf("restored %+v, %v", got, ok)
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	sm := newTestSessionManager(t)
	f := &fakeFetcher{profiles: map[string]libraryapi.Profile{"tok": {ID: 1, Email: "a@x.org", Role: "admin"}}}
	sm.SetProfileFetcher(f)
	c := loginAs(t, sm, "tok")

	req := httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(c)
	rec := httptest.NewRecorder()
	sm.Logout(rec, req)

	cleared := sessionCookie(t, rec)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected expiring cookie, got %+v", cleared)
	}
	if f.calls != 1 {
		t.Error("logout must not call the backend")
	}
}

func TestClearOnUnauthorized(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := withRole(httptest.NewRequest("GET", "/books", nil), rbac.Viewer)
	if sm.ClearOnUnauthorized(rec, req, errors.New("boom")) {
		t.Fatal("non-401 error should not be handled")
	}
	if rec.Code != http.StatusOK || len(rec.Header()) != 0 {
		t.Error("nothing should be written for non-401 errors")
	}

	rec = httptest.NewRecorder()
	req.Header.Set("Accept", "text/html")
	err := &libraryapi.APIError{Op: "list_books", Status: http.StatusUnauthorized}
	if !sm.ClearOnUnauthorized(rec, req, err) {
		t.Fatal("401 should be handled")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("got %d %q, want 303 /login", rec.Code, rec.Header().Get("Location"))
	}
	if c := sessionCookie(t, rec); c == nil || c.MaxAge >= 0 {
		t.Error("expected session cookie to be cleared")
	}
}

func TestToken_FromContext(t *testing.T) {
	req := auth.WithUser(httptest.NewRequest("GET", "/", nil), &rbac.User{Email: "a"}, "tok-9")
	if auth.Token(req) != "tok-9" {
		t.Errorf("Token = %q", auth.Token(req))
	}
	if auth.Token(httptest.NewRequest("GET", "/", nil)) != "" {
		t.Error("expected empty token without session")
	}
}

func TestFlash_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	sm.AddFlash(rec, httptest.NewRequest("POST", "/import", nil), auth.FlashSuccess, "Book uploaded successfully!")
	c := sessionCookie(t, rec)
	if c == nil {
		t.Fatal("expected session cookie carrying the flash")
	}

	req := httptest.NewRequest("GET", "/import", nil)
	req.AddCookie(c)
	rec2 := httptest.NewRecorder()
	f, ok := sm.PopFlash(rec2, req)
	if !ok || f.Kind != auth.FlashSuccess || f.Message != "Book uploaded successfully!" {
		t.Fatalf("PopFlash = %+v, %v", f, ok)
	}

	// The cleared session no longer carries it.
	req3 := httptest.NewRequest("GET", "/import", nil)
	req3.AddCookie(sessionCookie(t, rec2))
	if _, ok := sm.PopFlash(httptest.NewRecorder(), req3); ok {
		t.Error("flash should be shown once")
	}
}
