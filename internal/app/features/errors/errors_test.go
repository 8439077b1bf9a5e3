package errors_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/questionbank/internal/app/features/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func apiRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Accept", "application/json")
	return req
}

func TestErrorLogger_StatusAndLevel(t *testing.T) {
	tests := []struct {
		name   string
		call   func(*uierrors.ErrorLogger, http.ResponseWriter, *http.Request)
		status int
		level  zapcore.Level
	}{
		{"bad request", func(e *uierrors.ErrorLogger, w http.ResponseWriter, r *http.Request) {
			e.LogBadRequest(w, r, "parse form failed", errors.New("boom"), "Invalid form data.", "/import")
		}, http.StatusBadRequest, zapcore.WarnLevel},
		{"server error", func(e *uierrors.ErrorLogger, w http.ResponseWriter, r *http.Request) {
			e.LogServerError(w, r, "store failed", errors.New("boom"), "Invalid form data.", "/import")
		}, http.StatusInternalServerError, zapcore.ErrorLevel},
		{"bad gateway", func(e *uierrors.ErrorLogger, w http.ResponseWriter, r *http.Request) {
			e.LogBadGateway(w, r, "backend failed", errors.New("boom"), "Invalid form data.", "/import")
		}, http.StatusBadGateway, zapcore.ErrorLevel},
		{"not found", func(e *uierrors.ErrorLogger, w http.ResponseWriter, r *http.Request) {
			e.LogNotFound(w, r, "no such set", errors.New("boom"), "Invalid form data.", "/import")
		}, http.StatusNotFound, zapcore.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			e := uierrors.NewErrorLogger(zap.New(core))

			rec := httptest.NewRecorder()
			tc.call(e, rec, apiRequest("POST", "/import"))

			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			if !strings.Contains(rec.Body.String(), "Invalid form data.") {
				t.Errorf("body %q lacks user message", rec.Body.String())
			}
			entries := logs.All()
			if len(entries) != 1 || entries[0].Level != tc.level {
				t.Fatalf("logged %+v, want one %v entry", entries, tc.level)
			}
			if entries[0].ContextMap()["path"] != "/import" {
				t.Errorf("log fields = %v", entries[0].ContextMap())
			}
		})
	}
}

func TestErrorLogger_HTMXGetsPlainText(t *testing.T) {
	e := uierrors.NewErrorLogger(zap.NewNop())
	req := httptest.NewRequest("GET", "/books", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	e.LogBadGateway(rec, req, "backend down", errors.New("dial"), "Failed to load books and filters", "/books")

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestHandler_ForbiddenAPI(t *testing.T) {
	h := uierrors.NewHandler()
	rec := httptest.NewRecorder()
	h.Forbidden(rec, apiRequest("GET", "/forbidden"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
