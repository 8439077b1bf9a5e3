package libraryapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
)

func newClient(t *testing.T, h http.Handler) *libraryapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := libraryapi.New(libraryapi.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://backend", "localhost:8000", "http://"} {
		if _, err := libraryapi.New(libraryapi.Options{BaseURL: raw}); err == nil {
			t.Errorf("New(%q): expected error", raw)
		}
	}
}

func TestObtainToken_Success(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/token/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("token request must not carry a bearer")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.c" || body["password"] != "pw" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"access":"tok-1","refresh":"r"}`))
	}))

	tok, err := c.ObtainToken(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("ObtainToken: %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("token = %q", tok)
	}
}

func TestObtainToken_DetailOnFailure(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
	}))

	_, err := c.ObtainToken(context.Background(), "a@b.c", "bad")
	if !errors.Is(err, libraryapi.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := libraryapi.DetailOr(err, "Invalid credentials"); got != "No active account found with the given credentials" {
		t.Errorf("DetailOr = %q", got)
	}
}

func TestDetailOr_NonStringDetail(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":{"title":["required"]}}`))
	}))

	err := c.UploadBook(context.Background(), "tok", libraryapi.BookUpload{FileName: "a.pdf", File: strings.NewReader("%PDF")})
	var apiErr *libraryapi.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
	if got := libraryapi.DetailOr(err, "fallback"); got != "fallback" {
		t.Errorf("DetailOr = %q, want fallback", got)
	}
	if errors.Is(err, libraryapi.ErrUnauthorized) {
		t.Error("400 must not match ErrUnauthorized")
	}
}

func TestProfile_BearerAndRequestID(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != libraryapi.DefaultProfilePath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		_, _ = w.Write([]byte(`{"id":7,"email":"t@x.org","username":"t","role":"Teacher"}`))
	}))

	p, err := c.Profile(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ID != 7 || p.Email != "t@x.org" || p.Role != "Teacher" {
		t.Errorf("profile = %+v", p)
	}
}

func TestProfile_Malformed(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":7,"email":"t@x.org"}`))
	}))
	if _, err := c.Profile(context.Background(), "tok"); !errors.Is(err, libraryapi.ErrMalformedProfile) {
		t.Fatalf("expected ErrMalformedProfile, got %v", err)
	}
}

func TestProfile_CustomPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profile" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"email":"a@b.c","role":"admin"}`))
	}))
	defer srv.Close()

	c, err := libraryapi.New(libraryapi.Options{BaseURL: srv.URL + "/", ProfilePath: "/profile"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Profile(context.Background(), "tok"); err != nil {
		t.Fatalf("Profile: %v", err)
	}
}

func TestCategoriesAndGrades_ArrayOrPaginated(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/categories/":
			_, _ = w.Write([]byte(`[{"id":1,"name":"Science"},{"id":2,"name":"Math"}]`))
		case "/api/grades/":
			_, _ = w.Write([]byte(`{"count":1,"results":[{"id":5,"name":"Grade 5"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))

	cats, err := c.Categories(context.Background(), "tok")
	if err != nil || len(cats) != 2 || cats[1].Name != "Math" {
		t.Fatalf("Categories = %+v, %v", cats, err)
	}
	grades, err := c.Grades(context.Background(), "tok")
	if err != nil || len(grades) != 1 || grades[0].ID != 5 {
		t.Fatalf("Grades = %+v, %v", grades, err)
	}
}

func TestListBooks_QueryAndCount(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("search") != "cells" || q.Get("category") != "3" || q.Get("grade") != "" ||
			q.Get("page") != "2" || q.Get("page_size") != "10" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"count":23,"results":[{"id":11,"title":"Cells","author":"Ann","category":3,"grade":5,"uploaded_at":"2024-03-01T10:00:00.123456Z"}]}`))
	}))

	page, err := c.ListBooks(context.Background(), "tok", libraryapi.BookQuery{Search: "cells", Category: 3, Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if page.Count != 23 || len(page.Books) != 1 || page.Books[0].Title != "Cells" {
		t.Errorf("page = %+v", page)
	}
	if page.Books[0].UploadedAt.IsZero() {
		t.Error("uploaded_at not parsed")
	}
}

func TestListBooks_BareArray(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"title":"A"},{"id":2,"title":"B"}]`))
	}))
	page, err := c.ListBooks(context.Background(), "tok", libraryapi.BookQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Count != 2 {
		t.Errorf("Count = %d, want 2", page.Count)
	}
}

func TestListBooks_Unauthorized(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	_, err := c.ListBooks(context.Background(), "expired", libraryapi.BookQuery{})
	if !errors.Is(err, libraryapi.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUploadBook_Multipart(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		want := map[string]string{
			"title": "Cells", "author": "Ann", "category_id": "3", "grade_id": "5", "file_type": "PDF",
		}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		f, fh, err := r.FormFile("pdf_file")
		if err != nil {
			t.Errorf("pdf_file: %v", err)
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		if fh.Filename != "cells.pdf" || string(body) != "%PDF-1.4" {
			t.Errorf("file = %s %q", fh.Filename, body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":99}`))
	}))

	err := c.UploadBook(context.Background(), "tok", libraryapi.BookUpload{
		Title: "Cells", Author: "Ann", CategoryID: 3, GradeID: 5,
		FileName: "cells.pdf", File: strings.NewReader("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("UploadBook: %v", err)
	}
}

func TestUploadBook_200IsNotSuccess(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	err := c.UploadBook(context.Background(), "tok", libraryapi.BookUpload{FileName: "a.pdf", File: strings.NewReader("x")})
	if err == nil {
		t.Fatal("expected error for non-201 status")
	}
}

func TestOpenBook_Streams(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/books/4/download/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-data"))
	}))

	s, err := c.OpenBook(context.Background(), "tok", 4, libraryapi.BookDownload)
	if err != nil {
		t.Fatalf("OpenBook: %v", err)
	}
	defer s.Close()
	b, _ := io.ReadAll(s.Body)
	if string(b) != "%PDF-data" || s.ContentType != "application/pdf" {
		t.Errorf("got %q %q", b, s.ContentType)
	}
}

func TestOpenBook_BadMode(t *testing.T) {
	c := newClient(t, http.NotFoundHandler())
	if _, err := c.OpenBook(context.Background(), "tok", 1, "print"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateQuestions_Shapes(t *testing.T) {
	bodies := []string{
		`[{"id":1,"text":"Q1?","options":["a","b"],"correct_option":1,"difficulty":"Easy"}]`,
		`{"questions":[{"question":"Q1?","options":["a","b"],"correctOption":1,"difficulty":"Easy"}]}`,
	}
	for _, body := range bodies {
		c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var gr libraryapi.GenerateRequest
			_ = json.NewDecoder(r.Body).Decode(&gr)
			if len(gr.BookIDs) != 2 || gr.Topic != "photosynthesis" {
				t.Errorf("request = %+v", gr)
			}
			_, _ = w.Write([]byte(body))
		}))
		qs, err := c.GenerateQuestions(context.Background(), "tok", libraryapi.GenerateRequest{BookIDs: []int64{1, 2}, Topic: "photosynthesis"})
		if err != nil {
			t.Fatalf("GenerateQuestions: %v", err)
		}
		if len(qs) != 1 || qs[0].ID != 1 || qs[0].Text != "Q1?" || qs[0].CorrectOption != 1 {
			t.Errorf("questions = %+v", qs)
		}
	}
}

func TestGenerateQuestions_NoBooks(t *testing.T) {
	c := newClient(t, http.NotFoundHandler())
	if _, err := c.GenerateQuestions(context.Background(), "tok", libraryapi.GenerateRequest{}); err == nil {
		t.Fatal("expected error")
	}
}
