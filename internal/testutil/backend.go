package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"go.uber.org/zap"
)

// Upload is a book create request received by FakeBackend.
type Upload struct {
	Title, Author, CategoryID, GradeID, FileType, FileName string
	Size                                                   int
}

// FakeBackend is an in-memory stand-in for the library REST backend.
type FakeBackend struct {
	Server *httptest.Server

	mu         sync.Mutex
	users      map[string]libraryapi.Profile // token → profile
	passwords  map[string]string             // email → password
	Categories []models.Category
	Grades     []models.Grade
	Books      []models.Book
	Uploads    []Upload
	Queries    []url.Values // book list queries, in order
	Generated  []libraryapi.GenerateRequest
	profiles   int // profile fetches served

	// Fail forces the named operation ("books", "upload", "generate",
	// "categories", "file") to answer with the given status.
	Fail map[string]int
}

// NewFakeBackend starts a backend seeded with two categories, two grades,
// three books and the four role fixtures signed in under TestToken-<role>.
// AdminUser additionally answers to TestToken.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		users:     map[string]libraryapi.Profile{},
		passwords: map[string]string{},
		Categories: []models.Category{
			{ID: 1, Name: "Science"},
			{ID: 2, Name: "Math"},
		},
		Grades: []models.Grade{
			{ID: 5, Name: "Grade 5"},
			{ID: 6, Name: "Grade 6"},
		},
		Books: []models.Book{
			{ID: 11, Title: "Cells and Life", Author: "Ann Lee", Category: 1, Grade: 5, FileType: "PDF", FileSizeDisplay: "1.2 MB", UploadedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
			{ID: 12, Title: "Fractions", Author: "Bo Chan", Category: 2, Grade: 6, FileType: "PDF", FileSizeDisplay: "800.0 KB", UploadedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)},
			{ID: 13, Title: "Mystery Shelf", Author: "Cy Doe", Category: 9, Grade: 9, FileType: "PDF", UploadedAt: time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)},
		},
		Fail: map[string]int{},
	}
	seed := []struct {
		token string
		user  rbac.User
	}{
		{TestToken, AdminUser()},
		{TestToken + "-admin", AdminUser()},
		{TestToken + "-viewer", ViewerUser()},
		{TestToken + "-selector", SelectorUser()},
		{TestToken + "-importer", ImporterUser()},
	}
	for _, s := range seed {
		fb.AddUser(s.token, "password", libraryapi.Profile{
			ID: s.user.ID, Email: s.user.Email, Username: s.user.Username, Role: s.user.Role.Lower(),
		})
	}

	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Server.Close)
	return fb
}

// Client returns a libraryapi.Client pointed at the fake.
func (fb *FakeBackend) Client(t *testing.T) *libraryapi.Client {
	t.Helper()
	c, err := libraryapi.New(libraryapi.Options{BaseURL: fb.Server.URL, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("libraryapi.New: %v", err)
	}
	return c
}

// AddUser registers a profile reachable by token, and by email+password
// through the token endpoint.
func (fb *FakeBackend) AddUser(token, password string, p libraryapi.Profile) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.users[token] = p
	if p.Email != "" {
		fb.passwords[p.Email] = password + "\x00" + token
	}
}

// RevokeToken makes token answer 401 from now on.
func (fb *FakeBackend) RevokeToken(token string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	delete(fb.users, token)
}

func (fb *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/token/" {
		fb.serveToken(w, r)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	fb.mu.Lock()
	profile, ok := fb.users[token]
	fb.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
		return
	}

	switch {
	case r.URL.Path == libraryapi.DefaultProfilePath:
		fb.mu.Lock()
		fb.profiles++
		fb.mu.Unlock()
		writeJSON(w, http.StatusOK, profile)
	case r.URL.Path == "/api/categories/":
		if fb.failed(w, "categories") {
			return
		}
		writeJSON(w, http.StatusOK, fb.Categories)
	case r.URL.Path == "/api/grades/":
		writeJSON(w, http.StatusOK, map[string]any{"count": len(fb.Grades), "results": fb.Grades})
	case r.URL.Path == "/api/books/" && r.Method == http.MethodGet:
		if fb.failed(w, "books") {
			return
		}
		fb.serveBooks(w, r)
	case r.URL.Path == "/api/books/" && r.Method == http.MethodPost:
		if fb.failed(w, "upload") {
			return
		}
		fb.serveUpload(w, r)
	case r.URL.Path == "/api/questions/generate/":
		if fb.failed(w, "generate") {
			return
		}
		fb.serveGenerate(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/books/"):
		if fb.failed(w, "file") {
			return
		}
		fb.serveFile(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (fb *FakeBackend) failed(w http.ResponseWriter, op string) bool {
	fb.mu.Lock()
	status, ok := fb.Fail[op]
	fb.mu.Unlock()
	if !ok {
		return false
	}
	writeJSON(w, status, map[string]string{"detail": op + " failed"})
	return true
}

func (fb *FakeBackend) serveToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	fb.mu.Lock()
	entry, ok := fb.passwords[body.Email]
	fb.mu.Unlock()
	pw, token, _ := strings.Cut(entry, "\x00")
	if !ok || pw != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": token, "refresh": "r"})
}

func (fb *FakeBackend) serveBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fb.mu.Lock()
	fb.Queries = append(fb.Queries, q)
	fb.mu.Unlock()
	search := strings.ToLower(q.Get("search"))
	cat, _ := strconv.ParseInt(q.Get("category"), 10, 64)
	grade, _ := strconv.ParseInt(q.Get("grade"), 10, 64)

	fb.mu.Lock()
	var match []models.Book
	for _, b := range fb.Books {
		if search != "" && !strings.Contains(strings.ToLower(b.Title+" "+b.Author), search) {
			continue
		}
		if cat > 0 && b.Category != cat {
			continue
		}
		if grade > 0 && b.Grade != grade {
			continue
		}
		match = append(match, b)
	}
	fb.mu.Unlock()

	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	start := (page - 1) * size
	end := start + size
	if start > len(match) {
		start = len(match)
	}
	if end > len(match) {
		end = len(match)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(match), "results": match[start:end]})
}

func (fb *FakeBackend) serveUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad multipart"})
		return
	}
	f, fh, err := r.FormFile("pdf_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "No file was uploaded"})
		return
	}
	defer f.Close()
	n, _ := io.Copy(io.Discard, f)

	up := Upload{
		Title:      r.FormValue("title"),
		Author:     r.FormValue("author"),
		CategoryID: r.FormValue("category_id"),
		GradeID:    r.FormValue("grade_id"),
		FileType:   r.FormValue("file_type"),
		FileName:   fh.Filename,
		Size:       int(n),
	}
	cat, _ := strconv.ParseInt(up.CategoryID, 10, 64)
	grade, _ := strconv.ParseInt(up.GradeID, 10, 64)

	fb.mu.Lock()
	fb.Uploads = append(fb.Uploads, up)
	book := models.Book{
		ID: int64(100 + len(fb.Uploads)), Title: up.Title, Author: up.Author,
		Category: cat, Grade: grade, FileType: "PDF", FileSize: n, UploadedAt: time.Now().UTC(),
	}
	fb.Books = append(fb.Books, book)
	fb.mu.Unlock()

	writeJSON(w, http.StatusCreated, book)
}

func (fb *FakeBackend) serveGenerate(w http.ResponseWriter, r *http.Request) {
	var req libraryapi.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad request"})
		return
	}
	fb.mu.Lock()
	fb.Generated = append(fb.Generated, req)
	fb.mu.Unlock()

	topic := req.Topic
	if topic == "" {
		topic = "the selected books"
	}
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "text": fmt.Sprintf("Sample question about %s?", topic), "options": []string{"Option A", "Option B", "Option C", "Option D"}, "correct_option": 0, "difficulty": "Easy"},
		{"id": 2, "text": "Which book covers it best?", "options": []string{"First", "Second"}, "correct_option": 1, "difficulty": "Medium"},
	})
}

func (fb *FakeBackend) serveFile(w http.ResponseWriter, r *http.Request) {
	// /api/books/{id}/{view|download}/
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || (parts[3] != "view" && parts[3] != "download") {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	fb.mu.Lock()
	found := false
	for _, b := range fb.Books {
		if b.ID == id {
			found = true
			break
		}
	}
	fb.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = fmt.Fprintf(w, "%%PDF-1.4 book %d", id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// BookQueries returns the book list queries received so far.
func (fb *FakeBackend) BookQueries() []url.Values {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]url.Values(nil), fb.Queries...)
}

// ProfileFetches returns how many profile requests were answered.
func (fb *FakeBackend) ProfileFetches() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.profiles
}

// ReceivedUploads returns the uploads received so far.
func (fb *FakeBackend) ReceivedUploads() []Upload {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Upload(nil), fb.Uploads...)
}

// GenerateRequests returns the generation requests received so far.
func (fb *FakeBackend) GenerateRequests() []libraryapi.GenerateRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]libraryapi.GenerateRequest(nil), fb.Generated...)
}

// SetFail makes op answer with status until cleared with status 0.
func (fb *FakeBackend) SetFail(op string, status int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if status == 0 {
		delete(fb.Fail, op)
		return
	}
	fb.Fail[op] = status
}
