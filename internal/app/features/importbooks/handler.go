// internal/app/features/importbooks/handler.go
package importbooks

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/questionbank/internal/app/features/errors"
	"github.com/dalemusser/questionbank/internal/app/features/shared/catalog"
	"github.com/dalemusser/questionbank/internal/app/system/auditlog"
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/metrics"
	"github.com/dalemusser/questionbank/internal/app/system/paging"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// DefaultMaxUploadMB bounds the PDF size when no limit is configured.
const DefaultMaxUploadMB = 50

const (
	msgNoFile      = "Please select a PDF file."
	msgNotPDF      = "Only PDF files are allowed."
	msgNoTitle     = "Title is required."
	msgNoAuthor    = "Author is required."
	msgNoCategory  = "Category is required."
	msgNoGrade     = "Grade is required."
	msgUploaded    = "Book uploaded successfully!"
	msgUploadFails = "Failed to upload book. Please try again."
)

// Handler serves the upload form and forwards uploads to the backend.
type Handler struct {
	Backend     *libraryapi.Client
	SessionMgr  *auth.SessionManager
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
	MaxUploadMB int64
}

func NewHandler(backend *libraryapi.Client, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, maxUploadMB int64, logger *zap.Logger) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultMaxUploadMB
	}
	return &Handler{
		Backend:     backend,
		SessionMgr:  sessionMgr,
		ErrLog:      errLog,
		AuditLog:    audit,
		Log:         logger,
		MaxUploadMB: maxUploadMB,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type uploadForm struct {
	Title    string
	Author   string
	Category int64
	Grade    int64
}

type importData struct {
	viewdata.BaseVM
	Form        uploadForm
	Error       string
	MaxUploadMB int64
	Categories  []models.Category
	Grades      []models.Grade
	Recent      []catalog.Row
	LoadError   string
}

func (h *Handler) maxBytes() int64 { return h.MaxUploadMB << 20 }

/*─────────────────────────────────────────────────────────────────────────────*
| GET /import                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeImport(w http.ResponseWriter, r *http.Request) {
	data, ok := h.load(w, r, uploadForm{})
	if !ok {
		return
	}
	if f, ok := h.SessionMgr.PopFlash(w, r); ok {
		data.Flash = &f
	}
	templates.Render(w, r, "import_books", data)
}

// load fills the filter lists and recent uploads. It reports false when
// the session was cleared and a response has been written.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, form uploadForm) (importData, bool) {
	data := importData{
		BaseVM:      viewdata.NewBaseVM(r, "Import Books", "/books"),
		Form:        form,
		MaxUploadMB: h.MaxUploadMB,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := catalog.Load(ctx, h.Backend, auth.Token(r), catalog.Filter{Page: 1}, paging.PageSize)
	if err != nil {
		if h.SessionMgr.ClearOnUnauthorized(w, r, err) {
			return data, false
		}
		h.Log.Error("import form load failed", zap.Error(err))
		data.LoadError = catalog.LoadFailedMessage
		return data, true
	}
	data.Categories = res.Categories
	data.Grades = res.Grades
	data.Recent = res.Rows
	return data, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /import                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	// Leave room for the other form fields on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes()+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.reject(w, r, uploadForm{}, h.sizeMessage())
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			h.ErrLog.LogBadRequest(w, r, "parse upload form failed", err, "Invalid form data.", rbac.ImportPath)
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	form := uploadForm{
		Title:    strings.TrimSpace(r.FormValue("title")),
		Author:   strings.TrimSpace(r.FormValue("author")),
		Category: parseID(r.FormValue("category")),
		Grade:    parseID(r.FormValue("grade")),
	}

	file, header, err := r.FormFile("pdf_file")
	if err == nil {
		defer file.Close()
	}

	if msg := h.validate(form, header); msg != "" {
		h.reject(w, r, form, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	err = h.Backend.UploadBook(ctx, auth.Token(r), libraryapi.BookUpload{
		Title:      form.Title,
		Author:     form.Author,
		CategoryID: form.Category,
		GradeID:    form.Grade,
		FileName:   filepath.Base(header.Filename),
		File:       file,
	})
	if err != nil {
		if h.SessionMgr.ClearOnUnauthorized(w, r, err) {
			return
		}
		metrics.BookUploadsTotal.WithLabelValues("failed").Inc()
		msg := libraryapi.DetailOr(err, msgUploadFails)
		h.Log.Warn("book upload failed", zap.Error(err), zap.String("title", form.Title))
		h.AuditLog.BookUploadFailed(ctx, r, u, form.Title, msg)

		data, ok := h.load(w, r, form)
		if !ok {
			return
		}
		data.Error = msg
		h.render(w, r, http.StatusBadGateway, data)
		return
	}

	metrics.BookUploadsTotal.WithLabelValues("success").Inc()
	h.AuditLog.BookUploaded(ctx, r, u, form.Title, header.Filename, header.Size)
	h.Log.Info("book uploaded", zap.String("title", form.Title), zap.Int64("size", header.Size))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, msgUploaded)
	http.Redirect(w, r, rbac.ImportPath, http.StatusSeeOther)
}

// validate checks the upload in the order the form presents problems:
// file, type, size, then the text fields.
func (h *Handler) validate(form uploadForm, header *multipart.FileHeader) string {
	switch {
	case header == nil || header.Filename == "":
		return msgNoFile
	case !isPDF(header):
		return msgNotPDF
	case header.Size > h.maxBytes():
		return h.sizeMessage()
	case form.Title == "":
		return msgNoTitle
	case form.Author == "":
		return msgNoAuthor
	case form.Category == 0:
		return msgNoCategory
	case form.Grade == 0:
		return msgNoGrade
	}
	return ""
}

func (h *Handler) sizeMessage() string {
	return fmt.Sprintf("File size must be less than %dMB.", h.MaxUploadMB)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, form uploadForm, msg string) {
	metrics.BookUploadsTotal.WithLabelValues("rejected").Inc()
	data, ok := h.load(w, r, form)
	if !ok {
		return
	}
	data.Error = msg
	h.render(w, r, http.StatusBadRequest, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data importData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "import_books", data)
}

func isPDF(h *multipart.FileHeader) bool {
	if strings.Contains(strings.ToLower(h.Header.Get("Content-Type")), "pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(h.Filename), ".pdf")
}

func parseID(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
