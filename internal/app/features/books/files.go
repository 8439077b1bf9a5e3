// internal/app/features/books/files.go
package books

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type previewData struct {
	viewdata.BaseVM
	BookID      int64
	ViewURL     string
	DownloadURL string
}

func bookID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /books/{id}/preview                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// ServePreview shows the PDF in an embedded viewer.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad book id", nil, "Book not found.", "/books")
		return
	}
	base := fmt.Sprintf("/books/%d", id)
	templates.Render(w, r, "book_preview", previewData{
		BaseVM:      viewdata.NewBaseVM(r, "Book Preview", "/books"),
		BookID:      id,
		ViewURL:     base + "/view",
		DownloadURL: base + "/download",
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /books/{id}/view, GET /books/{id}/download                              |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeView streams the PDF inline.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	h.streamBook(w, r, libraryapi.BookView)
}

// ServeDownload streams the PDF as an attachment.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	h.streamBook(w, r, libraryapi.BookDownload)
}

func (h *Handler) streamBook(w http.ResponseWriter, r *http.Request, mode libraryapi.BookMode) {
	id, ok := bookID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad book id", nil, "Book not found.", "/books")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	stream, err := h.Backend.OpenBook(ctx, auth.Token(r), id, mode)
	if err != nil {
		if h.SessionMgr.ClearOnUnauthorized(w, r, err) {
			return
		}
		var apiErr *libraryapi.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			h.ErrLog.LogNotFound(w, r, "book not found", err, "Book not found.", "/books")
			return
		}
		h.ErrLog.LogBadGateway(w, r, "open book failed", err, "Could not load the book file.", "/books")
		return
	}
	defer stream.Close()

	disposition := "inline"
	if mode == libraryapi.BookDownload {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="book-%d.pdf"`, disposition, id))
	if stream.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, stream.Body); err != nil {
		h.Log.Warn("book stream interrupted", zap.Int64("book_id", id), zap.Error(err))
	}
}
