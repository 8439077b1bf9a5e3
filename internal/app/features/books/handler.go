// internal/app/features/books/handler.go
package books

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/questionbank/internal/app/features/errors"
	"github.com/dalemusser/questionbank/internal/app/features/shared/catalog"
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/paging"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Handler serves the catalog and proxies book files from the backend.
type Handler struct {
	Backend    *libraryapi.Client
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(backend *libraryapi.Client, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Backend:    backend,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type catalogData struct {
	viewdata.BaseVM
	Filter     catalog.Filter
	Categories []models.Category
	Grades     []models.Grade
	Rows       []catalog.Row
	Page       paging.Page
	LoadError  string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /books                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeCatalog lists books with search, category and grade filters.
// HTMX requests get only the table.
func (h *Handler) ServeCatalog(w http.ResponseWriter, r *http.Request) {
	f := catalog.ParseFilter(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := catalogData{
		BaseVM: viewdata.NewBaseVM(r, "View Books", "/books"),
		Filter: f,
	}

	res, page, err := loadClamped(ctx, h.Backend, auth.Token(r), f, paging.PageSize)
	if err != nil {
		if h.SessionMgr.ClearOnUnauthorized(w, r, err) {
			return
		}
		h.Log.Error("catalog load failed", zap.Error(err))
		data.LoadError = catalog.LoadFailedMessage
		data.Page = paging.Compute(1, paging.PageSize, 0, 0)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
	} else {
		data.Categories = res.Categories
		data.Grades = res.Grades
		data.Rows = res.Rows
		data.Filter.Page = page
		data.Page = paging.Compute(page, paging.PageSize, res.Count, len(res.Rows)).
			WithLinks(r.URL.Path, f.Values())
	}

	if r.Header.Get("HX-Request") == "true" {
		templates.RenderSnippet(w, "books_table", data)
		return
	}
	templates.Render(w, r, "books", data)
}

// loadClamped loads f, moving a page past the end back to the last page.
// DRF answers such a page with 404 rather than an empty result.
func loadClamped(ctx context.Context, src catalog.Source, token string, f catalog.Filter, size int) (catalog.Result, int, error) {
	want := f.Page
	res, err := catalog.Load(ctx, src, token, f, size)
	if err != nil {
		var apiErr *libraryapi.APIError
		if f.Page <= 1 || !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
			return catalog.Result{}, 0, err
		}
		f.Page = 1
		if res, err = catalog.Load(ctx, src, token, f, size); err != nil {
			return catalog.Result{}, 0, err
		}
	}

	if page := paging.Clamp(want, paging.TotalPages(res.Count, size)); page != f.Page {
		f.Page = page
		if res, err = catalog.Load(ctx, src, token, f, size); err != nil {
			return catalog.Result{}, 0, err
		}
	}
	return res, f.Page, nil
}
