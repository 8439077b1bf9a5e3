// internal/app/features/selectbooks/handler.go
package selectbooks

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/questionbank/internal/app/features/errors"
	"github.com/dalemusser/questionbank/internal/app/features/shared/catalog"
	"github.com/dalemusser/questionbank/internal/app/features/shared/generation"
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/htmlsanitize"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/paging"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const msgNoneSelected = "Please select at least one book"

// Handler lets selectors pick books and start a question set.
type Handler struct {
	Backend    *libraryapi.Client
	Generator  *generation.Service
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(backend *libraryapi.Client, gen *generation.Service, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Backend:    backend,
		Generator:  gen,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type selectData struct {
	viewdata.BaseVM
	Filter     catalog.Filter
	Categories []models.Category
	Grades     []models.Grade
	Rows       []catalog.Row
	Count      int
	Selected   map[int64]bool
	Topic      string
	Error      string
	LoadError  string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /select-books                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSelect(w http.ResponseWriter, r *http.Request) {
	f := catalog.ParseFilter(r)
	data, ok := h.load(w, r, f)
	if !ok {
		return
	}
	if data.LoadError != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
	}
	if r.Header.Get("HX-Request") == "true" {
		templates.RenderSnippet(w, "select_books_table", data)
		return
	}
	templates.Render(w, r, "select_books", data)
}

// load fetches the first SelectionSize books matching f. It reports false
// when the session was cleared and a response has been written.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, f catalog.Filter) (selectData, bool) {
	f.Page = 1
	data := selectData{
		BaseVM:   viewdata.NewBaseVM(r, "Select Books", "/books"),
		Filter:   f,
		Selected: map[int64]bool{},
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := catalog.Load(ctx, h.Backend, auth.Token(r), f, paging.SelectionSize)
	if err != nil {
		if h.SessionMgr.ClearOnUnauthorized(w, r, err) {
			return data, false
		}
		h.Log.Error("selection load failed", zap.Error(err))
		data.LoadError = catalog.LoadFailedMessage
		return data, true
	}
	data.Categories = res.Categories
	data.Grades = res.Grades
	data.Rows = res.Rows
	data.Count = res.Count
	return data, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /select-books/generate                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", rbac.SelectPath)
		return
	}

	sel := selectionFromForm(r.PostForm)
	if len(sel.BookIDs) == 0 {
		h.rerender(w, r, sel, http.StatusBadRequest, msgNoneSelected)
		return
	}

	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	set, err := h.Generator.Generate(ctx, r, u, auth.Token(r), sel)
	if err != nil {
		if h.SessionMgr.ClearOnUnauthorized(w, r, err) {
			return
		}
		if errors.Is(err, generation.ErrStore) {
			h.ErrLog.LogServerError(w, r, "store question set failed", err, "A server error occurred.", rbac.SelectPath)
			return
		}
		h.Log.Warn("question generation failed", zap.Error(err))
		h.rerender(w, r, sel, http.StatusBadGateway, generation.FailedMessage)
		return
	}

	http.Redirect(w, r, rbac.GeneratePath+"?set="+url.QueryEscape(set.ID), http.StatusSeeOther)
}

// rerender shows the selection again with the user's choices kept.
func (h *Handler) rerender(w http.ResponseWriter, r *http.Request, sel generation.Selection, status int, msg string) {
	f := catalog.Filter{
		Search:   r.PostForm.Get("q"),
		Category: parseID(r.PostForm.Get("category")),
		Grade:    parseID(r.PostForm.Get("grade")),
	}
	data, ok := h.load(w, r, f)
	if !ok {
		return
	}
	for _, id := range sel.BookIDs {
		data.Selected[id] = true
	}
	data.Topic = sel.Topic
	data.Error = msg

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "select_books", data)
}

// selectionFromForm reads book_id values (deduplicated, in order), the
// matching title_<id> fields and the topic.
func selectionFromForm(form url.Values) generation.Selection {
	var sel generation.Selection
	seen := map[int64]bool{}
	for _, raw := range form["book_id"] {
		id := parseID(raw)
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		sel.BookIDs = append(sel.BookIDs, id)

		title := htmlsanitize.Text(form.Get("title_" + strconv.FormatInt(id, 10)))
		if title == "" {
			title = "Book " + strconv.FormatInt(id, 10)
		}
		sel.BookTitles = append(sel.BookTitles, title)
	}
	sel.Topic = strings.TrimSpace(form.Get("topic"))
	return sel
}

func parseID(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
