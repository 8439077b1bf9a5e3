// internal/app/features/questions/handler.go
package questions

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	uierrors "github.com/dalemusser/questionbank/internal/app/features/errors"
	"github.com/dalemusser/questionbank/internal/app/features/shared/generation"
	questionsetstore "github.com/dalemusser/questionbank/internal/app/store/questionsets"
	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/htmlsanitize"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const msgTopicRequired = "Please enter a topic."

// Handler shows stored question sets and regenerates them.
type Handler struct {
	Sets       generation.SetStore
	Generator  *generation.Service
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(sets generation.SetStore, gen *generation.Service, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Sets:       sets,
		Generator:  gen,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type optionView struct {
	Letter  string
	Text    string
	Correct bool
}

type questionView struct {
	Number     int
	Text       template.HTML
	Options    []optionView
	Answer     string
	Difficulty string
}

type setData struct {
	viewdata.BaseVM
	SetID      string
	BookTitles []string
	Topic      string
	NewTopic   string
	Questions  []questionView
	Created    string
	Error      string
}

type historyRow struct {
	ID        string
	Books     string
	Topic     string
	Questions int
	Created   string
}

type historyData struct {
	viewdata.BaseVM
	Rows []historyRow
}

const createdLayout = "Jan 2, 2006 3:04 PM"

func newSetData(r *http.Request, set models.QuestionSet) setData {
	data := setData{
		BaseVM:     viewdata.NewBaseVM(r, "Generated Questions", rbac.SelectPath),
		SetID:      set.ID,
		BookTitles: set.BookTitles,
		Topic:      set.Topic,
		Created:    set.CreatedAt.Local().Format(createdLayout),
	}
	for i, q := range set.Questions {
		qv := questionView{
			Number:     i + 1,
			Text:       htmlsanitize.PrepareForDisplay(q.Text),
			Difficulty: q.Difficulty,
		}
		for j, opt := range q.Options {
			ov := optionView{Letter: optionLetter(j), Text: opt, Correct: j == q.CorrectOption}
			if ov.Correct {
				qv.Answer = ov.Letter
			}
			qv.Options = append(qv.Options, ov)
		}
		data.Questions = append(data.Questions, qv)
	}
	return data
}

func optionLetter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return "?"
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /generate-questions                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeSet shows the set named by ?set=. Without a set the user owns there
// is nothing to show, so they go back to the selection.
func (h *Handler) ServeSet(w http.ResponseWriter, r *http.Request) {
	set, ok := h.loadSet(w, r, r.URL.Query().Get("set"))
	if !ok {
		return
	}
	templates.Render(w, r, "question_set", newSetData(r, set))
}

// loadSet fetches a set owned by the current user. It reports false when a
// response has already been written.
func (h *Handler) loadSet(w http.ResponseWriter, r *http.Request, id string) (models.QuestionSet, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		http.Redirect(w, r, rbac.SelectPath, http.StatusSeeOther)
		return models.QuestionSet{}, false
	}

	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	set, err := h.Sets.GetForUser(ctx, id, u.ID)
	if errors.Is(err, questionsetstore.ErrNotFound) {
		http.Redirect(w, r, rbac.SelectPath, http.StatusSeeOther)
		return models.QuestionSet{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load question set failed", err, "A server error occurred.", rbac.SelectPath)
		return models.QuestionSet{}, false
	}
	return set, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /generate-questions                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleRegenerate generates a new set from the same books with a new topic.
func (h *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", rbac.SelectPath)
		return
	}

	set, ok := h.loadSet(w, r, r.PostForm.Get("set"))
	if !ok {
		return
	}

	topic := strings.TrimSpace(r.PostForm.Get("topic"))
	if topic == "" {
		h.rerender(w, r, set, topic, http.StatusBadRequest, msgTopicRequired)
		return
	}

	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	next, err := h.Generator.Generate(ctx, r, u, auth.Token(r), generation.Selection{
		BookIDs:    set.BookIDs,
		BookTitles: set.BookTitles,
		Topic:      topic,
	})
	if err != nil {
		if h.SessionMgr.ClearOnUnauthorized(w, r, err) {
			return
		}
		if errors.Is(err, generation.ErrStore) {
			h.ErrLog.LogServerError(w, r, "store question set failed", err, "A server error occurred.", rbac.GeneratePath)
			return
		}
		h.Log.Warn("question regeneration failed", zap.String("set_id", set.ID), zap.Error(err))
		h.rerender(w, r, set, topic, http.StatusBadGateway, generation.FailedMessage)
		return
	}

	http.Redirect(w, r, rbac.GeneratePath+"?set="+url.QueryEscape(next.ID), http.StatusSeeOther)
}

func (h *Handler) rerender(w http.ResponseWriter, r *http.Request, set models.QuestionSet, topic string, status int, msg string) {
	data := newSetData(r, set)
	data.NewTopic = topic
	data.Error = msg

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "question_set", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /generate-questions/history                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeHistory lists the user's most recent sets.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sets, err := h.Sets.ListForUser(ctx, u.ID, questionsetstore.DefaultListLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list question sets failed", err, "A server error occurred.", rbac.GeneratePath)
		return
	}

	data := historyData{BaseVM: viewdata.NewBaseVM(r, "Question History", rbac.SelectPath)}
	for _, s := range sets {
		data.Rows = append(data.Rows, historyRow{
			ID:        s.ID,
			Books:     strings.Join(s.BookTitles, ", "),
			Topic:     s.Topic,
			Questions: len(s.Questions),
			Created:   s.CreatedAt.Local().Format(createdLayout),
		})
	}
	templates.Render(w, r, "question_history", data)
}
