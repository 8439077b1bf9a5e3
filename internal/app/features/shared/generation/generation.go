// Package generation turns a book selection into a stored question set.
// The selection view starts a set and the question view regenerates one;
// both go through Service.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/questionbank/internal/app/system/auditlog"
	"github.com/dalemusser/questionbank/internal/app/system/htmlsanitize"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/metrics"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"go.uber.org/zap"
)

// FailedMessage is shown when the backend cannot generate questions.
const FailedMessage = "Error generating questions"

var (
	// ErrNoBooks is returned when a request names no books.
	ErrNoBooks = errors.New("generation: no books selected")
	// ErrStore wraps failures to persist a generated set.
	ErrStore = errors.New("generation: store question set")
)

// SetStore persists question sets. *questionsetstore.Store satisfies it.
type SetStore interface {
	Create(ctx context.Context, set models.QuestionSet) (models.QuestionSet, error)
	GetForUser(ctx context.Context, id string, userID int64) (models.QuestionSet, error)
	ListForUser(ctx context.Context, userID int64, limit int64) ([]models.QuestionSet, error)
}

// Generator is the backend call. *libraryapi.Client satisfies it.
type Generator interface {
	GenerateQuestions(ctx context.Context, token string, gr libraryapi.GenerateRequest) ([]models.Question, error)
}

// Selection is what a set is generated from.
type Selection struct {
	BookIDs    []int64
	BookTitles []string
	Topic      string
}

// Service generates and stores question sets.
type Service struct {
	Backend  Generator
	Sets     SetStore
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewService(backend Generator, sets SetStore, audit *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{Backend: backend, Sets: sets, AuditLog: audit, Log: logger}
}

// Generate asks the backend for questions about sel and stores the result
// as a new set owned by u. Backend errors are returned unchanged so callers
// can recognise a 401.
func (s *Service) Generate(ctx context.Context, r *http.Request, u *rbac.User, token string, sel Selection) (models.QuestionSet, error) {
	if len(sel.BookIDs) == 0 {
		return models.QuestionSet{}, ErrNoBooks
	}

	qs, err := s.Backend.GenerateQuestions(ctx, token, libraryapi.GenerateRequest{
		BookIDs: sel.BookIDs,
		Topic:   sel.Topic,
	})
	if err != nil {
		metrics.QuestionGenerationsTotal.WithLabelValues("failed").Inc()
		s.AuditLog.QuestionGenerationFailed(ctx, r, u, sel.BookIDs, libraryapi.DetailOr(err, "backend_error"))
		return models.QuestionSet{}, err
	}

	// Question text is stored as sent and sanitized when rendered.
	for i := range qs {
		for j := range qs[i].Options {
			qs[i].Options[j] = htmlsanitize.Text(qs[i].Options[j])
		}
	}

	set := models.QuestionSet{
		BookIDs:    sel.BookIDs,
		BookTitles: sel.BookTitles,
		Topic:      sel.Topic,
		Questions:  qs,
	}
	if u != nil {
		set.UserID = u.ID
	}
	set, err = s.Sets.Create(ctx, set)
	if err != nil {
		metrics.QuestionGenerationsTotal.WithLabelValues("store_failed").Inc()
		return models.QuestionSet{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	metrics.QuestionGenerationsTotal.WithLabelValues("success").Inc()
	s.AuditLog.QuestionsGenerated(ctx, r, u, set.ID, set.BookIDs, len(set.Questions))
	s.Log.Info("questions generated",
		zap.String("set_id", set.ID),
		zap.Int("books", len(set.BookIDs)),
		zap.Int("questions", len(set.Questions)))
	return set, nil
}
