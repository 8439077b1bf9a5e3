package testutil

import (
	"context"
	"net/http"
	"testing"

	questionsetstore "github.com/dalemusser/questionbank/internal/app/store/questionsets"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateQuestionSet stores a question set for userID generated from the
// given books.
func (f *Fixtures) CreateQuestionSet(ctx context.Context, userID int64, topic string, books ...models.Book) models.QuestionSet {
	f.t.Helper()

	set := models.QuestionSet{UserID: userID, Topic: topic}
	for _, b := range books {
		set.BookIDs = append(set.BookIDs, b.ID)
		set.BookTitles = append(set.BookTitles, b.Title)
	}
	set.Questions = []models.Question{
		{ID: 1, Text: "Sample question about " + topic + "?", Options: []string{"Option A", "Option B", "Option C", "Option D"}, CorrectOption: 0, Difficulty: "Easy"},
	}

	created, err := questionsetstore.New(f.db).Create(ctx, set)
	if err != nil {
		f.t.Fatalf("failed to create test question set: %v", err)
	}
	return created
}
