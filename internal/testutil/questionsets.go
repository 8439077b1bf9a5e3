package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	questionsetstore "github.com/dalemusser/questionbank/internal/app/store/questionsets"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"github.com/google/uuid"
)

// MemQuestionSets is an in-memory question set store with the same
// ownership rules as the Mongo store.
type MemQuestionSets struct {
	mu   sync.Mutex
	sets map[string]models.QuestionSet
	Err  error // returned by every call when set
}

func NewMemQuestionSets() *MemQuestionSets {
	return &MemQuestionSets{sets: map[string]models.QuestionSet{}}
}

func (m *MemQuestionSets) Create(_ context.Context, set models.QuestionSet) (models.QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.QuestionSet{}, m.Err
	}
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		// Keep creation order strict even within one clock tick.
		set.CreatedAt = time.Now().UTC().Add(time.Duration(len(m.sets)) * time.Millisecond)
	}
	m.sets[set.ID] = set
	return set, nil
}

func (m *MemQuestionSets) GetForUser(_ context.Context, id string, userID int64) (models.QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.QuestionSet{}, m.Err
	}
	set, ok := m.sets[id]
	if !ok || set.UserID != userID {
		return models.QuestionSet{}, questionsetstore.ErrNotFound
	}
	return set, nil
}

func (m *MemQuestionSets) ListForUser(_ context.Context, userID int64, limit int64) ([]models.QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if limit <= 0 {
		limit = questionsetstore.DefaultListLimit
	}
	var out []models.QuestionSet
	for _, s := range m.sets {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored sets.
func (m *MemQuestionSets) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets)
}
