package libraryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/questionbank/internal/domain/models"
)

// GenerateRequest asks the backend for questions drawn from the given books.
type GenerateRequest struct {
	BookIDs []int64 `json:"book_ids"`
	Topic   string  `json:"topic,omitempty"`
}

// wireQuestion accepts both snake_case and camelCase for the correct option.
type wireQuestion struct {
	ID            int64    `json:"id"`
	Text          string   `json:"text"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correct_option"`
	CorrectCamel  *int     `json:"correctOption"`
	Difficulty    string   `json:"difficulty"`
}

func (w wireQuestion) model(pos int) models.Question {
	q := models.Question{
		ID:         w.ID,
		Text:       w.Text,
		Options:    w.Options,
		Difficulty: w.Difficulty,
	}
	if q.ID == 0 {
		q.ID = int64(pos + 1)
	}
	if q.Text == "" {
		q.Text = w.Question
	}
	switch {
	case w.CorrectOption != nil:
		q.CorrectOption = *w.CorrectOption
	case w.CorrectCamel != nil:
		q.CorrectOption = *w.CorrectCamel
	}
	return q
}

// GenerateQuestions runs question generation. The backend may answer with a
// bare array or with {"questions": [...]}.
func (c *Client) GenerateQuestions(ctx context.Context, token string, gr GenerateRequest) ([]models.Question, error) {
	if len(gr.BookIDs) == 0 {
		return nil, fmt.Errorf("libraryapi: generate_questions: no books")
	}
	var raw json.RawMessage
	if err := c.postJSON(ctx, "generate_questions", token, "/api/questions/generate/", gr, &raw, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}

	var wire []wireQuestion
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("libraryapi: generate_questions: decode: %w", err)
		}
	} else {
		var env struct {
			Questions []wireQuestion `json:"questions"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("libraryapi: generate_questions: decode: %w", err)
		}
		wire = env.Questions
	}

	out := make([]models.Question, 0, len(wire))
	for i, w := range wire {
		out = append(out, w.model(i))
	}
	return out, nil
}
