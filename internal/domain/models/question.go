// internal/domain/models/question.go
package models

import "time"

// Question is a single generated multiple-choice question.
type Question struct {
	ID            int64    `bson:"id" json:"id"`
	Text          string   `bson:"text" json:"text"`
	Options       []string `bson:"options" json:"options"`
	CorrectOption int      `bson:"correct_option" json:"correct_option"`
	Difficulty    string   `bson:"difficulty,omitempty" json:"difficulty,omitempty"` // Easy | Medium | Hard
}

// QuestionSet is one generation run: the books it was generated from, the
// optional topic, and the questions the backend returned.
//
// ID is a UUID string so it can travel in URLs without exposing ordering.
// UserID is the backend user id of the requester; sets are only ever read
// back by their owner.
type QuestionSet struct {
	ID         string     `bson:"_id" json:"id"`
	UserID     int64      `bson:"user_id" json:"user_id"`
	BookIDs    []int64    `bson:"book_ids" json:"book_ids"`
	BookTitles []string   `bson:"book_titles,omitempty" json:"book_titles,omitempty"`
	Topic      string     `bson:"topic,omitempty" json:"topic,omitempty"`
	Questions  []Question `bson:"questions" json:"questions"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
}
