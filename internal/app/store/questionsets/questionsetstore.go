// internal/app/store/questionsets/questionsetstore.go
package questionsetstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/questionbank/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a set does not exist or belongs to another user.
var ErrNotFound = errors.New("question set not found")

// DefaultListLimit caps ListForUser when no positive limit is given.
const DefaultListLimit = 20

// Store provides access to the question_sets collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new question set store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("question_sets")}
}

// EnsureIndexes creates the per-user listing index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
	return err
}

// Create stores set, assigning an ID and creation time when unset.
func (s *Store) Create(ctx context.Context, set models.QuestionSet) (models.QuestionSet, error) {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}
	if set.Questions == nil {
		set.Questions = []models.Question{}
	}
	if _, err := s.c.InsertOne(ctx, set); err != nil {
		return models.QuestionSet{}, err
	}
	return set, nil
}

// GetForUser returns set id if it belongs to userID.
func (s *Store) GetForUser(ctx context.Context, id string, userID int64) (models.QuestionSet, error) {
	var set models.QuestionSet
	err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.QuestionSet{}, ErrNotFound
	}
	if err != nil {
		return models.QuestionSet{}, err
	}
	return set, nil
}

// ListForUser returns the user's most recent sets, newest first.
func (s *Store) ListForUser(ctx context.Context, userID int64, limit int64) ([]models.QuestionSet, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.QuestionSet
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
