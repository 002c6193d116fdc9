package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/statepersist/pkg/persister"
)

var ErrInvalidConfig = errors.New("mongostore: collection and state field cannot be empty")

// Store implements persister.Store on a MongoDB collection.
type Store struct {
	coll  *mongo.Collection
	field string
}

var _ persister.Store = (*Store)(nil)

// New creates a store over the configured collection of db.
func New(db *mongo.Database, cfg Config) (*Store, error) {
	if db == nil {
		return nil, errors.New("mongostore: database cannot be nil")
	}
	if cfg.Collection == "" || cfg.StateField == "" || cfg.StateField == "_id" {
		return nil, ErrInvalidConfig
	}
	return &Store{coll: db.Collection(cfg.Collection), field: cfg.StateField}, nil
}

// MustNew is like New but panics on error.
func MustNew(db *mongo.Database, cfg Config) *Store {
	s, err := New(db, cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Collection returns the underlying collection.
func (s *Store) Collection() *mongo.Collection {
	return s.coll
}

// UpdateState implements persister.Store. The matched count is reported, so
// a transition to the state a document already holds still counts.
func (s *Store) UpdateState(ctx context.Context, u persister.Update) (int64, error) {
	res, err := s.coll.UpdateOne(ctx, updateFilter(s.field, u), bson.D{
		{Key: "$set", Value: bson.D{{Key: s.field, Value: u.Next}}},
	})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// LoadState implements persister.Store. A missing or null state field yields
// an empty name.
func (s *Store) LoadState(ctx context.Context, id any) (string, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		options.FindOne().SetProjection(bson.D{{Key: s.field, Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", persister.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return stateValue(doc[s.field])
}

// Insert stores a document with the given id and state. An empty state is
// stored as null, which the persister reads as the start state. A taken id
// yields persister.ErrAlreadyExists.
func (s *Store) Insert(ctx context.Context, id any, state string) error {
	var value any
	if state != "" {
		value = state
	}
	_, err := s.coll.InsertOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: s.field, Value: value},
		{Key: "created_at", Value: time.Now().UTC()},
	})
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(persister.ErrAlreadyExists, err)
	}
	return err
}

// Delete removes the document with the given id.
func (s *Store) Delete(ctx context.Context, id any) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

// updateFilter matches the document by id and expected state. {$in: [x, null]}
// also matches documents where the field is missing.
func updateFilter(field string, u persister.Update) bson.D {
	var state any = u.Expected
	if u.MatchAbsent {
		state = bson.D{{Key: "$in", Value: bson.A{u.Expected, nil}}}
	}
	return bson.D{
		{Key: "_id", Value: u.ID},
		{Key: field, Value: state},
	}
}

func stateValue(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", fmt.Errorf("mongostore: state field holds %T, want string", v)
	}
}
