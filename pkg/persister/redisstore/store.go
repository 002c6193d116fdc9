package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/statepersist/pkg/persister"
)

var ErrInvalidConfig = errors.New("redisstore: state field cannot be empty")

// createdField marks a stored entity whose state is still unset, since Redis
// drops empty hashes.
const createdField = "created_at"

// compareAndSet runs atomically on the server.
// KEYS[1] entity key; ARGV: state field, expected, next, match absent ("1" or "0").
var compareAndSet = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
local current = redis.call("HGET", KEYS[1], ARGV[1])
if current == ARGV[2] or (ARGV[4] == "1" and not current) then
	redis.call("HSET", KEYS[1], ARGV[1], ARGV[3])
	return 1
end
return 0
`)

// Store implements persister.Store on Redis hashes.
type Store struct {
	client redis.UniversalClient
	cfg    Config
}

var _ persister.Store = (*Store)(nil)

// New creates a store over client.
func New(client redis.UniversalClient, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("redisstore: client cannot be nil")
	}
	if cfg.StateField == "" || cfg.StateField == createdField {
		return nil, ErrInvalidConfig
	}
	return &Store{client: client, cfg: cfg}, nil
}

// MustNew is like New but panics on error.
func MustNew(client redis.UniversalClient, cfg Config) *Store {
	s, err := New(client, cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Key returns the hash key holding the entity with the given id.
func (s *Store) Key(id any) string {
	return s.cfg.KeyPrefix + fmt.Sprint(id)
}

// UpdateState implements persister.Store.
func (s *Store) UpdateState(ctx context.Context, u persister.Update) (int64, error) {
	matchAbsent := "0"
	if u.MatchAbsent {
		matchAbsent = "1"
	}
	return compareAndSet.Run(ctx, s.client,
		[]string{s.Key(u.ID)},
		s.cfg.StateField, u.Expected, u.Next, matchAbsent,
	).Int64()
}

// LoadState implements persister.Store. A hash without the state field
// yields an empty name.
func (s *Store) LoadState(ctx context.Context, id any) (string, error) {
	key := s.Key(id)

	var (
		exists *redis.IntCmd
		state  *redis.StringCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, key)
		state = pipe.HGet(ctx, key, s.cfg.StateField)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	if exists.Val() == 0 {
		return "", persister.ErrNotFound
	}

	name, err := state.Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return name, err
}

// Insert stores an entity with the given state. An empty state leaves the
// state field unset, which the persister reads as the start state.
func (s *Store) Insert(ctx context.Context, id any, state string) error {
	values := []any{createdField, time.Now().UTC().Format(time.RFC3339Nano)}
	if state != "" {
		values = append(values, s.cfg.StateField, state)
	}
	return s.client.HSet(ctx, s.Key(id), values...).Err()
}

// Delete removes the entity with the given id.
func (s *Store) Delete(ctx context.Context, id any) error {
	return s.client.Del(ctx, s.Key(id)).Err()
}
