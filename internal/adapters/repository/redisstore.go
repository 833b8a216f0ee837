package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v9"

	"github.com/okian/rally/internal/domain/model"
)

// RedisSettings configures the Redis connection.
type RedisSettings struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient returns a client for settings.
func NewRedisClient(settings RedisSettings) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     settings.Address,
		Password: settings.Password,
		DB:       settings.DB,
	})
}

// RedisStore keeps a ladder in one hash: field = player id, value = CBOR
// record.
type RedisStore struct {
	base
	client *redis.Client
	key    string
}

// NewRedisStore returns a store for ladder under prefix.
func NewRedisStore(client *redis.Client, prefix string, ladder model.Ladder, opts ...Option) *RedisStore {
	return &RedisStore{
		base:   newBase("redis", ladder, opts),
		client: client,
		key:    fmt.Sprintf("%s:%s", prefix, ladder),
	}
}

// Key returns the hash the ladder is stored under.
func (s *RedisStore) Key() string { return s.key }

// Load reads the whole hash. A missing key is an empty roster.
func (s *RedisStore) Load(ctx context.Context) (roster model.Roster, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "load", start, len(roster), err) }()

	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, s.key, err)
	}
	roster = make(model.Roster, len(fields))
	for id, raw := range fields {
		p, err := unmarshalPlayer(id, []byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoad, s.key, err)
		}
		roster[id] = p
	}
	return roster, nil
}

// Save replaces the hash inside a MULTI/EXEC block.
func (s *RedisStore) Save(ctx context.Context, roster model.Roster) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "save", start, len(roster), err) }()

	values := make(map[string]interface{}, len(roster))
	for id, p := range roster {
		blob, err := marshalPlayer(p)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrSave, id, err)
		}
		values[id] = blob
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSave, s.key, err)
	}
	return nil
}
