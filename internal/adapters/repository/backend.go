package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	dialAttempts = 4
	dialBackoff  = 100 * time.Millisecond
)

// Settings selects and configures a backend.
type Settings struct {
	Backend     string
	DataDir     string // file backend
	SQLitePath  string
	Redis       RedisSettings
	RedisPrefix string
}

// Stores holds one store per ladder plus whatever connection they share.
type Stores struct {
	Singles Store
	Doubles Store

	closers []func() error
}

// For returns the store of ladder.
func (s *Stores) For(ladder model.Ladder) Store {
	if ladder == model.Doubles {
		return s.Doubles
	}
	return s.Singles
}

// Close releases shared connections.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Open builds the stores of both ladders for settings.
func Open(ctx context.Context, settings Settings, log logger.Logger) (*Stores, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts := []Option{WithLogger(log)}

	switch strings.ToLower(settings.Backend) {
	case BackendFile, "":
		dir := settings.DataDir
		if dir == "" {
			dir = "."
		}
		return &Stores{
			Singles: NewFileStore(filepath.Join(dir, "singles.cbor"), model.Singles, opts...),
			Doubles: NewFileStore(filepath.Join(dir, "doubles.cbor"), model.Doubles, opts...),
		}, nil

	case BackendSQLite:
		var db *sql.DB
		err := dial(ctx, func(ctx context.Context) error {
			var err error
			db, err = OpenSQLite(ctx, settings.SQLitePath, log)
			return err
		})
		if err != nil {
			return nil, err
		}
		return &Stores{
			Singles: NewSQLiteStore(db, model.Singles, opts...),
			Doubles: NewSQLiteStore(db, model.Doubles, opts...),
			closers: []func() error{db.Close},
		}, nil

	case BackendRedis:
		client := NewRedisClient(settings.Redis)
		err := dial(ctx, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", settings.Redis.Address, err)
		}
		return &Stores{
			Singles: NewRedisStore(client, settings.RedisPrefix, model.Singles, opts...),
			Doubles: NewRedisStore(client, settings.RedisPrefix, model.Doubles, opts...),
			closers: []func() error{client.Close},
		}, nil

	case BackendMemory:
		return &Stores{
			Singles: NewMemoryStore(model.Singles, opts...),
			Doubles: NewMemoryStore(model.Doubles, opts...),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, settings.Backend)
}

// dial runs connect with exponential backoff. Every failure is retried
// until the attempts run out or ctx ends.
func dial(ctx context.Context, connect func(context.Context) error) error {
	b := retry.WithMaxRetries(dialAttempts-1, retry.NewExponential(dialBackoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := connect(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
