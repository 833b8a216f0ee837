// Package service is the ladder service: the transaction boundary around
// the rating engine. Every mutating call loads the ladder's roster, applies
// one engine operation and saves the roster back under the ladder's write
// lock; queries read one consistent load under the read lock.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/dedupe"
	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/ranking"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// DefaultMaxLeaderboardLimit caps n on listing queries.
const DefaultMaxLeaderboardLimit = 100

// Service implements the ladder operations used by the HTTP API and the
// replay tool.
type Service struct {
	engine  *rating.Engine
	stores  map[model.Ladder]repository.Store
	locks   map[model.Ladder]*deadlock.RWMutex
	deduper dedupe.Deduper

	dedupeSize int
	maxLimit   int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine sets the rating engine.
func WithEngine(e *rating.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithRepository sets the store of one ladder.
func WithRepository(ladder model.Ladder, store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.stores[ladder] = store
		}
	}
}

// WithStores sets the stores of both ladders.
func WithStores(stores *repository.Stores) Option {
	return func(s *Service) {
		if stores == nil {
			return
		}
		WithRepository(model.Singles, stores.Singles)(s)
		WithRepository(model.Doubles, stores.Doubles)(s)
	}
}

// WithDedupeSize sets how many report ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxLeaderboardLimit caps the n of listing queries.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Ladders without a configured store keep their
// rosters in memory.
func New(opts ...Option) *Service {
	s := &Service{
		engine:     rating.NewEngine(),
		stores:     make(map[model.Ladder]repository.Store, 2),
		locks:      make(map[model.Ladder]*deadlock.RWMutex, 2),
		dedupeSize: dedupe.DefaultMaxSize,
		maxLimit:   DefaultMaxLeaderboardLimit,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, l := range []model.Ladder{model.Singles, model.Doubles} {
		if s.stores[l] == nil {
			s.stores[l] = repository.NewMemoryStore(l)
		}
		s.locks[l] = &deadlock.RWMutex{}
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Engine returns the rating engine.
func (s *Service) Engine() *rating.Engine { return s.engine }

// mutate runs fn on a fresh load of ladder and saves the result. If fn or
// the save fails, the loaded roster is discarded and nothing changes.
func (s *Service) mutate(ctx context.Context, ladder model.Ladder, fn func(model.Roster) error) error {
	return s.mutateReport(ctx, ladder, "", fn)
}

// mutateReport is mutate keyed by an optional report id. The id is claimed
// under the ladder's write lock and released before the lock is dropped
// when fn or the save fails, so a repeat of an in-flight report waits for
// the first attempt and only sees ErrDuplicateReport once it was saved.
func (s *Service) mutateReport(ctx context.Context, ladder model.Ladder, reportID string, fn func(model.Roster) error) error {
	mu := s.locks[ladder]
	mu.Lock()
	defer mu.Unlock()

	if !s.claimReport(ctx, ladder, reportID) {
		return fmt.Errorf("report %s: %w", reportID, ErrDuplicateReport)
	}
	if err := s.apply(ctx, ladder, fn); err != nil {
		s.releaseReport(ctx, ladder, reportID)
		return err
	}
	return nil
}

// apply loads, changes and saves ladder. Callers hold the write lock.
func (s *Service) apply(ctx context.Context, ladder model.Ladder, fn func(model.Roster) error) error {
	store := s.stores[ladder]
	roster, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(roster); err != nil {
		return err
	}
	if err := store.Save(ctx, roster); err != nil {
		return err
	}
	metrics.UpdatePlayersRegistered(ladder.String(), len(roster))
	return nil
}

// read runs fn on one consistent load of ladder.
func (s *Service) read(ctx context.Context, ladder model.Ladder, fn func(model.Roster) error) error {
	mu := s.locks[ladder]
	mu.RLock()
	defer mu.RUnlock()

	roster, err := s.stores[ladder].Load(ctx)
	if err != nil {
		return err
	}
	return fn(roster)
}

// limit clamps a requested listing size.
func (s *Service) limit(n int) int {
	if n <= 0 || n > s.maxLimit {
		return s.maxLimit
	}
	return n
}

// claimReport records a report id; it reports false for a repeat.
func (s *Service) claimReport(ctx context.Context, ladder model.Ladder, id string) bool {
	if id == "" {
		return true
	}
	if s.deduper.SeenAndRecord(ctx, ladder.String()+":"+id) {
		metrics.RecordDuplicateReport()
		s.logger.Info(ctx, "duplicate report ignored",
			logger.String("ladder", ladder.String()),
			logger.String("report_id", id))
		return false
	}
	return true
}

func (s *Service) releaseReport(ctx context.Context, ladder model.Ladder, id string) {
	if id != "" {
		s.deduper.Unrecord(ctx, ladder.String()+":"+id)
	}
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("empty player id: %w", rating.ErrInvalidInput)
	}
	return id, nil
}

// reason labels an error for the rejection metric.
func reason(err error) string {
	switch {
	case errors.Is(err, rating.ErrUnregistered), errors.Is(err, history.ErrUnregistered):
		return "unregistered"
	case errors.Is(err, rating.ErrSamePlayer), errors.Is(err, history.ErrSamePlayer):
		return "same_player"
	case errors.Is(err, rating.ErrDuplicatePlayer):
		return "duplicate_player"
	case errors.Is(err, rating.ErrInvalidInput), errors.Is(err, history.ErrInvalidEntry):
		return "invalid_input"
	case errors.Is(err, model.ErrIncompatibleHistory):
		return "incompatible_history"
	case errors.Is(err, repository.ErrLoad), errors.Is(err, repository.ErrSave):
		return "persistence"
	case errors.Is(err, ranking.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}

func (s *Service) reject(ctx context.Context, ladder model.Ladder, op string, err error) {
	r := reason(err)
	metrics.RecordMatchRejected(ladder.String(), r)
	level := s.logger.Warn
	if r == "persistence" || r == "other" {
		level = s.logger.Error
	}
	level(ctx, op+" rejected",
		logger.String("ladder", ladder.String()),
		logger.String("reason", r),
		logger.Error(err))
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
