// Package repository persists ladder rosters.
//
// Every backend stores one CBOR document per player and treats a ladder as
// a whole: Load returns the full roster and Save replaces it atomically.
package repository

import (
	"context"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Store provides whole-roster persistence for one ladder.
type Store interface {
	// Load returns the persisted roster. A store that was never written
	// returns an empty roster.
	Load(ctx context.Context) (model.Roster, error)
	// Save durably replaces the persisted roster.
	Save(ctx context.Context, roster model.Roster) error
}

// Option applies a configuration option to a backend.
type Option func(*base)

// WithLogger sets the logger used by a backend.
func WithLogger(l logger.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// base carries what every backend shares.
type base struct {
	backend string
	ladder  model.Ladder
	logger  logger.Logger
}

func newBase(backend string, ladder model.Ladder, opts []Option) base {
	b := base{backend: backend, ladder: ladder, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.Named("repository." + backend)
	return b
}

// observe records latency and failures of a load or save.
func (b base) observe(ctx context.Context, op string, start time.Time, players int, err error) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordStoreLatency(b.backend, op, ms)
	if err != nil {
		metrics.RecordStoreError(b.backend, op)
		b.logger.Error(ctx, "store "+op+" failed",
			logger.String("ladder", b.ladder.String()),
			logger.Error(err))
		return
	}
	b.logger.Debug(ctx, "store "+op,
		logger.String("ladder", b.ladder.String()),
		logger.Int("players", players),
		logger.Float64("latency_ms", ms))
}
