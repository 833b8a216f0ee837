package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// MemoryStore keeps the encoded roster in memory. It goes through the same
// codec as the durable backends, so callers never share records with it.
type MemoryStore struct {
	base
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(ladder model.Ladder, opts ...Option) *MemoryStore {
	return &MemoryStore{base: newBase("memory", ladder, opts)}
}

// Load decodes the last saved roster.
func (s *MemoryStore) Load(ctx context.Context) (roster model.Roster, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "load", start, len(roster), err) }()

	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	if data == nil {
		return make(model.Roster), nil
	}
	roster, err = unmarshalRoster(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return roster, nil
}

// Save encodes and keeps roster.
func (s *MemoryStore) Save(ctx context.Context, roster model.Roster) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "save", start, len(roster), err) }()

	data, err := marshalRoster(roster)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}
