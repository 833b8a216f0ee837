// Package dedupe remembers recently applied match report ids so a client
// retrying a submission does not rate the same match twice.
package dedupe

import (
	"context"
	"sync"
)

// DefaultMaxSize is the number of report ids remembered by default.
const DefaultMaxSize = 10000

// Deduper tracks report ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded, recording it
	// if not.
	SeenAndRecord(ctx context.Context, id string) bool
	// Unrecord forgets id, e.g. when applying its report failed.
	Unrecord(ctx context.Context, id string)
	// Size returns the number of ids currently remembered.
	Size() int
}

// ringDeduper keeps the newest ids in a fixed ring; recording into a full
// ring forgets the oldest id.
type ringDeduper struct {
	mu      sync.Mutex
	maxSize int
	slots   map[string]int // id -> ring index
	ring    []string       // "" marks a free or unrecorded slot
	next    int
}

// NewInMemoryDeduper creates a bounded deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.slots = make(map[string]int, d.maxSize)
	d.ring = make([]string, d.maxSize)
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.slots[id]; ok {
		return true
	}
	if old := d.ring[d.next]; old != "" {
		delete(d.slots, old)
	}
	d.ring[d.next] = id
	d.slots[id] = d.next
	d.next = (d.next + 1) % len(d.ring)
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i, ok := d.slots[id]; ok {
		delete(d.slots, id)
		d.ring[i] = ""
	}
}

func (d *ringDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.slots)
}
