// Package dedupe tracks in-flight resync targets so duplicate manual
// requests for the same contest or user coalesce into one job.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Default capacity of the pending set.
const defaultMaxSize = 4096

// Deduper records pending keys.
type Deduper interface {
	// SeenAndRecord atomically checks whether key is pending and records it
	// if not. It returns true when key was already pending.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord drops key once its job has finished, or when it could not be
	// enqueued, so later requests for the same target are accepted again.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps keys in insertion order. When bounded and full, the
// oldest pending key is forgotten first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	pending map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper. maxSize <= 0 means unbounded.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		pending: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pending[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.pending[key] = d.order.PushBack(key)
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.pending[key]
	if !ok {
		return
	}
	d.order.Remove(el)
	delete(d.pending, key)
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.pending, front.Value.(string))
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
