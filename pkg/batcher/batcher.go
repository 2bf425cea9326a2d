// Package batcher groups items per key within a time window and hands the
// whole group to a flush callback when the window elapses.
package batcher

import (
	"sync"
	"time"
)

type Batcher[T any] struct {
	window  time.Duration
	flushFn func(key string, items []T)

	mu      sync.Mutex
	pending map[string][]T
	timers  map[string]*time.Timer
	closed  bool
}

func New[T any](window time.Duration, flushFn func(key string, items []T)) *Batcher[T] {
	return &Batcher[T]{
		window:  window,
		flushFn: flushFn,
		pending: make(map[string][]T),
		timers:  make(map[string]*time.Timer),
	}
}

// Add appends an item to the key's batch. The first item of a batch starts
// the window timer; the timer is cancelled by Flush or Close.
func (b *Batcher[T]) Add(key string, item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.pending[key] = append(b.pending[key], item)

	if _, ok := b.timers[key]; !ok {
		b.timers[key] = time.AfterFunc(b.window, func() {
			b.Flush(key)
		})
	}
}

// Flush delivers the key's batch immediately and cancels its timer.
func (b *Batcher[T]) Flush(key string) {
	b.mu.Lock()
	items := b.pending[key]
	delete(b.pending, key)
	if timer, ok := b.timers[key]; ok {
		timer.Stop()
		delete(b.timers, key)
	}
	b.mu.Unlock()

	if len(items) > 0 {
		b.flushFn(key, items)
	}
}

// Close flushes every pending batch and rejects further adds.
func (b *Batcher[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true

	keys := make([]string, 0, len(b.pending))
	for key := range b.pending {
		keys = append(keys, key)
	}
	b.mu.Unlock()

	for _, key := range keys {
		b.Flush(key)
	}
}
