// Package inputs holds the latest value of every asynchronously updated
// input to the drive-by-wire core.
package inputs

import "go.uber.org/atomic"

// Cell is a last-value-wins slot. Writers swap in a new immutable snapshot;
// readers never observe a partial update.
type Cell[T any] struct {
	p atomic.Pointer[snapshot[T]]
}

type snapshot[T any] struct {
	value T
	seq   uint64
}

// Store publishes v. The caller must not mutate v afterwards.
func (c *Cell[T]) Store(v T) {
	for {
		old := c.p.Load()
		next := &snapshot[T]{value: v, seq: 1}
		if old != nil {
			next.seq = old.seq + 1
		}
		if c.p.CompareAndSwap(old, next) {
			return
		}
	}
}

// Load returns the latest value and whether one was ever stored.
func (c *Cell[T]) Load() (T, bool) {
	v, _, ok := c.Snapshot()
	return v, ok
}

// Snapshot also returns a sequence number that changes on every Store, so
// callers can skip work when nothing new arrived.
func (c *Cell[T]) Snapshot() (T, uint64, bool) {
	s := c.p.Load()
	if s == nil {
		var zero T
		return zero, 0, false
	}
	return s.value, s.seq, true
}
