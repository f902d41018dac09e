package fetch

import "sync"

// Ticket identifies one load started on a Slot.
type Ticket uint64

// Slot holds the latest loaded value. A result is committed only if no newer load
// started and the slot is still open, so a late response never overwrites fresher
// state or touches a view that is gone.
type Slot[T any] struct {
	mu      sync.Mutex
	gen     uint64
	closed  bool
	value   T
	err     error
	loaded  bool
	pending int
}

// Begin starts a load and invalidates every ticket issued before.
func (s *Slot[T]) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.pending++
	return Ticket(s.gen)
}

// Commit stores the result of the load identified by t. It reports false when the
// result was discarded as stale.
func (s *Slot[T]) Commit(t Ticket, v T, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending > 0 {
		s.pending--
	}
	if s.closed || uint64(t) != s.gen {
		return false
	}
	s.value, s.err, s.loaded = v, err, true
	return true
}

// Close discards every in-flight and future result.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Get returns the committed value and error.
func (s *Slot[T]) Get() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.err
}

// Loading reports whether a load is in flight or nothing was committed yet.
func (s *Slot[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0 || !s.loaded
}
