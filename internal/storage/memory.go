package storage

import "sync"

// Record is a stored test record.
type Record interface {
	TestID() string
}

// Ordered is a mutex-guarded, order-preserving registry of records.
type Ordered[T Record] struct {
	mu    sync.Mutex
	items []T
}

// NewOrdered creates an empty registry.
func NewOrdered[T Record]() *Ordered[T] {
	return &Ordered[T]{}
}

// Append adds r at the tail.
func (s *Ordered[T]) Append(r T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
}

// Replace removes every record with r's test id and appends r.
func (s *Ordered[T]) Replace(r T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(r.TestID())
	s.items = append(s.items, r)
}

// MatchAndPromote finds the first record accepted by accept, moves it to the
// tail and calls onMatch with it, all under the registry lock. Records matched
// recently therefore lose ties against records that were not.
func (s *Ordered[T]) MatchAndPromote(accept func(T) bool, onMatch func(T)) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.items {
		if !accept(r) {
			continue
		}
		copy(s.items[i:], s.items[i+1:])
		s.items[len(s.items)-1] = r
		if onMatch != nil {
			onMatch(r)
		}
		return r, true
	}
	var zero T
	return zero, false
}

// Match is MatchAndPromote without moving the record.
func (s *Ordered[T]) Match(accept func(T) bool, onMatch func(T)) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.items {
		if accept(r) {
			if onMatch != nil {
				onMatch(r)
			}
			return r, true
		}
	}
	var zero T
	return zero, false
}

// View calls fn under the lock with the first record registered as testID.
func (s *Ordered[T]) View(testID string, fn func(T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.items {
		if r.TestID() == testID {
			fn(r)
			return true
		}
	}
	return false
}

// Remove deletes every record registered as testID and returns how many
// were removed.
func (s *Ordered[T]) Remove(testID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(testID)
}

func (s *Ordered[T]) removeLocked(testID string) int {
	kept := s.items[:0]
	for _, r := range s.items {
		if r.TestID() != testID {
			kept = append(kept, r)
		}
	}
	removed := len(s.items) - len(kept)
	clear(s.items[len(kept):])
	s.items = kept
	return removed
}

// Clear removes all records and returns how many there were.
func (s *Ordered[T]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	s.items = nil
	return n
}

// Len returns the number of records.
func (s *Ordered[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IDs returns the test ids in registry order.
func (s *Ordered[T]) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.items))
	for i, r := range s.items {
		ids[i] = r.TestID()
	}
	return ids
}
