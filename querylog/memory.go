package querylog

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent entries in memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewMemoryStore returns a MemoryStore which keeps up to size entries. It panics if size < 1.
func NewMemoryStore(size int) *MemoryStore {
	if size < 1 {
		panic("query log size must be at least 1")
	}

	return &MemoryStore{entries: make([]Entry, size)}
}

// Push implements the Store interface.
func (s *MemoryStore) Push(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[s.next] = e
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}

	return nil
}

// Recent implements the Store interface.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.next
	if s.full {
		count = len(s.entries)
	}
	if n < count {
		count = n
	}
	if count <= 0 {
		return nil, nil
	}

	recent := make([]Entry, 0, count)
	for i := 1; i <= count; i++ {
		recent = append(recent, s.entries[(s.next-i+len(s.entries))%len(s.entries)])
	}

	return recent, nil
}
