package object

import (
	"sync"

	"github.com/clovervm/clover/value"
)

// InternStore deduplicates strings into an interned arena, so that equal
// names compare equal by identity. It is safe for concurrent use.
type InternStore struct {
	alloc Allocator
	mu    sync.RWMutex
	table map[string]value.Value
}

// NewInternStore returns a store allocating from a, which should be the
// interned global heap.
func NewInternStore(a Allocator) *InternStore {
	return &InternStore{alloc: a, table: map[string]value.Value{}}
}

// Intern returns the unique string object for s, creating it if needed.
func (s *InternStore) Intern(str string) value.Value {
	s.mu.RLock()
	v, ok := s.table[str]
	s.mu.RUnlock()
	if ok {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.table[str]; ok {
		return v
	}
	v = NewString(s.alloc, str)
	s.table[str] = v
	return v
}

// Lookup returns the interned object for s without creating one.
func (s *InternStore) Lookup(str string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.table[str]
	return v, ok
}

// Len returns the number of interned strings.
func (s *InternStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.table)
}
