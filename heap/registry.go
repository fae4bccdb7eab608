package heap

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// slabs maps slab ids to live slabs for every heap in the process. Lookups
// are lock-free; registration and release take the mutex.
var slabs registry

type registry struct {
	mu    sync.Mutex
	next  uint32
	table atomic.Pointer[[]*Slab]
}

func (r *registry) add(size, tagOffset int) (*Slab, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next == ^uint32(0) {
		return nil, fmt.Errorf("slab ids exhausted")
	}
	r.next++
	s, err := mapSlab(r.next, size, tagOffset)
	if err != nil {
		return nil, err
	}
	next := r.snapshot(int(s.id) + 1)
	next[s.id] = s
	r.table.Store(&next)
	return s, nil
}

// snapshot returns a private copy of the table at least n entries long.
// Published tables are never written again.
func (r *registry) snapshot(n int) []*Slab {
	var cur []*Slab
	if t := r.table.Load(); t != nil {
		cur = *t
	}
	next := make([]*Slab, max(n, len(cur)))
	copy(next, cur)
	return next
}

func (r *registry) release(s *Slab) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t := r.table.Load(); t != nil && int(s.id) < len(*t) {
		next := r.snapshot(0)
		next[s.id] = nil
		r.table.Store(&next)
	}
	return s.unmap()
}

func (r *registry) lookup(id uint32) *Slab {
	t := r.table.Load()
	if t == nil || int(id) >= len(*t) {
		return nil
	}
	return (*t)[id]
}

// Bytes returns the slab memory starting at addr and running to the end of
// its slab. It panics on an address whose slab has been released.
func Bytes(addr Addr) []byte {
	s := slabs.lookup(addr.SlabID())
	if s == nil || s.mem == nil {
		panic(fmt.Sprintf("heap: dangling address %#x", uint64(addr)))
	}
	return s.mem[addr.Offset():]
}

// Live reports whether addr names a mapped slab.
func Live(addr Addr) bool {
	s := slabs.lookup(addr.SlabID())
	return s != nil && s.mem != nil && int(addr.Offset()) < s.end
}
