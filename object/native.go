package object

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/clovervm/clover/value"
)

// Native is a Go payload attached to a heap object. Scopes and code objects
// keep their variable-length state on the Go side and use the slab object
// only for identity and reference counting.
type Native interface {
	// ReleaseRefs drops every reference the payload owns. It runs once, when
	// the owning object is reclaimed.
	ReleaseRefs(z *ZeroCountTable)
}

var natives nativeTable

const nativeChunkSize = 1024

type nativeEntry struct{ n Native }

type nativeChunk [nativeChunkSize]atomic.Pointer[nativeEntry]

// nativeTable maps the index stored in an object header to its payload.
// Index 0 means no payload. get is lock-free: the chunk list is republished
// on growth and chunks never move, so each slot is read with one atomic load.
type nativeTable struct {
	mu     sync.Mutex
	next   uint32
	free   []uint32
	chunks atomic.Pointer[[]*nativeChunk]
}

func (t *nativeTable) slot(idx uint32) *atomic.Pointer[nativeEntry] {
	c := t.chunks.Load()
	if c == nil || int(idx/nativeChunkSize) >= len(*c) {
		return nil
	}
	return &(*c)[idx/nativeChunkSize][idx%nativeChunkSize]
}

func (t *nativeTable) put(n Native) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var idx uint32
	if k := len(t.free); k > 0 {
		idx = t.free[k-1]
		t.free = t.free[:k-1]
	} else {
		if t.next == 0 {
			t.next = 1
		}
		idx = t.next
		t.next++
	}
	s := t.slot(idx)
	if s == nil {
		var cur []*nativeChunk
		if c := t.chunks.Load(); c != nil {
			cur = *c
		}
		grown := make([]*nativeChunk, len(cur)+1)
		copy(grown, cur)
		grown[len(cur)] = new(nativeChunk)
		t.chunks.Store(&grown)
		s = t.slot(idx)
	}
	s.Store(&nativeEntry{n: n})
	return idx
}

func (t *nativeTable) get(idx uint32) Native {
	if idx == 0 {
		return nil
	}
	s := t.slot(idx)
	if s == nil {
		return nil
	}
	if e := s.Load(); e != nil {
		return e.n
	}
	return nil
}

func (t *nativeTable) release(idx uint32) Native {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.slot(idx)
	if s == nil {
		return nil
	}
	e := s.Swap(nil)
	if e == nil {
		return nil
	}
	t.free = append(t.free, idx)
	return e.n
}

// NewNative allocates an object of klass k carrying payload n.
func NewNative(a Allocator, k *Klass, n Native) value.Value {
	v := New(a, k, 0, 0)
	HeaderOf(v).setNative(natives.put(n))
	return v
}

// NativeOf returns the payload of a native-backed object, or nil.
func NativeOf(v value.Value) Native {
	if !v.IsPtr() {
		return nil
	}
	return natives.get(HeaderOf(v).native())
}

// MustNative returns the payload of v, panicking when it has none.
func MustNative(v value.Value) Native {
	n := NativeOf(v)
	if n == nil {
		panic(fmt.Sprintf("object: %s has no native payload", v))
	}
	return n
}
