package object

import (
	"sync/atomic"

	"github.com/clovervm/clover/value"
)

// Incref adds a reference to v when it is a reference-counted pointer and
// returns v. Inline, interned and immortal values are untouched.
func Incref(v value.Value) value.Value {
	if v.IsRefcounted() {
		atomic.AddInt32(HeaderOf(v).refcount(), 1)
	}
	return v
}

// Refcount returns the count of v, or ImmortalRefcount for values that are
// not reference counted.
func Refcount(v value.Value) int32 {
	if !v.IsRefcounted() {
		return ImmortalRefcount
	}
	return HeaderOf(v).Refcount()
}

// ZeroCountTable is a per-thread worklist of objects whose count reached
// zero. Reclamation happens in Drain, never inside Decref.
//
// A ZeroCountTable must not be shared between goroutines.
type ZeroCountTable struct {
	pending   []value.Value
	finalized int
}

// NewZeroCountTable returns an empty worklist.
func NewZeroCountTable() *ZeroCountTable {
	return &ZeroCountTable{}
}

// Decref drops a reference to v. An object whose count reaches zero is
// queued for reclamation.
func (z *ZeroCountTable) Decref(v value.Value) {
	if !v.IsRefcounted() {
		return
	}
	if atomic.AddInt32(HeaderOf(v).refcount(), -1) == 0 {
		z.pending = append(z.pending, v)
	}
}

// Pending returns the number of queued objects.
func (z *ZeroCountTable) Pending() int { return len(z.pending) }

// Finalized returns the total number of objects reclaimed so far.
func (z *ZeroCountTable) Finalized() int { return z.finalized }

// Drain reclaims queued objects until the worklist is empty and returns the
// number reclaimed. An object that was referenced again after being queued
// is skipped. Releasing an object's cells may queue further objects; those
// are handled by the same loop, so teardown depth never grows the Go stack.
func (z *ZeroCountTable) Drain() int {
	n := 0
	for len(z.pending) > 0 {
		last := len(z.pending) - 1
		v := z.pending[last]
		z.pending = z.pending[:last]

		h := HeaderOf(v)
		if !atomic.CompareAndSwapInt32(h.refcount(), 0, deadRefcount) {
			continue
		}
		for i := 0; i < h.NCells(); i++ {
			old := h.Cell(i)
			h.SetCell(i, value.None)
			z.Decref(old)
		}
		if idx := h.native(); idx != 0 {
			h.setNative(0)
			if payload := natives.release(idx); payload != nil {
				payload.ReleaseRefs(z)
			}
		}
		n++
	}
	z.finalized += n
	return n
}

// IsDead reports whether v has been reclaimed.
func IsDead(v value.Value) bool {
	return v.IsRefcounted() && HeaderOf(v).Refcount() == deadRefcount
}
