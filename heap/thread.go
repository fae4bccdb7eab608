package heap

// ThreadHeap owns one active slab for a single interpreter thread. The
// common allocation path touches only that slab and takes no lock; the
// global heap is consulted when the slab is exhausted.
//
// A ThreadHeap must not be shared between goroutines.
type ThreadHeap struct {
	global *GlobalHeap
	slab   *Slab
}

// NewThreadHeap returns a thread heap drawing slabs from g.
func NewThreadHeap(g *GlobalHeap) *ThreadHeap {
	return &ThreadHeap{global: g}
}

// Allocate returns n bytes from the active slab, falling back to a
// dedicated large-object slab or a fresh regular slab.
func (t *ThreadHeap) Allocate(n int) Addr {
	if t.slab != nil {
		if a := t.slab.Allocate(n); a != Nil {
			return a
		}
	}
	if n >= t.global.largeSize {
		return t.global.AllocateLargeObject(n)
	}
	t.slab = t.global.MakeNewSlab()
	if t.slab == nil {
		return Nil
	}
	return t.slab.Allocate(n)
}

// Global returns the heap this thread heap draws from.
func (t *ThreadHeap) Global() *GlobalHeap { return t.global }
