package heap

import (
	"os"
	"sync"

	"github.com/clovervm/clover/value"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Allocator hands out tagged heap addresses.
type Allocator interface {
	Allocate(n int) Addr
}

// GlobalHeap is the shared, mutex-protected registry of slabs for one
// arena. The arena is fixed by the tag offset: every slab starts bumping at
// that offset, so every address it ever returns carries the arena's tag.
type GlobalHeap struct {
	mu        sync.Mutex
	name      string
	tag       int
	slabSize  int
	largeSize int
	slabs     []*Slab
	shared    *Slab
	log       zerolog.Logger
	fatal     func(err error)
}

// Option configures a GlobalHeap.
type Option func(*GlobalHeap)

// WithLogger sets the logger used for slab lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(g *GlobalHeap) {
		g.log = l
	}
}

// WithSlabSize sets the size of regular slabs.
func WithSlabSize(n int) Option {
	return func(g *GlobalHeap) {
		g.slabSize = n
	}
}

// WithLargeObjectSize sets the request size at and above which an
// allocation gets a dedicated slab.
func WithLargeObjectSize(n int) Option {
	return func(g *GlobalHeap) {
		g.largeSize = n
	}
}

// WithFatalHandler replaces the handler invoked when the operating system
// refuses a mapping. The handler must not return.
func WithFatalHandler(fn func(err error)) Option {
	return func(g *GlobalHeap) {
		g.fatal = fn
	}
}

// New returns a heap for the arena identified by tag.
func New(name string, tag int, opts ...Option) *GlobalHeap {
	g := &GlobalHeap{
		name:      name,
		tag:       tag,
		slabSize:  DefaultSlabSize,
		largeSize: DefaultLargeAllocationSize,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.fatal == nil {
		g.fatal = func(err error) {
			g.log.WithLevel(zerolog.FatalLevel).Err(err).Str("heap", g.name).Msg("heap exhausted")
			os.Exit(2)
		}
	}
	return g
}

// NewRefcounted returns the arena for reference-counted objects.
func NewRefcounted(opts ...Option) *GlobalHeap {
	return New("refcounted", value.RefcountedTag, opts...)
}

// NewImmortal returns the arena for objects that are never reclaimed.
func NewImmortal(opts ...Option) *GlobalHeap {
	return New("immortal", value.ImmortalTag, opts...)
}

// NewInterned returns the arena for deduplicated long-lived values.
func NewInterned(opts ...Option) *GlobalHeap {
	return New("interned", value.InternedTag, opts...)
}

func (g *GlobalHeap) Name() string { return g.name }

func (g *GlobalHeap) Tag() int { return g.tag }

func (g *GlobalHeap) LargeObjectSize() int { return g.largeSize }

// MakeNewSlab maps a regular slab for a thread heap.
func (g *GlobalHeap) MakeNewSlab() *Slab {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mapLocked(g.slabSize, false)
}

// AllocateLargeObject maps a slab sized exactly for one allocation of n
// bytes and allocates from it.
func (g *GlobalHeap) AllocateLargeObject(n int) Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allocateLargeLocked(n)
}

// Allocate serves callers without a thread heap, such as the intern store,
// from a slab shared under the heap mutex.
func (g *GlobalHeap) Allocate(n int) Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shared != nil {
		if a := g.shared.Allocate(n); a != Nil {
			return a
		}
	}
	if n >= g.largeSize {
		return g.allocateLargeLocked(n)
	}
	g.shared = g.mapLocked(g.slabSize, false)
	if g.shared == nil {
		return Nil
	}
	return g.shared.Allocate(n)
}

func (g *GlobalHeap) allocateLargeLocked(n int) Addr {
	size := g.tag + RoundUp(n)
	page := os.Getpagesize()
	size = (size + page - 1) &^ (page - 1)
	s := g.mapLocked(size, true)
	if s == nil {
		return Nil
	}
	return s.Allocate(n)
}

func (g *GlobalHeap) mapLocked(size int, large bool) *Slab {
	s, err := slabs.add(size, g.tag)
	if err != nil {
		g.fatal(err)
		return nil
	}
	s.large = large
	g.slabs = append(g.slabs, s)
	g.log.Debug().
		Str("heap", g.name).
		Uint32("slab", s.id).
		Int("size", size).
		Bool("large", large).
		Msg("mapped slab")
	return s
}

// SlabCount returns the number of live slabs owned by the heap.
func (g *GlobalHeap) SlabCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slabs)
}

// Close unmaps every slab. Addresses from this heap are dangling afterwards.
func (g *GlobalHeap) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var result *multierror.Error
	for _, s := range g.slabs {
		if err := slabs.release(s); err != nil {
			result = multierror.Append(result, err)
		}
	}
	g.log.Debug().Str("heap", g.name).Int("slabs", len(g.slabs)).Msg("released slabs")
	g.slabs = nil
	g.shared = nil
	return result.ErrorOrNil()
}
