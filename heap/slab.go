// Package heap implements the allocator hierarchy: bump-allocating slabs
// backed by anonymous memory mappings, per-thread heaps that own one active
// slab, and mutex-protected global heaps that hand out slabs for one arena.
//
// Heap memory is never scanned by the Go garbage collector. Objects are
// addressed by Addr, a tagged handle naming a slab and a byte offset, so a
// Value cell can carry a heap reference without holding a Go pointer.
package heap

import (
	"fmt"

	"github.com/clovervm/clover/value"
	"golang.org/x/sys/unix"
)

const (
	// Granularity is the allocation rounding unit. Every address handed out
	// by a slab is congruent to the slab's tag offset modulo Granularity.
	Granularity = value.PtrGranularity

	DefaultSlabSize            = 1 << 16
	DefaultLargeAllocationSize = DefaultSlabSize / 2

	maxSlabSize = 1<<32 - 1
)

// Addr is a tagged heap address: the slab id in the upper 32 bits and the
// byte offset of the object within the slab in the lower 32 bits. The
// offset carries the arena tag in its low bits. Nil is never a valid address
// because every arena tag is non-zero.
type Addr uint64

const Nil Addr = 0

func (a Addr) SlabID() uint32 { return uint32(a >> 32) }

func (a Addr) Offset() uint32 { return uint32(a) }

func (a Addr) Value() value.Value { return value.Value(a) }

// AddrOf returns the address carried by a pointer value.
func AddrOf(v value.Value) Addr { return Addr(v) }

// RoundUp rounds n up to the allocation granularity.
func RoundUp(n int) int {
	if n <= 0 {
		return Granularity
	}
	return (n + Granularity - 1) &^ (Granularity - 1)
}

// Slab is one memory mapping that is bump-allocated forward. Objects inside
// a slab are never freed individually; the mapping is released as a whole.
type Slab struct {
	id    uint32
	mem   []byte
	curr  int
	end   int
	large bool
}

func mapSlab(id uint32, size, tagOffset int) (*Slab, error) {
	if size <= tagOffset || size > maxSlabSize {
		return nil, fmt.Errorf("invalid slab size %d", size)
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return &Slab{id: id, mem: mem, curr: tagOffset, end: size}, nil
}

// Allocate reserves n bytes rounded up to the granularity. It returns Nil
// when the slab cannot fit the request; it never grows.
func (s *Slab) Allocate(n int) Addr {
	n = RoundUp(n)
	if s.mem == nil || s.curr+n > s.end {
		return Nil
	}
	off := s.curr
	s.curr += n
	return Addr(uint64(s.id)<<32 | uint64(off))
}

func (s *Slab) ID() uint32 { return s.id }

// Size returns the size of the mapping in bytes.
func (s *Slab) Size() int { return s.end }

// Remaining returns the number of bytes not yet handed out.
func (s *Slab) Remaining() int { return s.end - s.curr }

// Large reports whether the slab was sized for a single large object.
func (s *Slab) Large() bool { return s.large }

func (s *Slab) unmap() error {
	if s.mem == nil {
		return nil
	}
	mem := s.mem
	s.mem = nil
	s.curr = s.end
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("munmap slab %d: %w", s.id, err)
	}
	return nil
}
