// Package object defines the heap object layout shared by every non-inline
// value, the type descriptors (klasses), and reference counting.
//
// An object lives in slab memory:
//
//	offset  0  klass id       uint32
//	offset  4  refcount       int32 (atomic)
//	offset  8  value cells    uint32
//	offset 12  payload cells  uint32 (value cells plus trailing bytes)
//	offset 16  native handle  uint32
//	offset 24  payload
package object

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/clovervm/clover/heap"
	"github.com/clovervm/clover/value"
)

const (
	HeaderSize = 24
	CellSize   = 8

	offKlass    = 0
	offRefcount = 4
	offCells    = 8
	offSize     = 12
	offNative   = 16
)

const (
	// ImmortalRefcount marks objects whose count is never adjusted.
	ImmortalRefcount int32 = -1

	deadRefcount int32 = math.MinInt32
)

// Header is a view of one object's header and payload.
type Header struct {
	mem []byte
}

// HeaderOf returns the header of a pointer value.
func HeaderOf(v value.Value) Header {
	return Header{mem: heap.Bytes(heap.AddrOf(v))}
}

// New allocates an object of klass k with nCells value cells followed by
// nBytes raw bytes. Value cells start out as None. Refcounted objects are
// returned as a new reference with a count of one.
func New(a heap.Allocator, k *Klass, nCells, nBytes int) value.Value {
	payload := nCells*CellSize + nBytes
	addr := a.Allocate(HeaderSize + payload)
	v := addr.Value()
	h := HeaderOf(v)
	binary.LittleEndian.PutUint32(h.mem[offKlass:], k.id)
	binary.LittleEndian.PutUint32(h.mem[offCells:], uint32(nCells))
	binary.LittleEndian.PutUint32(h.mem[offSize:], uint32((payload+CellSize-1)/CellSize))
	binary.LittleEndian.PutUint32(h.mem[offNative:], 0)
	if v.IsRefcounted() {
		atomic.StoreInt32(h.refcount(), 1)
	} else {
		atomic.StoreInt32(h.refcount(), ImmortalRefcount)
	}
	for i := 0; i < nCells; i++ {
		h.SetCell(i, value.None)
	}
	return v
}

func (h Header) refcount() *int32 {
	return (*int32)(unsafe.Pointer(&h.mem[offRefcount]))
}

// Klass returns the type descriptor.
func (h Header) Klass() *Klass {
	return klassByID(binary.LittleEndian.Uint32(h.mem[offKlass:]))
}

// Refcount returns the current count.
func (h Header) Refcount() int32 {
	return atomic.LoadInt32(h.refcount())
}

// NCells returns the number of addressable value cells.
func (h Header) NCells() int {
	return int(binary.LittleEndian.Uint32(h.mem[offCells:]))
}

// SizeInCells returns the payload size in cells, including trailing bytes.
func (h Header) SizeInCells() int {
	return int(binary.LittleEndian.Uint32(h.mem[offSize:]))
}

// Cell returns value cell i.
func (h Header) Cell(i int) value.Value {
	return value.Value(binary.LittleEndian.Uint64(h.mem[HeaderSize+i*CellSize:]))
}

// SetCell overwrites value cell i without adjusting reference counts.
func (h Header) SetCell(i int, v value.Value) {
	binary.LittleEndian.PutUint64(h.mem[HeaderSize+i*CellSize:], uint64(v))
}

// Bytes returns the raw payload following the value cells.
func (h Header) Bytes() []byte {
	start := HeaderSize + h.NCells()*CellSize
	end := HeaderSize + h.SizeInCells()*CellSize
	return h.mem[start:end:end]
}

func (h Header) native() uint32 {
	return binary.LittleEndian.Uint32(h.mem[offNative:])
}

func (h Header) setNative(idx uint32) {
	binary.LittleEndian.PutUint32(h.mem[offNative:], idx)
}
