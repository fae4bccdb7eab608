// Package scope implements chained symbol tables mapping interned names to
// dense slot indices.
//
// A slot that has no value of its own holds a not-present sentinel. When the
// name was registered for reading, the sentinel caches the slot index the
// parent scope assigned to the same name, so a run-time read of an
// inherited name costs one hop instead of a dictionary search.
//
// Scopes are not synchronized. Mutating a scope that another goroutine reads
// is unsupported.
package scope

import (
	"fmt"

	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/value"
)

// Scope is one level of the chain. It is a heap object with a native
// payload so that code objects can own it through reference counting.
type Scope struct {
	self   value.Value
	parent *Scope
	names  *object.IndirectDict
	slots  []value.Value
}

// New allocates a scope whose parent is parent, which may be nil. The scope
// holds a strong reference to its parent. The returned scope is a new
// reference; Value returns the handle to release it with.
func New(a object.Allocator, parent *Scope) *Scope {
	s := &Scope{parent: parent, names: object.NewIndirectDict()}
	if parent != nil {
		object.Incref(parent.self)
	}
	s.self = object.NewNative(a, object.ScopeKlass, s)
	return s
}

// FromValue returns the scope behind a scope object.
func FromValue(v value.Value) *Scope {
	s, ok := object.NativeOf(v).(*Scope)
	if !ok {
		panic(fmt.Sprintf("scope: %s is not a scope", v))
	}
	return s
}

// Value returns the heap handle of the scope.
func (s *Scope) Value() value.Value { return s.self }

// Parent returns the enclosing scope, or nil.
func (s *Scope) Parent() *Scope { return s.parent }

// Len returns the number of slots.
func (s *Scope) Len() int { return len(s.slots) }

// Name returns the name bound to slot idx, or not-present for reserved
// slots.
func (s *Scope) Name(idx int32) value.Value { return s.names.Key(idx) }

// LookupSlotIndexLocal returns the slot of name in this scope only, or -1.
func (s *Scope) LookupSlotIndexLocal(name value.Value) int32 {
	return s.names.Lookup(name)
}

// RegisterSlotIndexForWrite returns the slot of name, creating an empty one
// when the name is new.
func (s *Scope) RegisterSlotIndexForWrite(name value.Value) int32 {
	if idx := s.names.Lookup(name); idx >= 0 {
		return idx
	}
	idx := s.names.Insert(name)
	s.slots = append(s.slots, value.NotPresent)
	return idx
}

// RegisterSlotIndexForRead is RegisterSlotIndexForWrite, except that a new
// name is also registered for reading in the parent and the parent's slot
// index is cached in the new slot.
func (s *Scope) RegisterSlotIndexForRead(name value.Value) int32 {
	if idx := s.names.Lookup(name); idx >= 0 {
		return idx
	}
	parentIdx := int32(-1)
	if s.parent != nil {
		parentIdx = s.parent.RegisterSlotIndexForRead(name)
	}
	idx := s.names.Insert(name)
	s.slots = append(s.slots, value.NotPresentAt(parentIdx))
	return idx
}

// ReserveEmptySlots appends n slots that no name maps to and returns the
// index of the first.
func (s *Scope) ReserveEmptySlots(n int) int32 {
	first := s.names.Reserve(n)
	for i := 0; i < n; i++ {
		s.slots = append(s.slots, value.NotPresent)
	}
	return first
}

// Slot returns the raw content of slot idx, which may be a not-present
// sentinel.
func (s *Scope) Slot(idx int32) value.Value { return s.slots[idx] }

// GetBySlotIndex resolves slot idx: its own value, else the cached parent
// slot, else a name lookup through the parent chain. The result is
// not-present when the name is unbound everywhere. The returned reference is
// borrowed.
func (s *Scope) GetBySlotIndex(idx int32) value.Value {
	v := s.slots[idx]
	if !v.IsNotPresent() {
		return v
	}
	if s.parent == nil {
		return value.NotPresent
	}
	if p := v.ParentIndex(); p >= 0 {
		return s.parent.GetBySlotIndex(p)
	}
	name := s.names.Key(idx)
	if name.IsNotPresent() {
		return value.NotPresent
	}
	return s.parent.GetByName(name)
}

// GetByName resolves name through the chain. The returned reference is
// borrowed.
func (s *Scope) GetByName(name value.Value) value.Value {
	idx := s.names.Lookup(name)
	if idx < 0 {
		if s.parent == nil {
			return value.NotPresent
		}
		return s.parent.GetByName(name)
	}
	return s.GetBySlotIndex(idx)
}

// SetBySlotIndex stores v into slot idx of this scope.
func (s *Scope) SetBySlotIndex(idx int32, v value.Value, z *object.ZeroCountTable) {
	old := s.slots[idx]
	s.slots[idx] = object.Incref(v)
	z.Decref(old)
}

// SetByName binds name in this scope, never in a parent.
func (s *Scope) SetByName(name, v value.Value, z *object.ZeroCountTable) {
	s.SetBySlotIndex(s.RegisterSlotIndexForWrite(name), v, z)
}

// Clear unbinds every slot and drops the references they held. Names and
// cached parent indexes are kept.
func (s *Scope) Clear(z *object.ZeroCountTable) {
	for i, v := range s.slots {
		if v.IsNotPresent() {
			continue
		}
		s.slots[i] = value.NotPresentAt(v.ParentIndex())
		z.Decref(v)
	}
}

// ReleaseRefs implements object.Native.
func (s *Scope) ReleaseRefs(z *object.ZeroCountTable) {
	for i, v := range s.slots {
		s.slots[i] = value.NotPresent
		z.Decref(v)
	}
	s.names.ReleaseRefs(z)
	if s.parent != nil {
		z.Decref(s.parent.self)
		s.parent = nil
	}
}

func (s *Scope) String() string {
	return fmt.Sprintf("<scope %d slots>", len(s.slots))
}
