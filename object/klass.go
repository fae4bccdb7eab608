package object

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/clovervm/clover/value"
)

// Klass describes one type: a display name and a single stringify slot.
// Klasses are registered once per process and never released.
type Klass struct {
	id   uint32
	Name string
	Str  func(v value.Value) string
}

// klasses is indexed by klass id; id 0 is never assigned. Readers load the
// published list without locking and registration replaces it.
var klasses struct {
	mu   sync.Mutex
	list atomic.Pointer[[]*Klass]
}

// NewKlass registers a type descriptor.
func NewKlass(name string, str func(v value.Value) string) *Klass {
	klasses.mu.Lock()
	defer klasses.mu.Unlock()
	cur := []*Klass{nil}
	if l := klasses.list.Load(); l != nil {
		cur = *l
	}
	k := &Klass{id: uint32(len(cur)), Name: name, Str: str}
	next := make([]*Klass, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, k)
	klasses.list.Store(&next)
	return k
}

func klassByID(id uint32) *Klass {
	if l := klasses.list.Load(); l != nil && id > 0 && int(id) < len(*l) {
		return (*l)[id]
	}
	panic(fmt.Sprintf("object: unknown klass id %d", id))
}

// ID returns the registry index stored in object headers.
func (k *Klass) ID() uint32 { return k.id }

func (k *Klass) String() string { return k.Name }

func inlineStr(v value.Value) string { return v.String() }

var (
	KlassKlass    = NewKlass("type", klassStr)
	IntKlass      = NewKlass("int", inlineStr)
	BoolKlass     = NewKlass("bool", inlineStr)
	NoneKlass     = NewKlass("NoneType", inlineStr)
	StringKlass   = NewKlass("str", stringStr)
	FunctionKlass = NewKlass("function", functionStr)
	CodeKlass     = NewKlass("code", nativeStr)
	ScopeKlass    = NewKlass("scope", nativeStr)
	InternalKlass = NewKlass("internal", inlineStr)
)

// KlassOf returns the descriptor of any value, including inline ones.
func KlassOf(v value.Value) *Klass {
	switch v.Kind() {
	case value.KindSmi:
		return IntKlass
	case value.KindBool:
		return BoolKlass
	case value.KindNone:
		return NoneKlass
	case value.KindRefcounted, value.KindInterned, value.KindImmortal:
		return HeaderOf(v).Klass()
	default:
		return InternalKlass
	}
}

// Str stringifies a value through its klass.
func Str(v value.Value) string {
	return KlassOf(v).Str(v)
}

// NewKlassObject allocates a heap object standing for k, typically in the
// immortal arena.
func NewKlassObject(a Allocator, k *Klass) value.Value {
	v := New(a, KlassKlass, 1, 0)
	HeaderOf(v).SetCell(0, value.Smi(int64(k.id)))
	return v
}

// KlassFromObject returns the descriptor a klass object stands for.
func KlassFromObject(v value.Value) *Klass {
	return klassByID(uint32(HeaderOf(v).Cell(0).Int()))
}

func klassStr(v value.Value) string {
	return fmt.Sprintf("<class '%s'>", KlassFromObject(v).Name)
}

func nativeStr(v value.Value) string {
	h := HeaderOf(v)
	if n, ok := natives.get(h.native()).(fmt.Stringer); ok {
		return n.String()
	}
	return fmt.Sprintf("<%s>", h.Klass().Name)
}
