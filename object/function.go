package object

import (
	"fmt"

	"github.com/clovervm/clover/value"
)

// Functions hold a strong reference to their code object in cell 0.

// NewFunction allocates a function for the given code object.
func NewFunction(a Allocator, code value.Value) value.Value {
	v := New(a, FunctionKlass, 1, 0)
	HeaderOf(v).SetCell(0, Incref(code))
	return v
}

// IsFunction reports whether v is a function object.
func IsFunction(v value.Value) bool {
	return v.IsPtr() && HeaderOf(v).Klass() == FunctionKlass
}

// FunctionCode returns the code object of a function (borrowed).
func FunctionCode(v value.Value) value.Value {
	return HeaderOf(v).Cell(0)
}

// Namer is implemented by native payloads that have a display name.
type Namer interface {
	ObjectName() string
}

func functionStr(v value.Value) string {
	if n, ok := NativeOf(HeaderOf(v).Cell(0)).(Namer); ok {
		return fmt.Sprintf("<function %s>", n.ObjectName())
	}
	return "<function>"
}
