package object

import (
	"bytes"

	"github.com/clovervm/clover/heap"
	"github.com/clovervm/clover/value"
)

// Allocator is the allocation interface objects are created through.
type Allocator = heap.Allocator

// Strings hold their byte length in cell 0 followed by the raw bytes.

// NewString allocates a string object.
func NewString(a Allocator, s string) value.Value {
	v := New(a, StringKlass, 1, len(s))
	h := HeaderOf(v)
	h.SetCell(0, value.Smi(int64(len(s))))
	copy(h.Bytes(), s)
	return v
}

// IsString reports whether v is a string object.
func IsString(v value.Value) bool {
	return v.IsPtr() && HeaderOf(v).Klass() == StringKlass
}

func stringBytes(v value.Value) []byte {
	h := HeaderOf(v)
	return h.Bytes()[:h.Cell(0).Int()]
}

// StringOf copies the contents of a string object.
func StringOf(v value.Value) string {
	return string(stringBytes(v))
}

// StringLen returns the byte length of a string object.
func StringLen(v value.Value) int {
	return int(HeaderOf(v).Cell(0).Int())
}

// StringHash is the djb2 hash of the string contents.
func StringHash(v value.Value) uint64 {
	return hashBytes(stringBytes(v))
}

func hashBytes(b []byte) uint64 {
	h := uint64(5381)
	for _, c := range b {
		h = h*33 + uint64(c)
	}
	return h
}

// StringEq compares two string objects by identity, then contents.
func StringEq(a, b value.Value) bool {
	if a == b {
		return true
	}
	return bytes.Equal(stringBytes(a), stringBytes(b))
}

func stringStr(v value.Value) string {
	return string(stringBytes(v))
}
