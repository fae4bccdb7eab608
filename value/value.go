// Package value defines the 64-bit tagged cell that every register, scope
// slot, constant and object payload is made of.
//
// The low TagBits bits of a cell are a tag. A cell whose tag is zero is a
// small integer ("smi") stored shifted left by TagBits. Heap cells carry the
// tag of the arena that allocated them; the remaining codes are sentinels.
package value

import (
	"fmt"
	"strconv"
)

// Value is one tagged cell.
type Value uint64

const (
	TagBits        = 5
	TagMask        = 1<<TagBits - 1
	PtrGranularity = TagMask + 1

	NoneTag       = 0x01
	NotPresentTag = 0x02
	ExceptionTag  = 0x03
	BooleanTag    = 0x04
	InternedTag   = 0x08
	ImmortalTag   = 0x0c
	RefcountedTag = 0x10

	pointerBits = RefcountedTag | InternedTag
	truthyMask  = ^uint64(TagMask)
)

// Sentinels and constants.
const (
	None       Value = NoneTag
	False      Value = BooleanTag
	True       Value = BooleanTag | 1<<TagBits
	Exception  Value = ExceptionTag
	NotPresent Value = NotPresentTag | 0xffffffff<<32
	Zero       Value = 0
)

// Small integer limits.
const (
	SmiBits = 64 - TagBits
	MaxSmi  = 1<<(SmiBits-1) - 1
	MinSmi  = -1 << (SmiBits - 1)
	MaxSmi8 = 127
	MinSmi8 = -128
)

// Kind classifies a cell.
type Kind uint8

const (
	KindSmi Kind = iota
	KindRefcounted
	KindInterned
	KindImmortal
	KindNone
	KindBool
	KindNotPresent
	KindException
	KindInvalid
)

var kindNames = [...]string{
	KindSmi:        "smi",
	KindRefcounted: "refcounted",
	KindInterned:   "interned",
	KindImmortal:   "immortal",
	KindNone:       "none",
	KindBool:       "bool",
	KindNotPresent: "not-present",
	KindException:  "exception",
	KindInvalid:    "invalid",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Tag returns the low tag bits.
func (v Value) Tag() uint64 {
	return uint64(v) & TagMask
}

// Kind classifies the cell by its exact tag code.
func (v Value) Kind() Kind {
	switch v.Tag() {
	case 0:
		return KindSmi
	case RefcountedTag:
		return KindRefcounted
	case InternedTag:
		return KindInterned
	case ImmortalTag:
		return KindImmortal
	case NoneTag:
		return KindNone
	case BooleanTag:
		return KindBool
	case NotPresentTag:
		return KindNotPresent
	case ExceptionTag:
		return KindException
	default:
		return KindInvalid
	}
}

func (v Value) IsSmi() bool { return v&TagMask == 0 }
func (v Value) IsPtr() bool { return v&pointerBits != 0 }
func (v Value) IsRefcounted() bool { return v&RefcountedTag != 0 }
func (v Value) IsInterned() bool { return v.Tag() == InternedTag }
func (v Value) IsImmortal() bool { return v.Tag() == ImmortalTag }
func (v Value) IsNone() bool { return v == None }
func (v Value) IsBool() bool { return v.Tag() == BooleanTag }
func (v Value) IsNotPresent() bool { return v.Tag() == NotPresentTag }
func (v Value) IsException() bool { return v == Exception }

// Smi encodes n without a range check. Use SmiChecked for untrusted input.
func Smi(n int64) Value {
	return Value(uint64(n) << TagBits)
}

// SmiChecked encodes n, reporting false when n does not fit in SmiBits.
func SmiChecked(n int64) (Value, bool) {
	if n < MinSmi || n > MaxSmi {
		return Zero, false
	}
	return Smi(n), true
}

// FitsSmi8 reports whether n can be carried by a signed 8-bit immediate.
func FitsSmi8(n int64) bool {
	return n >= MinSmi8 && n <= MaxSmi8
}

// Int decodes a smi with an arithmetic shift.
func (v Value) Int() int64 {
	return int64(v) >> TagBits
}

// Bool converts a Go bool.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// BoolToInt turns a boolean into the smi 0 or 1 by clearing the boolean tag.
func (v Value) BoolToInt() Value {
	return v &^ BooleanTag
}

// NotPresentAt returns a not-present sentinel carrying a cached parent slot
// index. An index of -1 means no cache.
func NotPresentAt(index int32) Value {
	return Value(uint64(uint32(index))<<32 | NotPresentTag)
}

// ParentIndex returns the cached parent slot index of a not-present value.
func (v Value) ParentIndex() int32 {
	return int32(uint32(uint64(v) >> 32))
}

// InlineTruthy returns the truthiness of any non-pointer cell: zero, False
// and None are false.
func (v Value) InlineTruthy() bool {
	return uint64(v)&truthyMask != 0
}

func (v Value) String() string {
	switch v.Kind() {
	case KindSmi:
		return strconv.FormatInt(v.Int(), 10)
	case KindBool:
		if v == True {
			return "True"
		}
		return "False"
	case KindNone:
		return "None"
	case KindNotPresent:
		return fmt.Sprintf("<not-present %d>", v.ParentIndex())
	case KindException:
		return "<exception>"
	case KindInvalid:
		return fmt.Sprintf("<invalid %#x>", uint64(v))
	default:
		return fmt.Sprintf("<%s %#x>", v.Kind(), uint64(v))
	}
}
