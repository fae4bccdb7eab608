package value

import "math"

// The checked operations below take two smis and return (result, ok). ok is
// false when the result does not fit in a smi or the operation is undefined
// for the operands (zero divisor, negative shift or exponent). Operating on
// the encoded form directly is exact: a 64-bit overflow of two values
// shifted by TagBits is precisely a SmiBits overflow of the payloads.

func addInt64Checked(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func subInt64Checked(a, b int64) (int64, bool) {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		return 0, false
	}
	return a - b, true
}

func mulInt64Checked(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, false
	}
	res := a * b
	if res/b != a {
		return 0, false
	}
	return res, true
}

// AddSmi returns a + b.
func AddSmi(a, b Value) (Value, bool) {
	r, ok := addInt64Checked(int64(a), int64(b))
	return Value(r), ok
}

// SubSmi returns a - b.
func SubSmi(a, b Value) (Value, bool) {
	r, ok := subInt64Checked(int64(a), int64(b))
	return Value(r), ok
}

// MulSmi returns a * b. Only one side is decoded so the product stays
// encoded.
func MulSmi(a, b Value) (Value, bool) {
	r, ok := mulInt64Checked(int64(a), b.Int())
	return Value(r), ok
}

// FloorDivSmi returns a // b rounded toward negative infinity.
func FloorDivSmi(a, b Value) (Value, bool) {
	x, y := a.Int(), b.Int()
	if y == 0 {
		return a, false
	}
	q := x / y
	if x%y != 0 && (x < 0) != (y < 0) {
		q--
	}
	return SmiChecked(q)
}

// ModSmi returns a % b with the sign of the divisor.
func ModSmi(a, b Value) (Value, bool) {
	x, y := a.Int(), b.Int()
	if y == 0 {
		return a, false
	}
	r := x % y
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return Smi(r), true
}

// PowSmi returns a ** b for a non-negative exponent.
func PowSmi(a, b Value) (Value, bool) {
	base, exp := a.Int(), b.Int()
	if exp < 0 {
		return a, false
	}
	result := int64(1)
	for exp > 0 {
		var ok bool
		if exp&1 == 1 {
			if result, ok = mulInt64Checked(result, base); !ok {
				return a, false
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt64Checked(base, base); !ok {
				return a, false
			}
		}
	}
	return SmiChecked(result)
}

// LeftShiftSmi returns a << b for a non-negative shift count.
func LeftShiftSmi(a, b Value) (Value, bool) {
	x, s := a.Int(), b.Int()
	if s < 0 {
		return a, false
	}
	if x == 0 {
		return Zero, true
	}
	if s >= SmiBits {
		return a, false
	}
	r := x << uint(s)
	if r>>uint(s) != x {
		return a, false
	}
	return SmiChecked(r)
}

// RightShiftSmi returns the arithmetic shift a >> b for a non-negative
// shift count.
func RightShiftSmi(a, b Value) (Value, bool) {
	x, s := a.Int(), b.Int()
	if s < 0 {
		return a, false
	}
	if s >= 63 {
		s = 63
	}
	return Smi(x >> uint(s)), true
}

func AndSmi(a, b Value) (Value, bool) { return a & b, true }
func OrSmi(a, b Value) (Value, bool) { return a | b, true }
func XorSmi(a, b Value) (Value, bool) { return a ^ b, true }

// NegateSmi returns -a.
func NegateSmi(a Value) (Value, bool) {
	if int64(a) == math.MinInt64 {
		return a, false
	}
	return Value(-int64(a)), true
}

// InvertSmi returns ~a, which never overflows.
func InvertSmi(a Value) Value {
	return ^a &^ TagMask
}

// CompareSmi orders two smis. The encoding preserves order.
func CompareSmi(a, b Value) int {
	x, y := int64(a), int64(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
