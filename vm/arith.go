package vm

import (
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/value"
)

// arithOp describes one binary operator. smi is nil for true division,
// which has no integer result. domain reports the error for operands the
// operation is undefined for; any other smi failure is an overflow.
type arithOp struct {
	symbol string
	smi    func(a, b value.Value) (value.Value, bool)
	domain func(a, b value.Value) error
}

func zeroDivisor(_, b value.Value) error {
	if b == value.Zero {
		return zeroDivisionError("integer division or modulo by zero")
	}
	return nil
}

func negativeShift(_, b value.Value) error {
	if b.Int() < 0 {
		return valueError("negative shift count")
	}
	return nil
}

func negativeExponent(_, b value.Value) error {
	if b.Int() < 0 {
		return valueError("negative exponent %d not supported for integers", b.Int())
	}
	return nil
}

// arithmetic is indexed by opcode distance from Add (register forms) and
// from AddSmi (immediate forms).
var arithmetic = [...]arithOp{
	{symbol: "+", smi: value.AddSmi},
	{symbol: "-", smi: value.SubSmi},
	{symbol: "*", smi: value.MulSmi},
	{symbol: "/"},
	{symbol: "//", smi: value.FloorDivSmi, domain: zeroDivisor},
	{symbol: "**", smi: value.PowSmi, domain: negativeExponent},
	{symbol: "<<", smi: value.LeftShiftSmi, domain: negativeShift},
	{symbol: ">>", smi: value.RightShiftSmi, domain: negativeShift},
	{symbol: "%", smi: value.ModSmi, domain: zeroDivisor},
	{symbol: "|", smi: value.OrSmi},
	{symbol: "&", smi: value.AndSmi},
	{symbol: "^", smi: value.XorSmi},
}

// registerArith computes register op accumulator.
func registerArith(a arithOp) handler {
	return func(t *Thread, s state) (state, error) {
		left := t.stack[s.fp+int(int8(s.code.Instructions[s.pc+1]))]
		right := s.acc
		if (left|right)&value.TagMask == 0 && a.smi != nil {
			if r, ok := a.smi(left, right); ok {
				s.acc = r
				s.pc += 2
				return s, nil
			}
		}
		return t.arithSlow(s, a, left, right, 2)
	}
}

// immediateArith computes accumulator op imm8.
func immediateArith(a arithOp) handler {
	return func(t *Thread, s state) (state, error) {
		left := s.acc
		right := value.Smi(int64(int8(s.code.Instructions[s.pc+1])))
		if left&value.TagMask == 0 && a.smi != nil {
			if r, ok := a.smi(left, right); ok {
				s.acc = r
				s.pc += 2
				return s, nil
			}
		}
		return t.arithSlow(s, a, left, right, 2)
	}
}

// arithSlow performs the complete check: booleans count as 0 and 1, any
// other non-integer is a type error, and a failed integer operation is a
// domain or overflow error. The accumulator is untouched on error.
func (t *Thread) arithSlow(s state, a arithOp, left, right value.Value, size int) (state, error) {
	x, y := asInt(left), asInt(right)
	if !x.IsSmi() || !y.IsSmi() {
		return s, typeError("unsupported operand type(s) for %s: '%s' and '%s'", a.symbol, typeName(left), typeName(right))
	}
	if a.smi == nil {
		if y == value.Zero {
			return s, zeroDivisionError("division by zero")
		}
		return s, typeError("true division of integers is not supported; use //")
	}
	r, ok := a.smi(x, y)
	if !ok {
		if a.domain != nil {
			if err := a.domain(x, y); err != nil {
				return s, err
			}
		}
		return s, overflowError("integer overflow in %d %s %d", x.Int(), a.symbol, y.Int())
	}
	t.setAcc(&s, r)
	s.pc += size
	return s, nil
}

// asInt maps booleans to the integers 0 and 1.
func asInt(v value.Value) value.Value {
	if v.IsBool() {
		return v.BoolToInt()
	}
	return v
}

type compareOp struct {
	symbol   string
	equality bool
	test     func(c int) bool
}

var comparisons = [...]compareOp{
	{symbol: "==", equality: true, test: func(c int) bool { return c == 0 }},
	{symbol: "!=", equality: true, test: func(c int) bool { return c != 0 }},
	{symbol: "<", test: func(c int) bool { return c < 0 }},
	{symbol: "<=", test: func(c int) bool { return c <= 0 }},
	{symbol: ">", test: func(c int) bool { return c > 0 }},
	{symbol: ">=", test: func(c int) bool { return c >= 0 }},
}

// compareHandler computes register op accumulator and leaves a boolean.
func compareHandler(c compareOp) handler {
	return func(t *Thread, s state) (state, error) {
		left := t.stack[s.fp+int(int8(s.code.Instructions[s.pc+1]))]
		right := s.acc
		if (left|right)&value.TagMask == 0 {
			s.acc = value.Bool(c.test(value.CompareSmi(left, right)))
			s.pc += 2
			return s, nil
		}
		return t.compareSlow(s, c, left, right)
	}
}

func (t *Thread) compareSlow(s state, c compareOp, left, right value.Value) (state, error) {
	x, y := asInt(left), asInt(right)
	var result bool
	switch {
	case x.IsSmi() && y.IsSmi():
		result = c.test(value.CompareSmi(x, y))
	case c.equality:
		cmp := 1
		if equal(x, y) {
			cmp = 0
		}
		result = c.test(cmp)
	default:
		return s, typeError("'%s' not supported between instances of '%s' and '%s'", c.symbol, typeName(left), typeName(right))
	}
	t.setAcc(&s, value.Bool(result))
	s.pc += 2
	return s, nil
}

// equal compares by identity, then by contents for strings.
func equal(a, b value.Value) bool {
	if a == b {
		return true
	}
	return object.IsString(a) && object.IsString(b) && object.StringEq(a, b)
}

func opNot(t *Thread, s state) (state, error) {
	t.setAcc(&s, value.Bool(!truthy(s.acc)))
	s.pc++
	return s, nil
}

func opNegate(t *Thread, s state) (state, error) {
	x := asInt(s.acc)
	if !x.IsSmi() {
		return s, typeError("bad operand type for unary -: '%s'", typeName(s.acc))
	}
	r, ok := value.NegateSmi(x)
	if !ok {
		return s, overflowError("integer overflow in -%d", x.Int())
	}
	t.setAcc(&s, r)
	s.pc++
	return s, nil
}

func opPlus(t *Thread, s state) (state, error) {
	x := asInt(s.acc)
	if !x.IsSmi() {
		return s, typeError("bad operand type for unary +: '%s'", typeName(s.acc))
	}
	t.setAcc(&s, x)
	s.pc++
	return s, nil
}

func opBitwiseNot(t *Thread, s state) (state, error) {
	x := asInt(s.acc)
	if !x.IsSmi() {
		return s, typeError("bad operand type for unary ~: '%s'", typeName(s.acc))
	}
	t.setAcc(&s, value.InvertSmi(x))
	s.pc++
	return s, nil
}
