package vm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strconv"
	"testing"

	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/errz"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/op"
	"github.com/clovervm/clover/parser"
	"github.com/clovervm/clover/scope"
	"github.com/clovervm/clover/value"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T, opts ...Option) *Machine {
	t.Helper()
	m, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, m.Close())
	})
	return m
}

// eval runs src on a fresh thread and stringifies the result.
func eval(t *testing.T, m *Machine, src string) (string, error) {
	t.Helper()
	th := m.NewThread()
	defer th.Release()
	v, err := th.Eval(context.Background(), "test.clv", src, parser.File)
	if err != nil {
		return "", err
	}
	defer th.Decref(v)
	return object.Str(v), nil
}

func TestEval(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "assign then add", input: "a = 4; a + 3", expect: "7"},
		{name: "augmented assign", input: "a = 4; a += 7", expect: "11"},
		{name: "precedence", input: "1 - 2 * (4 + 3)", expect: "-13"},
		{name: "not", input: "not True", expect: "False"},
		{name: "not zero", input: "not 0", expect: "True"},
		{name: "floor div", input: "-7 // 2", expect: "-4"},
		{name: "mod sign", input: "-7 % 3", expect: "2"},
		{name: "mod negative divisor", input: "7 % -3", expect: "-2"},
		{name: "pow", input: "2 ** 10", expect: "1024"},
		{name: "pow right assoc", input: "2 ** 3 ** 2", expect: "512"},
		{name: "shifts", input: "(1 << 10) + (-16 >> 2)", expect: "1020"},
		{name: "bitwise", input: "(6 & 3) * 100 + (6 | 3) * 10 + (6 ^ 3)", expect: "275"},
		{name: "invert", input: "~5", expect: "-6"},
		{name: "unary plus bool", input: "+True", expect: "1"},
		{name: "bool arithmetic", input: "True + True", expect: "2"},
		{name: "negate", input: "x = 3; -x", expect: "-3"},
		{name: "large constant", input: "1000000 * 3", expect: "3000000"},
		{name: "register form", input: "a = 300; b = 200; a - b", expect: "100"},
		{name: "chain true", input: "1 < 2 < 3", expect: "True"},
		{name: "chain false", input: "3 < 2 < 1", expect: "False"},
		{name: "chain mixed", input: "1 < 3 > 2", expect: "True"},
		{name: "bool equals int", input: "1 == True", expect: "True"},
		{name: "string equality", input: "'a' == 'a'", expect: "True"},
		{name: "string inequality", input: "'ab' != 'ab'", expect: "False"},
		{name: "none equality", input: "None == None", expect: "True"},
		{name: "none vs zero", input: "None == 0", expect: "False"},
		{name: "or", input: "0 or 5", expect: "5"},
		{name: "and", input: "3 and 0", expect: "0"},
		{name: "empty string is false", input: "'' or 'x'", expect: "x"},
		{name: "string value", input: "s = 'hello'\ns", expect: "hello"},
		{name: "chained assignment", input: "a = b = 3\na + b", expect: "6"},
		{name: "builtin", input: "MAXINT", expect: strconv.FormatInt(value.MaxSmi, 10)},
		{name: "shadowed builtin", input: "MAXINT = 5\nMAXINT", expect: "5"},
		{name: "empty program", input: "", expect: "None"},
	}
	m := newMachine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eval(t, m, tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expect, result)
		})
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "countdown",
			input:  "a = 100\nwhile a:\n    a -= 1\na",
			expect: "0",
		},
		{
			name:   "sum",
			input:  "b = 0\na = 100\nwhile a:\n    a -= 1\n    b += a\nb",
			expect: "4950",
		},
		{
			name:   "elif",
			input:  "x = 5\nif x < 3:\n    y = 1\nelif x < 10:\n    y = 2\nelse:\n    y = 3\ny",
			expect: "2",
		},
		{
			name:   "else",
			input:  "x = 50\nif x < 3:\n    y = 1\nelif x < 10:\n    y = 2\nelse:\n    y = 3\ny",
			expect: "3",
		},
		{
			name:   "break skips else",
			input:  "i = 0\nwhile i < 10:\n    i += 1\n    if i == 5:\n        break\nelse:\n    i = 100\ni",
			expect: "5",
		},
		{
			name:   "while else",
			input:  "i = 0\nwhile i < 3:\n    i += 1\nelse:\n    i = 100\ni",
			expect: "100",
		},
		{
			name:   "continue",
			input:  "i = 0\ns = 0\nwhile i < 10:\n    i += 1\n    if i % 2:\n        continue\n    s += i\ns",
			expect: "30",
		},
	}
	m := newMachine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eval(t, m, tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expect, result)
		})
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "add",
			input:  "def add(a, b):\n    return a + b\nadd(2, 3)",
			expect: "5",
		},
		{
			name:   "argument order",
			input:  "def g(a, b, c):\n    return a * 100 + b * 10 + c\ng(1, 2, 3)",
			expect: "123",
		},
		{
			name:   "locals",
			input:  "def f(x):\n    y = x * 2\n    z = y + 1\n    return z\nf(20)",
			expect: "41",
		},
		{
			name:   "implicit none",
			input:  "def f():\n    pass\nf()",
			expect: "None",
		},
		{
			name:   "recursion",
			input:  "def fib(n):\n    if n < 2:\n        return n\n    return fib(n - 1) + fib(n - 2)\nfib(15)",
			expect: "610",
		},
		{
			name:   "reads globals",
			input:  "base = 10\ndef f(x):\n    return base + x\nf(5)",
			expect: "15",
		},
		{
			name:   "nested calls as arguments",
			input:  "def inc(x):\n    return x + 1\ninc(inc(inc(0)))",
			expect: "3",
		},
		{
			name:   "loop inside function",
			input:  "def total(n):\n    s = 0\n    while n:\n        s += n\n        n -= 1\n    return s\ntotal(100)",
			expect: "5050",
		},
		{
			name:   "function value",
			input:  "def f():\n    return 1\nf",
			expect: "<function f>",
		},
	}
	m := newMachine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eval(t, m, tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expect, result)
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  errz.ErrorKind
		msg   string
	}{
		{name: "undefined", input: "x + 1", kind: errz.ErrName, msg: `name "x" is not defined`},
		{name: "add overflow", input: "MAXINT + 1", kind: errz.ErrOverflow, msg: "integer overflow"},
		{name: "mul overflow", input: "x = MAXINT\nx * 2", kind: errz.ErrOverflow, msg: "integer overflow"},
		{name: "sub overflow", input: "MININT - 1", kind: errz.ErrOverflow, msg: "integer overflow"},
		{name: "negate overflow", input: "-MININT", kind: errz.ErrOverflow, msg: "integer overflow"},
		{name: "shift overflow", input: "1 << 70", kind: errz.ErrOverflow, msg: "integer overflow"},
		{name: "floor div by zero", input: "1 // 0", kind: errz.ErrZeroDivision, msg: "integer division or modulo by zero"},
		{name: "mod by zero", input: "x = 0\n1 % x", kind: errz.ErrZeroDivision, msg: "integer division or modulo by zero"},
		{name: "negative shift", input: "1 << -1", kind: errz.ErrValue, msg: "negative shift count"},
		{name: "negative exponent", input: "2 ** -1", kind: errz.ErrValue, msg: "negative exponent"},
		{name: "true division", input: "1 / 2", kind: errz.ErrType, msg: "true division"},
		{name: "string plus int", input: "'a' + 1", kind: errz.ErrType, msg: "unsupported operand type(s) for +: 'str' and 'int'"},
		{name: "string ordering", input: "'a' < 'b'", kind: errz.ErrType, msg: "'<' not supported"},
		{name: "negate string", input: "-'a'", kind: errz.ErrType, msg: "bad operand type for unary -: 'str'"},
		{name: "none arithmetic", input: "None + 1", kind: errz.ErrType, msg: "'NoneType' and 'int'"},
		{name: "not callable", input: "x = 5\nx(1)", kind: errz.ErrType, msg: "'int' object is not callable"},
		{
			name:  "arity",
			input: "def f(a):\n    return a\nf(1, 2)",
			kind:  errz.ErrType,
			msg:   "f() takes 1 positional argument but 2 were given",
		},
		{
			name:  "unbound local",
			input: "def f():\n    y = y + 1\n    return y\nf()",
			kind:  errz.ErrName,
			msg:   `local variable "y" referenced before assignment`,
		},
	}
	m := newMachine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eval(t, m, tt.input)
			require.Error(t, err)
			var rerr *errz.RuntimeError
			require.True(t, errors.As(err, &rerr))
			require.Equal(t, tt.kind, rerr.Kind)
			require.Contains(t, rerr.Message, tt.msg)
		})
	}
}

func TestRecursionLimit(t *testing.T) {
	m := newMachine(t, WithStackSize(1024))
	_, err := eval(t, m, "def f(n):\n    return f(n + 1)\nf(0)")
	require.Error(t, err)
	kind, ok := errz.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errz.ErrRecursion, kind)

	// The machine is unaffected by the unwound frames.
	result, err := eval(t, m, "def f(n):\n    if n:\n        return f(n - 1)\n    return 7\nf(10)")
	require.NoError(t, err)
	require.Equal(t, "7", result)
}

func TestNotCallableKeepsFramePointer(t *testing.T) {
	m := newMachine(t)
	th := m.NewThread()
	defer th.Release()

	_, err := th.Eval(context.Background(), "test.clv", "x = 5\nx(1)", parser.File)
	require.Error(t, err)
	require.Equal(t, len(th.stack), th.faultFP)

	_, err = th.Eval(context.Background(), "test.clv", "def f():\n    return 1 // 0\nf()", parser.File)
	require.Error(t, err)
	require.Less(t, th.faultFP, len(th.stack))
}

func TestStackTrace(t *testing.T) {
	m := newMachine(t)
	src := "def inner():\n    return 1 // 0\ndef outer():\n    return inner()\nouter()"
	_, err := eval(t, m, src)
	var rerr *errz.RuntimeError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "inner", rerr.Function)
	require.Equal(t, 2, rerr.Location.Line)

	var names []string
	var lines []int
	for _, f := range rerr.Stack {
		names = append(names, f.Function)
		lines = append(lines, f.Location.Line)
	}
	require.Equal(t, []string{"inner", "outer", "<module>"}, names)
	require.Equal(t, []int{2, 4, 5}, lines)
	require.Contains(t, rerr.FriendlyErrorMessage(), "stack trace")
}

func TestErrorLocation(t *testing.T) {
	m := newMachine(t)
	_, err := eval(t, m, "x = 1\ny = x + z")
	var rerr *errz.RuntimeError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "test.clv", rerr.Location.Filename)
	require.Equal(t, 2, rerr.Location.Line)
}

func TestAccumulatorPreservedOnOverflow(t *testing.T) {
	m := newMachine(t)
	th := m.NewThread()
	defer th.Release()

	code := bytecode.New(th.heap, bytecode.Params{
		Name:         "<module>",
		Instructions: []byte{byte(op.AddSmi), 1, byte(op.StarShort), byte(op.Add), 0xfb, byte(op.Halt)},
		Offsets:      make([]uint32, 6),
		NTemporaries: 1,
		Scope:        scope.New(th.heap, nil),
	})
	defer th.Decref(code.Value())

	maxSmi := value.Smi(value.MaxSmi)
	s := state{fp: len(th.stack), code: code, acc: maxSmi}
	next, err := handlers[op.AddSmi](th, s)
	require.Error(t, err)
	require.Equal(t, s, next)

	th.stack[s.fp+bytecode.RegisterOperand(0)] = maxSmi
	s = state{fp: len(th.stack), pc: 3, code: code, acc: value.Smi(1)}
	next, err = handlers[op.Add](th, s)
	require.Error(t, err)
	require.Equal(t, s, next)
	th.stack[s.fp+bytecode.RegisterOperand(0)] = value.None

	s = state{fp: len(th.stack), code: code, acc: value.Smi(41)}
	next, err = handlers[op.AddSmi](th, s)
	require.NoError(t, err)
	require.Equal(t, value.Smi(42), next.acc)
	require.Equal(t, 2, next.pc)
}

func TestReferenceCounts(t *testing.T) {
	m := newMachine(t)
	th := m.NewThread()
	defer th.Release()
	ctx := context.Background()

	code, err := th.Compile(ctx, "test.clv", "def f(x):\n    return x\ny = f(1)\nz = f(2)", parser.File)
	require.NoError(t, err)
	result, err := th.Run(ctx, code)
	require.NoError(t, err)
	require.Equal(t, value.Smi(2), result)

	fn, ok := th.Global(code, "f")
	require.True(t, ok)
	require.True(t, object.IsFunction(fn))
	require.Equal(t, int32(1), object.Refcount(fn))

	y, ok := th.Global(code, "y")
	require.True(t, ok)
	require.Equal(t, value.Smi(1), y)

	// Running the code again rebinds f to a new function object and
	// reclaims the old one.
	result, err = th.Run(ctx, code)
	require.NoError(t, err)
	require.Equal(t, value.Smi(2), result)
	require.True(t, object.IsDead(fn))
	fn, ok = th.Global(code, "f")
	require.True(t, ok)
	require.Equal(t, int32(1), object.Refcount(fn))

	th.Decref(code.Value())
	require.True(t, object.IsDead(fn))
	require.True(t, object.IsDead(code.Value()))
}

func TestBuiltins(t *testing.T) {
	m := newMachine(t)
	th := m.NewThread()
	defer th.Release()
	ctx := context.Background()

	code, err := th.Compile(ctx, "test.clv", "answer", parser.Eval)
	require.NoError(t, err)
	defer th.Decref(code.Value())

	_, err = th.Run(ctx, code)
	kind, _ := errz.KindOf(err)
	require.Equal(t, errz.ErrName, kind)

	require.NoError(t, m.SetBuiltin("answer", value.Smi(7)))
	result, err := th.Run(ctx, code)
	require.NoError(t, err)
	require.Equal(t, value.Smi(7), result)

	require.NoError(t, m.SetBuiltin("answer", value.Smi(8)))
	result, err = th.Run(ctx, code)
	require.NoError(t, err)
	require.Equal(t, value.Smi(8), result)

	v, ok := m.Builtin("answer")
	require.True(t, ok)
	require.Equal(t, value.Smi(8), v)

	require.Error(t, m.SetBuiltin("bad", value.Value(value.RefcountedTag)))
	require.Error(t, m.SetBuiltin("bad", value.NotPresent))
}

func TestRunRejectsFunctionCode(t *testing.T) {
	m := newMachine(t)
	th := m.NewThread()
	defer th.Release()
	ctx := context.Background()

	code, err := th.Compile(ctx, "test.clv", "def f():\n    return 1", parser.File)
	require.NoError(t, err)
	defer th.Decref(code.Value())

	fns := code.Functions()
	require.Len(t, fns, 1)
	_, err = th.Run(ctx, fns[0])
	require.Error(t, err)
}

func TestCancellation(t *testing.T) {
	m := newMachine(t, WithCheckInterval(1))
	th := m.NewThread()
	defer th.Release()

	code, err := th.Compile(context.Background(), "test.clv", "while True:\n    pass", parser.File)
	require.NoError(t, err)
	defer th.Decref(code.Value())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = th.Run(ctx, code)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
	kind, _ := errz.KindOf(err)
	require.Equal(t, errz.ErrRuntime, kind)
}

func TestLoadImage(t *testing.T) {
	m := newMachine(t)
	th := m.NewThread()
	defer th.Release()
	ctx := context.Background()

	src := "def fib(n):\n    if n < 2:\n        return n\n    return fib(n - 1) + fib(n - 2)\ngreeting = 'hi'\nfib(20) + 1000000"
	code, err := th.Compile(ctx, "fib.clv", src, parser.File)
	require.NoError(t, err)
	data, err := bytecode.Marshal(code)
	require.NoError(t, err)
	th.Decref(code.Value())

	img, err := bytecode.Unmarshal(data)
	require.NoError(t, err)

	other := m.NewThread()
	defer other.Release()
	loaded, err := other.Load(img)
	require.NoError(t, err)
	defer other.Decref(loaded.Value())

	result, err := other.Run(ctx, loaded)
	require.NoError(t, err)
	require.Equal(t, value.Smi(1006765), result)

	greeting, ok := other.Global(loaded, "greeting")
	require.True(t, ok)
	require.Equal(t, m.Intern("hi"), greeting)
}

func TestLoadRejectsBadImages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(img *bytecode.Image)
		errMsg string
	}{
		{
			name: "global out of range",
			mutate: func(img *bytecode.Image) {
				img.Slots = nil
			},
			errMsg: "global 0 out of range",
		},
		{
			name: "missing halt",
			mutate: func(img *bytecode.Image) {
				n := len(img.Instructions) - 1
				img.Instructions = img.Instructions[:n]
				img.Offsets = img.Offsets[:n]
			},
			errMsg: "does not end with Halt",
		},
		{
			name: "register out of range",
			mutate: func(img *bytecode.Image) {
				img.NTemporaries = 0
			},
			errMsg: "out of range",
		},
	}
	m := newMachine(t)
	th := m.NewThread()
	defer th.Release()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := th.Compile(context.Background(), "test.clv", "a = 1\nb = 2\na - b", parser.File)
			require.NoError(t, err)
			img, err := code.Image()
			th.Decref(code.Value())
			require.NoError(t, err)

			tt.mutate(img)
			_, err = th.Load(img)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRunParallel(t *testing.T) {
	m := newMachine(t)
	programs := []Program{
		{Name: "sum", Source: "b = 0\na = 100\nwhile a:\n    a -= 1\n    b += a\nb"},
		{Name: "fib", Source: "def fib(n):\n    if n < 2:\n        return n\n    return fib(n - 1) + fib(n - 2)\nfib(18)"},
		{Name: "str", Source: "'done'"},
		{Name: "count", Source: "a = 1000\nwhile a:\n    a -= 1\na"},
	}
	results, err := m.RunParallel(context.Background(), 2, programs...)
	require.NoError(t, err)
	require.Equal(t, []string{"4950", "2584", "done", "0"}, results)
}

func TestRunParallelErrors(t *testing.T) {
	m := newMachine(t)
	results, err := m.RunParallel(context.Background(), 0,
		Program{Name: "ok", Source: "1 + 1"},
		Program{Name: "boom", Source: "1 // 0"},
		Program{Name: "syntax", Source: "1 +"},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.Contains(t, err.Error(), "syntax")
	require.Equal(t, []string{"2", "", ""}, results)
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(WithStackSize(10))
	require.Error(t, err)
}

// smiModel computes x op y over unbounded integers and reports the error
// kind the interpreter must raise, or ErrUnknown on success.
func smiModel(x, y int64, sym string) (int64, errz.ErrorKind) {
	bx, by := big.NewInt(x), big.NewInt(y)
	r := new(big.Int)
	switch sym {
	case "+":
		r.Add(bx, by)
	case "-":
		r.Sub(bx, by)
	case "*":
		r.Mul(bx, by)
	case "//", "%":
		if y == 0 {
			return 0, errz.ErrZeroDivision
		}
		q, m := x/y, x%y
		if m != 0 && (m < 0) != (y < 0) {
			q--
			m += y
		}
		if sym == "//" {
			r.SetInt64(q)
		} else {
			r.SetInt64(m)
		}
	case "<<":
		if y < 0 {
			return 0, errz.ErrValue
		}
		if x != 0 && y >= 128 {
			return 0, errz.ErrOverflow
		}
		r.Lsh(bx, uint(y))
	case ">>":
		if y < 0 {
			return 0, errz.ErrValue
		}
		r.SetInt64(x >> uint(min(y, 63)))
	case "&":
		r.SetInt64(x & y)
	case "|":
		r.SetInt64(x | y)
	case "^":
		r.SetInt64(x ^ y)
	}
	if !r.IsInt64() || r.Int64() < value.MinSmi || r.Int64() > value.MaxSmi {
		return 0, errz.ErrOverflow
	}
	return r.Int64(), errz.ErrUnknown
}

func randomSmi(rng *rand.Rand) int64 {
	switch rng.Intn(4) {
	case 0:
		return rng.Int63n(601) - 300
	case 1:
		return rng.Int63n(1<<31) - 1<<30
	case 2:
		return value.MaxSmi - rng.Int63n(1<<20)
	default:
		return value.MinSmi + 1 + rng.Int63n(1<<20)
	}
}

func TestArithmeticMatchesIntegerModel(t *testing.T) {
	m := newMachine(t)
	rng := rand.New(rand.NewSource(20261019))
	ops := []string{"+", "-", "*", "//", "%", "<<", ">>", "&", "|", "^"}

	type arithCase struct {
		name string
		x, y int64
		op   string
	}
	var tests []arithCase
	for i := 0; i < 400; i++ {
		sym := ops[rng.Intn(len(ops))]
		x, y := randomSmi(rng), randomSmi(rng)
		switch {
		case sym == "<<" || sym == ">>":
			y = rng.Int63n(75) - 4
		case (sym == "//" || sym == "%") && rng.Intn(8) == 0:
			y = 0
		}
		tests = append(tests, arithCase{name: fmt.Sprintf("%d %s %d", x, sym, y), x: x, y: y, op: sym})
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, wantKind := smiModel(tt.x, tt.y, tt.op)
			got, err := eval(t, m, fmt.Sprintf("a = %d\nb = %d\na %s b", tt.x, tt.y, tt.op))
			if wantKind != errz.ErrUnknown {
				require.Error(t, err)
				kind, ok := errz.KindOf(err)
				require.True(t, ok)
				require.Equal(t, wantKind, kind)
				return
			}
			require.NoError(t, err)
			require.Equal(t, strconv.FormatInt(want, 10), got)
		})
	}
}
