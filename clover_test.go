package clover

import (
	"context"
	"testing"

	"github.com/clovervm/clover/config"
	"github.com/clovervm/clover/errz"
	"github.com/clovervm/clover/value"
	"github.com/stretchr/testify/require"
)

func TestBasicUsage(t *testing.T) {
	result, err := Eval(context.Background(), "1 + 1")
	require.NoError(t, err)
	require.Equal(t, int64(2), result)
}

func TestEvalResults(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect any
	}{
		{name: "binary literals", input: "0b1010 + 0b0101", expect: int64(15)},
		{name: "xor", input: "0b1111 ^ 0b1010", expect: int64(5)},
		{name: "boolean", input: "1 < 2", expect: true},
		{name: "none", input: "None", expect: nil},
		{name: "string", input: "'hello'", expect: "hello"},
		{name: "function", input: "def f(): pass\nf", expect: "<function f>"},
		{name: "statements", input: "x = 6\ny = 7\nx * y", expect: int64(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Eval(context.Background(), tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expect, result)
		})
	}
}

func TestWithEnv(t *testing.T) {
	result, err := Eval(context.Background(), "if flag: n * 2\nelse: 0",
		WithEnv(map[string]any{"n": 21}),
		WithEnv(map[string]any{"flag": true}))
	require.NoError(t, err)
	require.Equal(t, int64(42), result)

	result, err = Eval(context.Background(), "greeting == 'hi'",
		WithEnv(map[string]any{"greeting": "hi"}))
	require.NoError(t, err)
	require.Equal(t, true, result)
}

func TestWithEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]any
		msg  string
	}{
		{name: "unsupported type", env: map[string]any{"x": 1.5}, msg: `global "x": unsupported type float64`},
		{name: "out of range", env: map[string]any{"x": int64(value.MaxSmi) + 1}, msg: "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Eval(context.Background(), "x", WithEnv(tt.env))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestWithExpression(t *testing.T) {
	result, err := Eval(context.Background(), "(1 +\n 2)", WithExpression())
	require.NoError(t, err)
	require.Equal(t, int64(3), result)

	_, err = Eval(context.Background(), "x = 1", WithExpression())
	kind, ok := errz.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errz.ErrSyntax, kind)
}

func TestErrorsCarryFilename(t *testing.T) {
	_, err := Eval(context.Background(), "1 // 0", WithFilename("math.clv"))
	var rerr *errz.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, errz.ErrZeroDivision, rerr.Kind)
	require.Equal(t, "math.clv", rerr.Location.Filename)
}

func TestWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.VM.StackSize = 10
	_, err := Eval(context.Background(), "1", WithConfig(cfg))
	require.Error(t, err)
	require.Contains(t, err.Error(), "stack_size")

	cfg = config.Default()
	cfg.VM.StackSize = 512
	_, err = Eval(context.Background(), "def f(n): return f(n + 1)\nf(0)", WithConfig(cfg))
	kind, _ := errz.KindOf(err)
	require.Equal(t, errz.ErrRecursion, kind)
}
