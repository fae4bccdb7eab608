// Package clover evaluates programs written in clover, a small
// Python-flavored language, on a register-based bytecode interpreter.
//
// Eval is the simplest entry point:
//
//	result, err := clover.Eval(ctx, "x = 6\nx * 7")
//
// Programs that run repeatedly or concurrently should use the vm package
// directly and keep one Machine alive.
package clover

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/clovervm/clover/config"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/parser"
	"github.com/clovervm/clover/value"
	"github.com/clovervm/clover/vm"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Option configures an evaluation.
type Option func(*options)

type options struct {
	env      map[string]any
	filename string
	rule     parser.Rule
	cfg      *config.Config
	log      *zerolog.Logger
}

func collectOptions(opts ...Option) *options {
	o := &options{env: map[string]any{}, filename: "<eval>", rule: parser.File}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if o.cfg != nil {
		opts = append(opts, vm.WithConfig(*o.cfg))
	}
	if o.log != nil {
		opts = append(opts, vm.WithLogger(*o.log))
	}
	return opts
}

// WithEnv binds builtin names visible to the program. Values may be nil,
// bool, int, int64 or string. This option is additive; for a repeated key
// the last value wins.
func WithEnv(env map[string]any) Option {
	return func(o *options) {
		maps.Copy(o.env, env)
	}
}

// WithFilename sets the filename used in error messages and stack traces.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithExpression parses the source as a single expression instead of a
// sequence of statements.
func WithExpression() Option {
	return func(o *options) {
		o.rule = parser.Eval
	}
}

// WithConfig sets heap and interpreter limits.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithLogger sets the logger of the underlying machine.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = &log
	}
}

// Eval compiles and runs source on a fresh machine and returns the result
// as a Go value (see Interface).
func Eval(ctx context.Context, source string, opts ...Option) (result any, err error) {
	o := collectOptions(opts...)
	m, err := vm.New(o.vmOpts()...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	for _, name := range slices.Sorted(maps.Keys(o.env)) {
		v, err := toValue(m, o.env[name])
		if err != nil {
			return nil, fmt.Errorf("global %q: %w", name, err)
		}
		if err := m.SetBuiltin(name, v); err != nil {
			return nil, err
		}
	}

	th := m.NewThread()
	defer th.Release()
	v, err := th.Eval(ctx, o.filename, source, o.rule)
	if err != nil {
		return nil, err
	}
	defer th.Decref(v)
	return Interface(v), nil
}

func toValue(m *vm.Machine, x any) (value.Value, error) {
	switch x := x.(type) {
	case nil:
		return value.None, nil
	case bool:
		return value.Bool(x), nil
	case int:
		return smi(int64(x))
	case int64:
		return smi(x)
	case string:
		return m.Intern(x), nil
	default:
		return value.None, fmt.Errorf("unsupported type %T", x)
	}
}

func smi(n int64) (value.Value, error) {
	v, ok := value.SmiChecked(n)
	if !ok {
		return value.None, fmt.Errorf("integer %d out of range", n)
	}
	return v, nil
}

// Interface converts v to int64, bool, string or nil. Values with no Go
// equivalent, such as functions, become their string representation.
func Interface(v value.Value) any {
	switch {
	case v.IsSmi():
		return v.Int()
	case v.IsBool():
		return v == value.True
	case v.IsNone():
		return nil
	case object.IsString(v):
		return object.StringOf(v)
	default:
		return object.Str(v)
	}
}
