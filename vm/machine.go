// Package vm runs compiled clover code.
//
// A Machine owns the three global heaps, the intern store and the builtins
// scope. Each Thread has its own register stack, thread heap and zero-count
// worklist; threads of one machine may run concurrently as long as they do
// not share module code.
package vm

import (
	"context"
	"fmt"
	"sync"

	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/config"
	"github.com/clovervm/clover/heap"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/parser"
	"github.com/clovervm/clover/scope"
	"github.com/clovervm/clover/value"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Machine holds the state shared by a group of interpreter threads.
type Machine struct {
	cfg config.Config
	log zerolog.Logger

	refcounted *heap.GlobalHeap
	immortal   *heap.GlobalHeap
	interned   *heap.GlobalHeap
	interns    *object.InternStore

	// mu guards the builtins scope and the thread set. Compiling and
	// loading register names in the builtins scope and hold the write
	// lock; slow-path global reads hold the read lock.
	mu       sync.RWMutex
	builtins *scope.Scope
	zct      *object.ZeroCountTable
	threads  map[*Thread]struct{}
	closed   bool
}

// New creates a machine. The default builtins are MAXINT and MININT, the
// small-integer limits.
func New(options ...Option) (*Machine, error) {
	m := &Machine{
		cfg:     config.Default(),
		log:     zerolog.Nop(),
		zct:     object.NewZeroCountTable(),
		threads: map[*Thread]struct{}{},
	}
	for _, opt := range options {
		opt(m)
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	heapOpts := []heap.Option{
		heap.WithLogger(m.log),
		heap.WithSlabSize(m.cfg.Heap.SlabSize),
		heap.WithLargeObjectSize(m.cfg.Heap.LargeObjectSize),
	}
	m.refcounted = heap.NewRefcounted(heapOpts...)
	m.immortal = heap.NewImmortal(heapOpts...)
	m.interned = heap.NewInterned(heapOpts...)
	m.interns = object.NewInternStore(m.interned)
	m.builtins = scope.New(m.immortal, nil)
	m.bind("MAXINT", value.Smi(value.MaxSmi))
	m.bind("MININT", value.Smi(value.MinSmi))
	return m, nil
}

func (m *Machine) bind(name string, v value.Value) {
	m.builtins.SetByName(m.interns.Intern(name), v, m.zct)
}

// SetBuiltin binds name in the builtins scope, which is the parent of
// every module scope. Reference-counted values cannot be builtins because
// the builtins scope is shared by all threads.
func (m *Machine) SetBuiltin(name string, v value.Value) error {
	if v.IsRefcounted() {
		return fmt.Errorf("builtin %q: reference-counted values cannot be shared between threads", name)
	}
	if v.IsNotPresent() || v.IsException() {
		return fmt.Errorf("builtin %q: invalid value %s", name, v)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bind(name, v)
	return nil
}

// Builtin returns the value bound to name in the builtins scope.
func (m *Machine) Builtin(name string) (value.Value, bool) {
	key, ok := m.interns.Lookup(name)
	if !ok {
		return value.NotPresent, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v := m.builtins.GetByName(key)
	return v, !v.IsNotPresent()
}

// Intern returns the unique string object for s.
func (m *Machine) Intern(s string) value.Value {
	return m.interns.Intern(s)
}

// Config returns the machine's settings.
func (m *Machine) Config() config.Config { return m.cfg }

// NewThread creates an interpreter thread. A thread must be used by one
// goroutine at a time.
func (m *Machine) NewThread() *Thread {
	t := &Thread{
		m:              m,
		heap:           heap.NewThreadHeap(m.refcounted),
		zct:            object.NewZeroCountTable(),
		stack:          make([]value.Value, m.cfg.VM.StackSize),
		drainThreshold: m.cfg.VM.DrainThreshold,
		interval:       m.cfg.VM.CheckInterval,
		log:            m.log,
	}
	for i := range t.stack {
		t.stack[i] = value.None
	}
	m.mu.Lock()
	m.threads[t] = struct{}{}
	n := len(m.threads)
	m.mu.Unlock()
	m.log.Debug().Int("stack", len(t.stack)).Int("threads", n).Msg("thread created")
	return t
}

func (m *Machine) forget(t *Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, t)
}

// Program is one source file for RunParallel.
type Program struct {
	Name   string
	Source string
}

// RunParallel compiles each program on its own thread, then runs them
// concurrently with at most limit running at once (no limit when limit is
// not positive). It returns the stringified result of each program in
// order. Every failure is reported; a failed program has an empty result.
func (m *Machine) RunParallel(ctx context.Context, limit int, programs ...Program) ([]string, error) {
	threads := make([]*Thread, len(programs))
	codes := make([]*bytecode.Code, len(programs))
	errs := make([]error, len(programs))
	defer func() {
		for i, t := range threads {
			if codes[i] != nil {
				t.Decref(codes[i].Value())
			}
			t.Release()
		}
	}()

	// Compilation mutates the builtins scope, so it completes before any
	// program starts running.
	for i, p := range programs {
		threads[i] = m.NewThread()
		code, err := threads[i].Compile(ctx, p.Name, p.Source, parser.File)
		if err != nil {
			errs[i] = fmt.Errorf("%s: %w", p.Name, err)
			continue
		}
		codes[i] = code
	}

	results := make([]string, len(programs))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range programs {
		if codes[i] == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = fmt.Errorf("%s: %w", programs[i].Name, err)
				return nil
			}
			v, err := threads[i].Run(gctx, codes[i])
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", programs[i].Name, err)
				return nil
			}
			results[i] = object.Str(v)
			threads[i].Decref(v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return results, result.ErrorOrNil()
}

// Close drains every thread's worklist and unmaps all heap memory. Values
// and code objects from this machine must not be used afterwards.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for t := range m.threads {
		t.drain()
	}
	m.threads = map[*Thread]struct{}{}
	m.zct.Drain()
	m.mu.Unlock()

	var result *multierror.Error
	for _, g := range []*heap.GlobalHeap{m.refcounted, m.immortal, m.interned} {
		if err := g.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s heap: %w", g.Name(), err))
		}
	}
	m.log.Debug().Msg("machine closed")
	return result.ErrorOrNil()
}
