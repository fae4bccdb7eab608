package vm

import (
	"github.com/clovervm/clover/config"
	"github.com/rs/zerolog"
)

// Option is a configuration function for a Machine.
type Option func(*Machine)

// WithLogger sets the logger for the machine, its heaps and its threads.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) {
		m.log = l
	}
}

// WithConfig replaces the default heap and interpreter settings.
func WithConfig(cfg config.Config) Option {
	return func(m *Machine) {
		m.cfg = cfg
	}
}

// WithStackSize sets the number of cells in each thread's register stack.
func WithStackSize(n int) Option {
	return func(m *Machine) {
		m.cfg.VM.StackSize = n
	}
}

// WithDrainThreshold sets the worklist length above which a call drains
// the zero-count worklist. Zero drains at every call.
func WithDrainThreshold(n int) Option {
	return func(m *Machine) {
		m.cfg.VM.DrainThreshold = n
	}
}

// WithCheckInterval sets how many calls and backward jumps run between
// checks of the context passed to Run. A value of 0 disables checking.
func WithCheckInterval(n int) Option {
	return func(m *Machine) {
		m.cfg.VM.CheckInterval = n
	}
}
