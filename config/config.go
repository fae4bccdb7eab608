// Package config loads interpreter settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/clovervm/clover/heap"
)

const (
	DefaultStackSize      = 1 << 16
	DefaultDrainThreshold = 1024
	DefaultCheckInterval  = 1000

	// MinStackSize is the smallest register stack a thread may have.
	MinStackSize = 256
)

// Config holds all settings. The zero value is not usable; start from
// Default.
type Config struct {
	Heap HeapConfig `toml:"heap"`
	VM   VMConfig   `toml:"vm"`
	Log  LogConfig  `toml:"log"`
}

// HeapConfig sizes the slabs of every arena.
type HeapConfig struct {
	// SlabSize is the size in bytes of a regular slab.
	SlabSize int `toml:"slab_size"`
	// LargeObjectSize is the request size at and above which an allocation
	// gets a slab of its own.
	LargeObjectSize int `toml:"large_object_size"`
}

// VMConfig configures interpreter threads.
type VMConfig struct {
	// StackSize is the number of cells in each thread's register stack.
	StackSize int `toml:"stack_size"`
	// DrainThreshold is the worklist length above which a call drains the
	// zero-count worklist.
	DrainThreshold int `toml:"drain_threshold"`
	// CheckInterval is the number of calls and backward jumps between
	// context checks. Zero disables checking.
	CheckInterval int `toml:"check_interval"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Heap: HeapConfig{
			SlabSize:        heap.DefaultSlabSize,
			LargeObjectSize: heap.DefaultLargeAllocationSize,
		},
		VM: VMConfig{
			StackSize:      DefaultStackSize,
			DrainThreshold: DefaultDrainThreshold,
			CheckInterval:  DefaultCheckInterval,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads path over the defaults. Keys the file sets that Config does
// not know are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadIfExists is Load, except that a missing file yields the defaults.
func LoadIfExists(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	page := os.Getpagesize()
	switch {
	case c.Heap.SlabSize <= 0:
		return fmt.Errorf("heap.slab_size must be positive")
	case c.Heap.SlabSize%page != 0:
		return fmt.Errorf("heap.slab_size %d is not a multiple of the page size %d", c.Heap.SlabSize, page)
	case c.Heap.SlabSize%heap.Granularity != 0:
		return fmt.Errorf("heap.slab_size %d is not a multiple of %d", c.Heap.SlabSize, heap.Granularity)
	case c.Heap.LargeObjectSize <= 0 || c.Heap.LargeObjectSize > c.Heap.SlabSize/2:
		return fmt.Errorf("heap.large_object_size must be between 1 and half the slab size")
	case c.VM.StackSize < MinStackSize:
		return fmt.Errorf("vm.stack_size must be at least %d", MinStackSize)
	case c.VM.DrainThreshold < 0:
		return fmt.Errorf("vm.drain_threshold must not be negative")
	case c.VM.CheckInterval < 0:
		return fmt.Errorf("vm.check_interval must not be negative")
	}
	return nil
}
