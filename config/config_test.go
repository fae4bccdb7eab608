package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clover.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
[vm]
stack_size = 4096
drain_threshold = 10

[log]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.VM.StackSize)
	require.Equal(t, 10, cfg.VM.DrainThreshold)
	require.Equal(t, DefaultCheckInterval, cfg.VM.CheckInterval)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, Default().Heap, cfg.Heap)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "unknown key",
			content: "[vm]\nstack = 10\n",
			errMsg:  "unknown keys: vm.stack",
		},
		{
			name:    "small stack",
			content: "[vm]\nstack_size = 10\n",
			errMsg:  "vm.stack_size must be at least 256",
		},
		{
			name:    "large object threshold",
			content: "[heap]\nlarge_object_size = 65536\n",
			errMsg:  "heap.large_object_size must be between 1 and half the slab size",
		},
		{
			name:    "syntax",
			content: "[vm\n",
			errMsg:  "failed to parse TOML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadIfExists(t *testing.T) {
	cfg, err := LoadIfExists(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestValidateSlabSize(t *testing.T) {
	cfg := Default()
	cfg.Heap.SlabSize = os.Getpagesize() + 32
	require.Error(t, cfg.Validate())
}
