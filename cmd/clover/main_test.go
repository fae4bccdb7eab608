package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clovervm/clover/errz"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the CLI with a private config file and colors disabled.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := writeFile(t, t.TempDir(), "clover.toml", "[log]\nlevel = \"error\"\n")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", cfg, "--no-color"))
	err := root.Execute()
	return out.String(), err
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	sum := writeFile(t, dir, "sum.clv", "s = 0\ni = 0\nwhile i < 100:\n    s += i\n    i += 1\ns\n")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "code flag", args: []string{"run", "-c", "1 + 2"}, want: "3\n"},
		{name: "eval rule", args: []string{"run", "--eval", "-c", "2 ** 10"}, want: "1024\n"},
		{name: "file", args: []string{"run", sum}, want: "4950\n"},
		{name: "boolean", args: []string{"run", "-c", "3 > 2"}, want: "True\n"},
		{name: "json string", args: []string{"run", "-o", "json", "-c", "'hi'"}, want: "\"hi\"\n"},
		{name: "json none", args: []string{"run", "-o", "json", "-c", "None"}, want: "null\n"},
		{name: "text none", args: []string{"run", "-c", "None"}, want: "None\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			require.Equal(t, tt.want, out)
		})
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.clv", "1")
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "no input", args: []string{"run"}, msg: "no input provided"},
		{name: "two inputs", args: []string{"run", "-c", "1", path}, msg: "multiple input sources specified"},
		{name: "bad format", args: []string{"run", "-o", "yaml", "-c", "1"}, msg: "unknown output format: yaml"},
		{name: "missing file", args: []string{"run", filepath.Join(dir, "missing.clv")}, msg: "no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRunRuntimeError(t *testing.T) {
	_, err := execute(t, "run", "-c", "x = 1\nx // 0\n")
	require.Error(t, err)
	kind, ok := errz.KindOf(err)
	require.True(t, ok)
	require.Equal(t, errz.ErrZeroDivision, kind)
	require.Contains(t, errorMessage(err), "x // 0")
}

func TestRunMany(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.clv", "1 + 2\n")
	b := writeFile(t, dir, "b.clv", "10 * 10\n")
	out, err := execute(t, "run", "-p", "1", a, b)
	require.NoError(t, err)
	require.Equal(t, "3\n100\n", out)

	bad := writeFile(t, dir, "bad.clv", "undefined_name\n")
	out, err = execute(t, "run", a, bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad.clv")
	require.Equal(t, "3\n\n", out)
}

func TestCompileAndRunImage(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "fib.clv", "def fib(n):\n    if n < 2:\n        return n\n    return fib(n - 1) + fib(n - 2)\nfib(15)\n")
	_, err := execute(t, "compile", src)
	require.NoError(t, err)
	image := filepath.Join(dir, "fib.clvc")
	require.FileExists(t, image)

	out, err := execute(t, "run", image)
	require.NoError(t, err)
	require.Equal(t, "610\n", out)

	_, err = execute(t, "compile", image)
	require.Error(t, err)
}

func TestCompileOutFlag(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "x.clv", "40 + 2\n")
	image := filepath.Join(dir, "custom.clvc")
	_, err := execute(t, "compile", src, "-o", image)
	require.NoError(t, err)
	out, err := execute(t, "run", image)
	require.NoError(t, err)
	require.Equal(t, "42\n", out)
}

func TestDis(t *testing.T) {
	out, err := execute(t, "dis", "-c", "x = 1000")
	require.NoError(t, err)
	expected := `
<module>:
+--------+-------------+----------+------+
| OFFSET |   OPCODE    | OPERANDS | INFO |
+--------+-------------+----------+------+
|      0 | LdaConstant |        0 | 1000 |
|      2 | StaGlobal   |        0 | x    |
|      7 | Halt        |          |      |
+--------+-------------+----------+------+
`
	require.Equal(t, strings.TrimSpace(expected)+"\n", out)
}

func TestDisFunc(t *testing.T) {
	src := "def f():\n    def g():\n        return 1\n    return g\n"
	out, err := execute(t, "dis", "--func", "f", "-c", src)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "f:\n"))
	require.Contains(t, out, "\ng:\n")
	require.NotContains(t, out, "<module>")

	_, err = execute(t, "dis", "--func", "h", "-c", src)
	require.EqualError(t, err, `function "h" not found`)
}

func TestDisJSON(t *testing.T) {
	out, err := execute(t, "dis", "-o", "json", "-c", "x = 1000")
	require.NoError(t, err)
	require.Contains(t, out, `"name": "LdaConstant"`)
	require.Contains(t, out, `"info": "1000"`)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "clover dev\ncommit: unknown\ndate: unknown\n", out)

	out, err = execute(t, "version", "-o", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"version": "dev"`)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "clover.toml", "[vm]\nstack_size = 4096\ndrain_threshold = 16\n")

	v := viper.New()
	v.Set("config", path)
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.VM.StackSize)
	require.Equal(t, 16, cfg.VM.DrainThreshold)

	v.Set("stack-size", 2048)
	cfg, err = loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, 2048, cfg.VM.StackSize)
	require.Equal(t, 16, cfg.VM.DrainThreshold)

	v.Set("stack-size", 16)
	_, err = loadConfig(v)
	require.Error(t, err)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("CLOVER_DRAIN_THRESHOLD", "7")
	cfg := writeFile(t, t.TempDir(), "clover.toml", "")
	v := viper.New()
	v.SetEnvPrefix("clover")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.Set("config", cfg)
	got, err := loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, 7, got.VM.DrainThreshold)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{name: "unknown key", content: "[vm]\nbogus = 1\n", msg: "unknown keys: vm.bogus"},
		{name: "bad toml", content: "[vm\n", msg: "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("config", writeFile(t, dir, tt.name+".toml", tt.content))
			_, err := loadConfig(v)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "run", "-c", "1", "--log-level", "loud")
	require.EqualError(t, err, `invalid log level "loud"`)
}
