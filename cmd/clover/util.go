package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/clovervm/clover"
	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/parser"
	"github.com/clovervm/clover/value"
	"github.com/clovervm/clover/vm"
	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// imageExt marks files written by the compile command.
const imageExt = ".clvc"

var red = color.New(color.FgRed).SprintFunc()

type friendlyError interface {
	FriendlyErrorMessage() string
}

func errorMessage(err error) string {
	var fe friendlyError
	if errors.As(err, &fe) {
		return fe.FriendlyErrorMessage()
	}
	return err.Error()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", red(errorMessage(err)))
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func setupColor(disabled bool) {
	if disabled || os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout) {
		color.NoColor = true
	}
}

// source is a program read from one of the input flags or a file.
type source struct {
	name string
	data []byte
}

func (s source) isImage() bool {
	return filepath.Ext(s.name) == imageExt
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "source code to use instead of a file")
	cmd.Flags().Bool("stdin", false, "read source code from stdin")
	cmd.Flags().Bool("eval", false, "parse the input as a single expression")
}

// readSource picks the single input among --code, --stdin and a path.
func readSource(cmd *cobra.Command, args []string) (source, error) {
	codeSet := cmd.Flags().Changed("code")
	stdinSet, _ := cmd.Flags().GetBool("stdin")
	count := len(args)
	if codeSet {
		count++
	}
	if stdinSet {
		count++
	}
	if count > 1 {
		return source{}, errors.New("multiple input sources specified")
	}
	if count == 0 {
		return source{}, errors.New("no input provided")
	}
	switch {
	case codeSet:
		code, _ := cmd.Flags().GetString("code")
		return source{name: "<code>", data: []byte(code)}, nil
	case stdinSet:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return source{}, err
		}
		return source{name: "<stdin>", data: data}, nil
	default:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return source{}, err
		}
		return source{name: args[0], data: data}, nil
	}
}

func parseRule(cmd *cobra.Command) parser.Rule {
	if eval, _ := cmd.Flags().GetBool("eval"); eval {
		return parser.Eval
	}
	return parser.File
}

// loadCode compiles source code or rebuilds a compiled image. The code
// object belongs to the caller.
func loadCode(ctx context.Context, th *vm.Thread, src source, rule parser.Rule) (*bytecode.Code, error) {
	if src.isImage() {
		img, err := bytecode.Unmarshal(src.data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.name, err)
		}
		return th.Load(img)
	}
	return th.Compile(ctx, src.name, string(src.data), rule)
}

func marshalJSON(x any) ([]byte, error) {
	if color.NoColor {
		return json.MarshalIndent(x, "", "  ")
	}
	return prettyjson.Marshal(x)
}

func formatResult(v value.Value, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return object.Str(v), nil
	case "json":
		data, err := marshalJSON(clover.Interface(v))
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}
