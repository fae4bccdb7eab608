package main

import (
	"fmt"

	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/dis"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDisCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a source file or compiled image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disHandler(cmd, args, v)
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().String("func", "", "disassemble only the named function")
	cmd.Flags().StringP("output", "o", "", "output format: text or json")
	return cmd
}

func disHandler(cmd *cobra.Command, args []string, v *viper.Viper) error {
	src, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	m, _, err := newMachine(v)
	if err != nil {
		return err
	}
	defer m.Close()
	th := m.NewThread()
	defer th.Release()

	code, err := loadCode(cmd.Context(), th, src, parseRule(cmd))
	if err != nil {
		return err
	}
	defer th.Decref(code.Value())

	target := code
	if name, _ := cmd.Flags().GetString("func"); name != "" {
		if target = findFunction(code, name); target == nil {
			return fmt.Errorf("function %q not found", name)
		}
	}
	instrs, err := dis.Disassemble(target)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format, _ := cmd.Flags().GetString("output"); format {
	case "json":
		data, err := marshalJSON(instrs)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	case "", "text":
		return dis.PrintInstructions(out, instrs)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// findFunction searches nested function code depth first.
func findFunction(code *bytecode.Code, name string) *bytecode.Code {
	for _, fn := range code.Functions() {
		if fn.Name == name {
			return fn
		}
		if found := findFunction(fn, name); found != nil {
			return found
		}
	}
	return nil
}
