package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/clovervm/clover/dis"
	"github.com/clovervm/clover/vm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Run source files or compiled images",
		Long: `Run compiles and runs a program, then prints its result.

With several files, each program runs on its own interpreter thread and
the results are printed in order, one per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandler(cmd, args, v)
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("dis", false, "print the disassembly before running")
	cmd.Flags().Bool("timing", false, "print the execution time to stderr")
	cmd.Flags().StringP("output", "o", "", "output format: text or json")
	cmd.Flags().IntP("parallel", "p", 0, "maximum programs running at once (0 means no limit)")
	return cmd
}

func runHandler(cmd *cobra.Command, args []string, v *viper.Viper) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m, log, err := newMachine(v)
	if err != nil {
		return err
	}
	defer m.Close()

	format, _ := cmd.Flags().GetString("output")
	if len(args) > 1 {
		return runMany(ctx, cmd, m, args, format)
	}

	src, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	th := m.NewThread()
	defer th.Release()
	code, err := loadCode(ctx, th, src, parseRule(cmd))
	if err != nil {
		return err
	}
	defer th.Decref(code.Value())

	out := cmd.OutOrStdout()
	if showDis, _ := cmd.Flags().GetBool("dis"); showDis {
		if err := dis.Print(out, code); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	start := time.Now()
	result, err := th.Run(ctx, code)
	if err != nil {
		return err
	}
	defer th.Decref(result)
	elapsed := time.Since(start)
	log.Debug().Str("program", src.name).Dur("elapsed", elapsed).Msg("run complete")
	if timing, _ := cmd.Flags().GetBool("timing"); timing {
		fmt.Fprintf(cmd.ErrOrStderr(), "elapsed: %s\n", elapsed)
	}

	text, err := formatResult(result, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}

func runMany(ctx context.Context, cmd *cobra.Command, m *vm.Machine, paths []string, format string) error {
	if cmd.Flags().Changed("code") || cmd.Flags().Changed("stdin") {
		return errors.New("multiple input sources specified")
	}
	programs := make([]vm.Program, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		programs[i] = vm.Program{Name: path, Source: string(data)}
	}
	limit, _ := cmd.Flags().GetInt("parallel")
	results, runErr := m.RunParallel(ctx, limit, programs...)

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		data, err := marshalJSON(results)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "", "text":
		for _, r := range results {
			fmt.Fprintln(out, r)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return runErr
}
