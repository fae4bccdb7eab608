package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "~/.clover.toml"

// newRootCmd builds the command tree. Settings come from the config file,
// then CLOVER_* environment variables, then flags.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("clover")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "clover",
		Short:         "Compile, inspect and run clover programs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupColor(v.GetBool("no-color"))
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default "+defaultConfigPath+")")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.Bool("no-color", false, "disable colored output")
	pf.Int("stack-size", 0, "register stack size in cells")
	pf.Int("drain-threshold", 0, "pending releases that force a drain at calls")
	if err := v.BindPFlags(pf); err != nil {
		panic(err)
	}

	root.AddCommand(
		newRunCmd(v),
		newDisCmd(v),
		newCompileCmd(v),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}
