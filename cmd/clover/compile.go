package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/clovervm/clover/bytecode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCompileCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a source file to a bytecode image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileHandler(cmd, args, v)
		},
	}
	cmd.Flags().Bool("eval", false, "parse the input as a single expression")
	cmd.Flags().StringP("out", "o", "", "image path (default: the source path with a "+imageExt+" extension)")
	return cmd
}

func imagePath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + imageExt
}

func compileHandler(cmd *cobra.Command, args []string, v *viper.Viper) error {
	path := args[0]
	if filepath.Ext(path) == imageExt {
		return errors.New("input is already a compiled image")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, log, err := newMachine(v)
	if err != nil {
		return err
	}
	defer m.Close()
	th := m.NewThread()
	defer th.Release()

	code, err := th.Compile(cmd.Context(), path, string(data), parseRule(cmd))
	if err != nil {
		return err
	}
	defer th.Decref(code.Value())
	image, err := bytecode.Marshal(code)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = imagePath(path)
	}
	if err := os.WriteFile(out, image, 0o644); err != nil {
		return err
	}
	log.Info().Str("source", path).Str("image", out).Int("bytes", len(image)).Msg("compiled")
	return nil
}
