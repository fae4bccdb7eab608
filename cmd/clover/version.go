package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch format, _ := cmd.Flags().GetString("output"); format {
			case "json":
				data, err := marshalJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "", "text":
				fmt.Fprintf(out, "clover %s\ncommit: %s\ndate: %s\n", version, commit, date)
			default:
				return fmt.Errorf("unknown output format: %s", format)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output format: text or json")
	return cmd
}
