package main

import (
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			if validate {
				if err := rt.cfg.Validate(); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), print.MaybeHighlightJSON(rt.cfg))
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Fail when the configuration is invalid")

	return cmd
}
