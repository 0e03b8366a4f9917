package main

import (
	"fmt"

	"github.com/goliatone/go-authkit"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			if err := rt.cfg.Persistence.Validate(); err != nil {
				return err
			}

			db, err := authkit.OpenDB(rt.cfg.Persistence)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := authkit.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			rt.logger.Info("migrations applied", "driver", rt.cfg.Persistence.Driver)
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
