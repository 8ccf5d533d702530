package main

import (
	"fmt"

	"github.com/PaulFidika/vipkit/jobs"
	migrations "github.com/PaulFidika/vipkit/migrations/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and the river job tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			applied, err := migrations.Up(ctx, a.pool, a.log)
			if err != nil {
				return err
			}
			if err := jobs.MigrateRiver(ctx, a.pool, a.log); err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}
