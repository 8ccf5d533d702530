package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Revoke every expired VIP subscription once",
		Long: `Revoke every expired VIP subscription once and exit.

Examples:
  vipkit sweep
  vipkit sweep --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			if dryRun {
				n, err := a.vip.CountExpired(ctx)
				if err != nil {
					return fmt.Errorf("failed to check expired VIPs: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Found %d expired VIP subscription(s)\n", n)
				return nil
			}
			n, err := a.vip.RevokeExpired(ctx)
			if err != nil {
				return fmt.Errorf("failed to revoke expired VIPs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked VIP status for %d expired subscription(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count expired subscriptions without revoking them")
	return cmd
}
