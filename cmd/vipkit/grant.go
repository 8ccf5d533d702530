package main

import (
	"fmt"

	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/spf13/cobra"
)

// grantVIPCmd is the support path for a payment that was taken but never
// applied. It grants without a receipt, so it is not deduplicated.
func grantVIPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-vip <email>",
		Short: "Grant a 30-day VIP period to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.users.GetByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("no user with email %s", args[0])
			}
			rec, err := a.users.Grant(ctx, entitlements.Grant{
				UserID:    u.ID,
				ExpiresAt: entitlements.ExpiryFrom(a.vip.Now()),
			})
			if err != nil {
				return err
			}
			a.log.WithField("user_id", rec.ID).Info("vip granted by operator")
			fmt.Fprintf(cmd.OutOrStdout(), "%s is VIP until %s\n", rec.Email, rec.VIPExpiresAt.UTC().Format("Jan 2, 2006"))
			return nil
		},
	}
}
