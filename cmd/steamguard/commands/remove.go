package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// remove <account>: drop an account from the manifest, optionally
// deactivating Steam Guard on the account first.
func removeCmd() *cobra.Command {
	var deactivate bool

	cmd := &cobra.Command{
		Use:   "remove <account>",
		Short: "Remove an account from the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			acct, err := st.Account(args[0])
			if err != nil {
				return err
			}

			if deactivate {
				if acct.RevocationCode == "" {
					return fmt.Errorf("account %s has no revocation code stored", acct.AccountName)
				}
				if err := wire.Sessions.EnsureSession(cmd.Context(), acct); err != nil {
					return fmt.Errorf("deactivation needs a live session, run steamguard login first: %w", err)
				}
				if err := wire.API.RemoveAuthenticator(cmd.Context(), acct.Session.AccessToken, acct.SteamID, acct.RevocationCode); err != nil {
					return err
				}
				fmt.Printf("Steam Guard deactivated for %s\n", acct.AccountName)
			}

			if err := st.RemoveAccount(acct.AccountName); err != nil {
				return err
			}
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Printf("Removed %s from the manifest\n", acct.AccountName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deactivate, "deactivate", false, "remove the authenticator from the Steam account as well")
	return cmd
}
