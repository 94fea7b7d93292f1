package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"steamguard/internal/domain"
)

// login <account>: authenticate with password plus guard code and store
// the resulting session in the manifest.
func loginCmd() *cobra.Command {
	var guardCode string

	cmd := &cobra.Command{
		Use:   "login [account]",
		Short: "Log in and store a session for an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			acct, err := resolveAccount(st, name)
			if err != nil {
				return err
			}

			password, err := promptSecret(fmt.Sprintf("Steam password for %s", acct.AccountName))
			if err != nil {
				return err
			}

			if guardCode != "" {
				err = wire.Auth.LoginWithCode(cmd.Context(), acct, password, guardCode)
			} else {
				err = wire.Sessions.Login(cmd.Context(), acct, password)
			}
			if errors.Is(err, domain.ErrEmailCodeRequired) {
				return fmt.Errorf("account wants an emailed code, re-run with --guard-code")
			}
			if err != nil {
				return err
			}

			if err := st.Save(); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (steam id %d)\n", acct.AccountName, acct.SteamID)
			return nil
		},
	}
	cmd.Flags().StringVar(&guardCode, "guard-code", "", "second-factor code to submit instead of generating one")
	return cmd
}
