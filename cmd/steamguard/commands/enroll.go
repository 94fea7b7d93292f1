package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"steamguard/internal/domain"
)

// enroll <account>: link a new mobile authenticator to a Steam account.
// The account must have a verified phone number; Steam texts an
// activation code there during the process.
func enrollCmd() *cobra.Command {
	var guardCode string

	cmd := &cobra.Command{
		Use:   "enroll <account>",
		Short: "Link a new mobile authenticator to a Steam account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}

			acct, err := st.Account(args[0])
			if errors.Is(err, domain.ErrAccountNotFound) {
				acct = &domain.Account{AccountName: args[0]}
				if err := st.AddAccount(acct); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			if !acct.SharedSecret.IsZero() {
				return fmt.Errorf("account %s already has authenticator material, remove it first", acct.AccountName)
			}

			if acct.State() == domain.LoggedOut {
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
			}

			if err := wire.Auth.BeginEnroll(cmd.Context(), acct); err != nil {
				return err
			}
			// Persist before finalizing: from here on the revocation code
			// is the only way to unlink the authenticator.
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Printf("Revocation code: %s\nWrite it down now. It is the only way to remove the authenticator if this device is lost.\n\n", acct.RevocationCode)

			smsCode, err := promptLine("SMS activation code")
			if err != nil {
				return err
			}
			if err := wire.Auth.FinalizeEnroll(cmd.Context(), acct, smsCode); err != nil {
				return err
			}
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Printf("Authenticator activated for %s\n", acct.AccountName)
			return nil
		},
	}
	cmd.Flags().StringVar(&guardCode, "guard-code", "", "second-factor code for the initial login")
	return cmd
}
