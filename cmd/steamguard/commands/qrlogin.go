package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// qr-login [account]: register a QR challenge and wait for approval in
// the Steam app.
func qrLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qr-login [account]",
		Short: "Log in by approving a QR challenge in the Steam app",
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

			ch, err := wire.Auth.BeginQR(cmd.Context(), acct.DeviceID)
			if err != nil {
				return err
			}
			fmt.Printf("Render this URL as a QR code and scan it with the Steam app:\n\n  %s\n\nWaiting for approval...\n", ch.ChallengeURL)

			if err := wire.Auth.PollQR(cmd.Context(), acct, ch); err != nil {
				return err
			}
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (steam id %d)\n", acct.AccountName, acct.SteamID)
			return nil
		},
	}
}
