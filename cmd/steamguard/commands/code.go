package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"steamguard/internal/guardcode"
)

// code [account]: print the current 5-character login code.
func codeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "code [account]",
		Short: "Print the current login code",
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
			code, err := guardcode.LoginCode(acct.SharedSecret, wire.Clock.Now(cmd.Context()))
			if err != nil {
				return err
			}
			fmt.Println(code)
			return nil
		},
	}
}
