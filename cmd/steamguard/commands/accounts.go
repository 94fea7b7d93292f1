package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// accounts: list enrolled accounts with their login state.
func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List enrolled accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			names := st.AccountNames()
			if len(names) == 0 {
				fmt.Println("No accounts enrolled.")
				return nil
			}
			for _, name := range names {
				acct, err := st.Account(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-24s  %s\n", name, acct.State())
			}
			return nil
		},
	}
}
