package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"steamguard/internal/domain"
)

var confirmAccount string

// confirm: list and answer pending mobile confirmations.
func confirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "List and answer pending confirmations",
	}
	cmd.PersistentFlags().StringVar(&confirmAccount, "account", "", "account name (defaults to the sole enrolled account)")
	cmd.AddCommand(confirmListCmd(), confirmAnswerCmd("accept", domain.Accept), confirmAnswerCmd("deny", domain.Cancel))
	return cmd
}

func confirmListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending confirmations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			acct, err := resolveAccount(st, confirmAccount)
			if err != nil {
				return err
			}

			confs, err := wire.Confirmations.List(cmd.Context(), acct)
			// A list may refresh the session even when it then fails.
			if serr := st.Save(); serr != nil && err == nil {
				err = serr
			}
			if err != nil {
				return err
			}

			if len(confs) == 0 {
				fmt.Println("No pending confirmations.")
				return nil
			}
			for _, c := range confs {
				kind := c.Type.String()
				if c.Type == domain.ConfirmationUnknown && c.RawType != "" {
					kind = c.RawType
				}
				fmt.Printf("%d  %-14s  %s\n", c.ID, kind, c.Headline)
				for _, line := range c.Summary {
					fmt.Printf("    %s\n", line)
				}
			}
			return nil
		},
	}
}

// confirmAnswerCmd builds the accept and deny subcommands; they differ
// only in the decision they sign.
func confirmAnswerCmd(use string, decision domain.Decision) *cobra.Command {
	short, done := "Accept pending confirmations by ID", "Accepted"
	if decision == domain.Cancel {
		short, done = "Deny pending confirmations by ID", "Denied"
	}
	return &cobra.Command{
		Use:   use + " <id> [id...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make(map[uint64]bool, len(args))
			for _, arg := range args {
				id, err := strconv.ParseUint(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("confirmation id %q is not numeric", arg)
				}
				ids[id] = true
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			acct, err := resolveAccount(st, confirmAccount)
			if err != nil {
				return err
			}

			confs, err := wire.Confirmations.List(cmd.Context(), acct)
			if err != nil {
				return err
			}
			var answered int
			for _, c := range confs {
				if !ids[c.ID] {
					continue
				}
				if err := wire.Confirmations.Answer(cmd.Context(), acct, c, decision); err != nil {
					return err
				}
				fmt.Printf("%s %d (%s)\n", done, c.ID, c.Headline)
				answered++
			}
			if serr := st.Save(); serr != nil {
				return serr
			}
			if answered < len(ids) {
				return fmt.Errorf("%d of %d confirmations no longer pending, re-run confirm list", len(ids)-answered, len(ids))
			}
			return nil
		},
	}
}
