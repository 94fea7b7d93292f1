package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"steamguard/internal/domain"
	"steamguard/internal/guardcode"
)

// import: add an account to the manifest from one of the supported
// sources.
func importCmd() *cobra.Command {
	var (
		uri      string
		maFile   string
		blobFile string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Add an account from an otpauth URI, maFile or export blob",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := 0
			for _, s := range []string{uri, maFile, blobFile} {
				if s != "" {
					sources++
				}
			}
			if sources != 1 {
				return fmt.Errorf("pass exactly one of --uri, --mafile, --blob")
			}

			st, err := openStore()
			if err != nil {
				return err
			}

			var acct *domain.Account
			switch {
			case uri != "":
				acct, err = guardcode.AccountFromURI(uri)
				if err != nil {
					return err
				}
				err = st.AddAccount(acct)
			case maFile != "":
				acct, err = accountFromMaFile(maFile)
				if err != nil {
					return err
				}
				err = st.AddAccount(acct)
			case blobFile != "":
				blob, rerr := os.ReadFile(blobFile)
				if rerr != nil {
					return fmt.Errorf("read %s: %w", blobFile, rerr)
				}
				exportPass, perr := promptSecret("Export passphrase")
				if perr != nil {
					return perr
				}
				// ImportAccount registers the account in the store itself.
				acct, err = st.ImportAccount(blob, exportPass)
			}
			if err != nil {
				return err
			}
			if acct.DeviceID == "" {
				acct.DeviceID = guardcode.NewDeviceID()
			}
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Printf("Imported %s\n", acct.AccountName)
			return nil
		},
	}
	cmd.Flags().StringVar(&uri, "uri", "", "otpauth:// enrollment URI")
	cmd.Flags().StringVar(&maFile, "mafile", "", "maFile JSON exported by other authenticators")
	cmd.Flags().StringVar(&blobFile, "blob", "", "encrypted blob written by steamguard export")
	return cmd
}

// accountFromMaFile reads the JSON account format shared with other
// authenticator tools. Unknown keys are ignored.
func accountFromMaFile(path string) (*domain.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var acct domain.Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if acct.AccountName == "" || acct.SharedSecret.IsZero() {
		return nil, fmt.Errorf("%s is missing account_name or shared_secret", path)
	}
	return &acct, nil
}

// export <account> <file>: write one account as an encrypted blob.
func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <account> <file>",
		Short: "Write an account as an encrypted blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			exportPass, err := promptSecret("Export passphrase")
			if err != nil {
				return err
			}
			blob, err := st.ExportAccount(args[0], exportPass)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], blob, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			fmt.Printf("Exported %s to %s\n", args[0], args[1])
			return nil
		},
	}
}
