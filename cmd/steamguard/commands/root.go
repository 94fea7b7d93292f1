package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"steamguard/internal/app"
	"steamguard/internal/domain"
	"steamguard/internal/store"
)

var (
	configPath   string
	manifestPath string
	passphrase   string
	verbose      bool

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:          "steamguard",
		Short:        "Steam Guard authenticator CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if manifestPath != "" {
				cfg.ManifestPath = manifestPath
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			wire, err = app.NewWire(cfg, log)
			return err
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: per-user config dir)")
	root.PersistentFlags().StringVar(&manifestPath, "manifest", "", "encrypted manifest file")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "manifest passphrase (prompted when omitted)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		codeCmd(), loginCmd(), qrLoginCmd(), confirmCmd(), enrollCmd(),
		setupCmd(), importCmd(), exportCmd(), removeCmd(), accountsCmd(),
	)
	return root.Execute()
}

// promptSecret reads one line without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptLine reads one echoed line, for codes that are not sensitive.
func promptLine(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func manifestPassphrase() (string, error) {
	if passphrase != "" {
		return passphrase, nil
	}
	p, err := promptSecret("Manifest passphrase")
	if err != nil {
		return "", err
	}
	passphrase = p
	return p, nil
}

func openStore() (*store.FileStore, error) {
	p, err := manifestPassphrase()
	if err != nil {
		return nil, err
	}
	st, err := wire.OpenManifest(p)
	if store.IsNotExist(err) {
		return nil, fmt.Errorf("no manifest at %s, run steamguard setup first", wire.Config.ManifestPath)
	}
	return st, err
}

// resolveAccount picks an account from the manifest: the named one, or
// the sole enrolled account when no name was given.
func resolveAccount(st *store.FileStore, name string) (*domain.Account, error) {
	if name != "" {
		return st.Account(name)
	}
	names := st.AccountNames()
	switch len(names) {
	case 0:
		return nil, fmt.Errorf("manifest has no accounts")
	case 1:
		return st.Account(names[0])
	}
	return nil, fmt.Errorf("manifest has multiple accounts, pass one of: %s", strings.Join(names, ", "))
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create an empty encrypted manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := manifestPassphrase()
			if err != nil {
				return err
			}
			if _, err := wire.CreateManifest(p); err != nil {
				return err
			}
			fmt.Printf("Manifest created at %s\n", wire.Config.ManifestPath)
			return nil
		},
	}
}
