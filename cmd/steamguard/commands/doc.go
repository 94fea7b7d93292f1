// Package commands defines the steamguard CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - code      Print the current login code for an account
//   - login     Authenticate with password and guard code
//   - qr-login  Authenticate by approving a QR challenge in the Steam app
//   - confirm   List and answer pending trade/market confirmations
//   - enroll    Link a new mobile authenticator to a Steam account
//   - setup     Create an empty manifest
//   - import    Add an account from an otpauth URI, maFile or export blob
//   - export    Write an account as an encrypted blob
//   - remove    Drop an account, optionally deactivating the authenticator
//   - accounts  List enrolled accounts and their login state
//
// # Implementation
//
// The root command loads the YAML config and builds the dependency graph
// (API client, server clock, session and confirmation services) before
// any subcommand runs. The encrypted manifest is opened lazily by the
// commands that need it, prompting for the passphrase when it was not
// given by flag.
package commands
