// Package session drives the login state machine: RSA-encrypted password
// login, bounded guard-code submission, QR login polling, authenticator
// enrollment, and the single silent refresh that moves an expired session
// back to logged in.
package session
