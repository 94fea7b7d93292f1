// Package domain holds the core types shared across the authenticator:
// accounts, sessions, confirmations, secrets, the error taxonomy, and the
// interfaces implemented by the store and service layers.
package domain
