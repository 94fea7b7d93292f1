// Package confirmation lists and answers pending mobile confirmations.
// Every request carries a time-bound HMAC signature derived from the
// account's identity secret; the service signs each operation with the
// tag the server will verify it against.
package confirmation
