package domain

import (
	"context"
	"time"
)

// ManifestStore owns the encrypted on-disk manifest. Accounts are checked
// out by name, mutated for the duration of one operation, and written back
// with Save. Implementations serialize mutations; concurrent processes on
// the same file are the caller's responsibility to avoid.
type ManifestStore interface {
	AccountNames() []string
	Account(name string) (*Account, error)
	AddAccount(a *Account) error
	RemoveAccount(name string) error
	// UpdateSession replaces the named account's session in memory.
	// Passing nil reverts the account to LoggedOut.
	UpdateSession(name string, s *Session) error
	// Save re-encrypts the manifest with fresh salt and IV and writes it
	// atomically: a concurrent reader sees either the old file or the new
	// one, never a partial write.
	Save() error
}

// TimeSource provides Steam server time. Implementations degrade to a
// cached or zero offset on sync failure instead of failing the caller.
type TimeSource interface {
	// Now returns the current Steam server time in Unix seconds.
	Now(ctx context.Context) int64
	// Offset returns serverTime - localTime as last synchronized.
	Offset() time.Duration
	// Refresh re-queries the server clock. Callers invoke it explicitly,
	// e.g. after repeated code rejections attributable to skew.
	Refresh(ctx context.Context) error
}

// SessionService drives the login state machine for one account at a time.
type SessionService interface {
	// Login authenticates with the account's password, supplying a
	// generated guard code when the server demands one. On success the
	// account's Session field is set.
	Login(ctx context.Context, account *Account, password string) error
	// Refresh performs the single silent Expired to LoggedIn transition
	// using the stored refresh token. An exhausted refresh token clears
	// the session and returns ErrSessionExpired.
	Refresh(ctx context.Context, account *Account) error
	// EnsureSession refreshes at most once if the session is expired and
	// returns ErrNotLoggedIn when no session exists.
	EnsureSession(ctx context.Context, account *Account) error
}

// ConfirmationService lists and answers pending mobile confirmations.
type ConfirmationService interface {
	List(ctx context.Context, account *Account) ([]Confirmation, error)
	Answer(ctx context.Context, account *Account, c Confirmation, d Decision) error
}
