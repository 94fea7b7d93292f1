package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to decide on presentation
// or retry behaviour without inspecting the underlying cause.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork covers transient transport failures: timeouts, refused
	// connections, DNS errors.
	KindNetwork
	// KindAuth covers bad credentials, rejected guard codes, rate limits
	// and CAPTCHA demands.
	KindAuth
	// KindSessionExpired signals that stored tokens are no longer accepted.
	KindSessionExpired
	// KindCrypto covers manifest decryption failures and rejected
	// confirmation signatures.
	KindCrypto
	// KindProtocol signals an unparseable or structurally unexpected
	// server response.
	KindProtocol
	// KindStaleConfirmation signals that a confirmation signature's
	// validity window elapsed before the decision reached the server.
	KindStaleConfirmation
	// KindIO covers manifest read/write failures.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindSessionExpired:
		return "session expired"
	case KindCrypto:
		return "crypto"
	case KindProtocol:
		return "protocol"
	case KindStaleConfirmation:
		return "stale confirmation"
	case KindIO:
		return "io"
	}
	return "unknown"
}

// Error is a classified error. Sentinel values below are *Error so both
// errors.Is against the sentinel and KindOf classification work on wrapped
// chains.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds a classified error wrapping cause, which may be nil.
func Errf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf reports the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinels for conditions callers branch on.
var (
	// ErrWrongPassphrase is returned for every manifest decryption failure,
	// whether the passphrase is wrong or the ciphertext is corrupted. The
	// two cases are deliberately indistinguishable.
	ErrWrongPassphrase = &Error{Kind: KindCrypto, Msg: "wrong passphrase or corrupted manifest"}

	ErrBadCredentials  = &Error{Kind: KindAuth, Msg: "bad account name or password"}
	ErrBadGuardCode    = &Error{Kind: KindAuth, Msg: "steam guard code rejected"}
	ErrRateLimited     = &Error{Kind: KindAuth, Msg: "rate limited by steam"}
	ErrCaptchaRequired = &Error{Kind: KindAuth, Msg: "captcha required"}

	ErrNotLoggedIn    = &Error{Kind: KindSessionExpired, Msg: "account is not logged in"}
	ErrSessionExpired = &Error{Kind: KindSessionExpired, Msg: "session tokens are no longer valid"}

	// ErrConfirmationRejected signals that the server refused a signed
	// confirmation request, which means the signature or its tag did not
	// verify on the remote side.
	ErrConfirmationRejected = &Error{Kind: KindCrypto, Msg: "confirmation signature rejected"}
	ErrStaleConfirmation    = &Error{Kind: KindStaleConfirmation, Msg: "confirmation signature validity window elapsed"}

	// ErrEmailCodeRequired and ErrGuardCodeRequired report that the
	// server demanded a second factor the caller has not supplied;
	// they correspond to the AwaitingEmailCode / AwaitingTwoFactor
	// states of an in-flight login.
	ErrEmailCodeRequired = &Error{Kind: KindAuth, Msg: "email code required to complete login"}
	ErrGuardCodeRequired = &Error{Kind: KindAuth, Msg: "steam guard code required to complete login"}

	ErrQRDenied  = &Error{Kind: KindAuth, Msg: "qr login denied on device"}
	ErrQRExpired = &Error{Kind: KindAuth, Msg: "qr login challenge expired"}

	// ErrAuthenticatorPresent means the account already has a mobile
	// authenticator; it must be removed before a new one can be linked.
	ErrAuthenticatorPresent = &Error{Kind: KindAuth, Msg: "account already has a mobile authenticator"}
	ErrBadActivationCode    = &Error{Kind: KindAuth, Msg: "sms activation code rejected"}

	ErrAccountNotFound = &Error{Kind: KindIO, Msg: "account not found in manifest"}
	ErrDuplicateName   = &Error{Kind: KindIO, Msg: "account name already present in manifest"}
)
