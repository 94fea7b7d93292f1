package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Secret is raw key material. It serializes as standard base64, matching
// the maFile fields (shared_secret, identity_secret) emitted by the mobile
// app's enrollment response.
type Secret []byte

func (s Secret) IsZero() bool { return len(s) == 0 }

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(s))
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	var enc string
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return errors.New("secret is not valid base64")
	}
	*s = raw
	return nil
}

// Account is one enrolled Steam identity. SharedSecret and IdentitySecret
// are set at enrollment or import and never mutated afterwards; Session is
// the only field the session manager touches.
type Account struct {
	AccountName    string   `json:"account_name"`
	SteamID        uint64   `json:"steam_id,string"`
	DeviceID       string   `json:"device_id"`
	SharedSecret   Secret   `json:"shared_secret"`
	IdentitySecret Secret   `json:"identity_secret"`
	Secret1        Secret   `json:"secret_1,omitempty"`
	RevocationCode string   `json:"revocation_code"`
	URI            string   `json:"uri,omitempty"`
	SerialNumber   string   `json:"serial_number,omitempty"`
	TokenGID       string   `json:"token_gid,omitempty"`
	Session        *Session `json:"session,omitempty"`
}

// LoginState describes where an account sits in the login state machine.
type LoginState int

const (
	LoggedOut LoginState = iota
	AwaitingTwoFactor
	AwaitingEmailCode
	LoggedIn
	Expired
)

func (s LoginState) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case AwaitingTwoFactor:
		return "awaiting two-factor code"
	case AwaitingEmailCode:
		return "awaiting email code"
	case LoggedIn:
		return "logged in"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// State derives the account's login state from its stored session. The
// intermediate Awaiting* states only exist during an in-flight login
// attempt and are never derived from persisted data.
func (a *Account) State() LoginState {
	switch {
	case a.Session == nil:
		return LoggedOut
	case !a.Session.AccessExpired():
		return LoggedIn
	case !a.Session.RefreshExpired():
		return Expired
	}
	return LoggedOut
}
