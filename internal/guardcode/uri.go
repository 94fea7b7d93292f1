package guardcode

import (
	"encoding/base32"
	"strings"

	"github.com/pquerna/otp"

	"steamguard/internal/domain"
)

// AccountFromURI builds a partially-filled account from an otpauth://
// enrollment URI, as found in the uri field of exported maFiles. Only the
// shared secret and account name are recoverable from the URI; the
// identity secret, steam ID and revocation code must come from a full
// import.
func AccountFromURI(raw string) (*domain.Account, error) {
	key, err := otp.NewKeyFromURL(raw)
	if err != nil {
		return nil, domain.Errf(domain.KindProtocol, err, "parse otpauth uri")
	}
	if key.Type() != "totp" || key.Secret() == "" {
		return nil, domain.Errf(domain.KindProtocol, nil, "uri is not a totp enrollment uri")
	}

	enc := strings.TrimRight(strings.ToUpper(key.Secret()), "=")
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(enc)
	if err != nil {
		return nil, domain.Errf(domain.KindProtocol, err, "decode otpauth secret")
	}

	return &domain.Account{
		AccountName:  key.AccountName(),
		SharedSecret: secret,
		URI:          raw,
		DeviceID:     NewDeviceID(),
	}, nil
}
