package steamapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"steamguard/internal/domain"
)

// GuardType is the second-factor kind a login session will accept,
// from the EAuthSessionGuardType enumeration.
type GuardType int

const (
	GuardUnknown            GuardType = 0
	GuardNone               GuardType = 1
	GuardEmailCode          GuardType = 2
	GuardDeviceCode         GuardType = 3
	GuardDeviceConfirmation GuardType = 4
	GuardEmailConfirmation  GuardType = 5
)

// RSAKey is the server's current login key for one account. A login
// attempt is bound to the key fetch via Timestamp and must not reuse a
// stale key.
type RSAKey struct {
	Modulus   string // hex
	Exponent  string // hex
	Timestamp string
}

// GetPasswordRSAKey fetches the RSA public key to encrypt this account's
// password with.
func (c *Client) GetPasswordRSAKey(ctx context.Context, accountName string) (RSAKey, error) {
	q := url.Values{}
	q.Set("account_name", accountName)

	body, eresult, err := c.get(ctx, c.apiURL("IAuthenticationService", "GetPasswordRSAPublicKey", 1), q, nil)
	if err != nil {
		return RSAKey{}, err
	}
	if err := eresultError(eresult); err != nil {
		return RSAKey{}, err
	}

	var resp struct {
		Modulus   string `json:"publickey_mod"`
		Exponent  string `json:"publickey_exp"`
		Timestamp string `json:"timestamp"`
	}
	if err := unwrapResponse(body, &resp); err != nil {
		return RSAKey{}, err
	}
	if resp.Modulus == "" || resp.Exponent == "" {
		return RSAKey{}, protocolErr(nil, "rsa key response missing modulus or exponent")
	}
	return RSAKey{Modulus: resp.Modulus, Exponent: resp.Exponent, Timestamp: resp.Timestamp}, nil
}

// EncryptPassword encrypts the plaintext password under the fetched key:
// RSA PKCS#1 v1.5, base64 for transport.
func EncryptPassword(key RSAKey, password string) (string, error) {
	mod, err := hex.DecodeString(key.Modulus)
	if err != nil {
		return "", protocolErr(err, "rsa modulus is not hex")
	}
	exp, err := hex.DecodeString(key.Exponent)
	if err != nil {
		return "", protocolErr(err, "rsa exponent is not hex")
	}
	pub := rsa.PublicKey{
		N: new(big.Int).SetBytes(mod),
		E: int(new(big.Int).SetBytes(exp).Int64()),
	}
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, &pub, []byte(password))
	if err != nil {
		return "", domain.Errf(domain.KindCrypto, err, "encrypt password")
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// AuthSession is an in-flight login session on the server.
type AuthSession struct {
	ClientID  string
	RequestID string
	SteamID   uint64
	// Interval is the server-suggested poll spacing.
	Interval time.Duration
	// AllowedGuards lists the second factors the server will accept for
	// this attempt; empty means none was demanded.
	AllowedGuards []GuardType
}

// NeedsGuard reports whether the server demanded any second factor.
func (s AuthSession) NeedsGuard() bool {
	for _, g := range s.AllowedGuards {
		if g != GuardNone && g != GuardUnknown {
			return true
		}
	}
	return false
}

// Accepts reports whether the session accepts the given guard type.
func (s AuthSession) Accepts(g GuardType) bool {
	for _, a := range s.AllowedGuards {
		if a == g {
			return true
		}
	}
	return false
}

type beginAuthResponse struct {
	ClientID  string `json:"client_id"`
	RequestID string `json:"request_id"`
	SteamID   string `json:"steamid"`
	Interval  int    `json:"interval"`
	Allowed   []struct {
		Type int `json:"confirmation_type"`
	} `json:"allowed_confirmations"`
}

func (r beginAuthResponse) session() (AuthSession, error) {
	steamID, err := strconv.ParseUint(r.SteamID, 10, 64)
	if err != nil {
		return AuthSession{}, protocolErr(err, "steamid is not numeric")
	}
	interval := time.Duration(r.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s := AuthSession{
		ClientID:  r.ClientID,
		RequestID: r.RequestID,
		SteamID:   steamID,
		Interval:  interval,
	}
	for _, a := range r.Allowed {
		s.AllowedGuards = append(s.AllowedGuards, GuardType(a.Type))
	}
	return s, nil
}

// BeginAuthSessionViaCredentials submits the account name and the
// RSA-encrypted password bound to its key timestamp. Bad credentials
// surface as ErrBadCredentials; a demanded second factor shows up in the
// returned session's AllowedGuards.
func (c *Client) BeginAuthSessionViaCredentials(ctx context.Context, accountName, encryptedPassword, keyTimestamp, deviceID string) (AuthSession, error) {
	form := url.Values{}
	form.Set("account_name", accountName)
	form.Set("encrypted_password", encryptedPassword)
	form.Set("encryption_timestamp", keyTimestamp)
	form.Set("persistence", "1")
	form.Set("device_friendly_name", deviceID)
	form.Set("platform_type", "3") // mobile app
	form.Set("remember_login", "true")

	body, eresult, err := c.postForm(ctx, c.apiURL("IAuthenticationService", "BeginAuthSessionViaCredentials", 1), form, nil)
	if err != nil {
		return AuthSession{}, err
	}
	if err := eresultError(eresult); err != nil {
		return AuthSession{}, err
	}

	var resp beginAuthResponse
	if err := unwrapResponse(body, &resp); err != nil {
		return AuthSession{}, err
	}
	if resp.ClientID == "" {
		// The server answers 200 with an empty response body for
		// rejected credentials when the eresult header is stripped by a
		// proxy.
		return AuthSession{}, domain.ErrBadCredentials
	}
	return resp.session()
}

// UpdateAuthSessionWithSteamGuardCode submits a guard code for an
// in-flight session. A rejected code surfaces as ErrBadGuardCode.
func (c *Client) UpdateAuthSessionWithSteamGuardCode(ctx context.Context, clientID string, steamID uint64, guard GuardType, code string) error {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("steamid", strconv.FormatUint(steamID, 10))
	form.Set("code_type", strconv.Itoa(int(guard)))
	form.Set("code", code)

	_, eresult, err := c.postForm(ctx, c.apiURL("IAuthenticationService", "UpdateAuthSessionWithSteamGuardCode", 1), form, nil)
	if err != nil {
		return err
	}
	return eresultError(eresult)
}

// PollStatus is one answer from PollAuthSessionStatus.
type PollStatus struct {
	// Pending is true while the session awaits a second factor or
	// device approval.
	Pending bool
	// NewClientID replaces the session's client ID when set.
	NewClientID string
	// NewChallengeURL replaces a QR challenge when the server rotates it.
	NewChallengeURL string

	AccountName  string
	AccessToken  string
	RefreshToken string
}

// PollAuthSessionStatus checks an in-flight session once. Denial and
// expiry surface as ErrQRDenied and ErrQRExpired respectively; a pending
// session returns Pending=true with no error.
func (c *Client) PollAuthSessionStatus(ctx context.Context, clientID, requestID string) (PollStatus, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("request_id", requestID)

	body, eresult, err := c.postForm(ctx, c.apiURL("IAuthenticationService", "PollAuthSessionStatus", 1), form, nil)
	if err != nil {
		return PollStatus{}, err
	}
	if eresult == eresultAccessDenied {
		return PollStatus{}, domain.ErrQRDenied
	}
	if err := eresultError(eresult); err != nil {
		return PollStatus{}, err
	}

	var resp struct {
		NewClientID     string `json:"new_client_id"`
		NewChallengeURL string `json:"new_challenge_url"`
		AccountName     string `json:"account_name"`
		AccessToken     string `json:"access_token"`
		RefreshToken    string `json:"refresh_token"`
	}
	if err := unwrapResponse(body, &resp); err != nil {
		return PollStatus{}, err
	}

	st := PollStatus{
		NewClientID:     resp.NewClientID,
		NewChallengeURL: resp.NewChallengeURL,
		AccountName:     resp.AccountName,
		AccessToken:     resp.AccessToken,
		RefreshToken:    resp.RefreshToken,
	}
	st.Pending = st.RefreshToken == ""
	return st, nil
}

// GenerateAccessToken mints a fresh access token from the refresh token.
// An exhausted or revoked refresh token surfaces as ErrSessionExpired.
func (c *Client) GenerateAccessToken(ctx context.Context, refreshToken string, steamID uint64) (string, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("steamid", strconv.FormatUint(steamID, 10))
	form.Set("renewal_type", "0")

	body, eresult, err := c.postForm(ctx, c.apiURL("IAuthenticationService", "GenerateAccessTokenForApp", 1), form, nil)
	if err != nil {
		return "", err
	}
	if err := eresultError(eresult); err != nil {
		return "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := unwrapResponse(body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", domain.ErrSessionExpired
	}
	return resp.AccessToken, nil
}

// RemoveAuthenticator deactivates Steam Guard on the account using its
// revocation code.
func (c *Client) RemoveAuthenticator(ctx context.Context, accessToken string, steamID uint64, revocationCode string) error {
	form := url.Values{}
	form.Set("steamid", strconv.FormatUint(steamID, 10))
	form.Set("access_token", accessToken)
	form.Set("revocation_code", revocationCode)
	form.Set("steamguard_scheme", "2")

	body, eresult, err := c.postForm(ctx, c.apiURL("ITwoFactorService", "RemoveAuthenticator", 1), form, nil)
	if err != nil {
		return err
	}
	if err := eresultError(eresult); err != nil {
		return err
	}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := unwrapResponse(body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return domain.Errf(domain.KindAuth, nil, "steam refused to remove the authenticator")
	}
	return nil
}
