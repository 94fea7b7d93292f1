package steamapi

import (
	"context"
	"encoding/base64"
	"net/url"
	"strconv"

	"steamguard/internal/domain"
)

// ITwoFactorService enrollment statuses outside the shared eresult set.
const (
	enrollStatusOK                = 1
	enrollStatusDuplicateRequest  = 29
	enrollStatusTwoFactorMismatch = 88
	enrollStatusBadActivationCode = 89
)

// EnrollResult is the authenticator material minted by AddAuthenticator.
// It must be persisted before finalization: once the server activates
// the authenticator, the revocation code in here is the only way back.
type EnrollResult struct {
	SharedSecret   domain.Secret
	IdentitySecret domain.Secret
	Secret1        domain.Secret
	SerialNumber   string
	RevocationCode string
	URI            string
	TokenGID       string
	ServerTime     int64
}

// AddAuthenticator starts linking a mobile authenticator to the account.
// The account needs a verified phone number; Steam sends the activation
// code there as a side effect of this call.
func (c *Client) AddAuthenticator(ctx context.Context, accessToken string, steamID uint64, deviceID string) (EnrollResult, error) {
	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("steamid", strconv.FormatUint(steamID, 10))
	form.Set("authenticator_type", "1")
	form.Set("device_identifier", deviceID)
	form.Set("sms_phone_id", "1")

	body, eresult, err := c.postForm(ctx, c.apiURL("ITwoFactorService", "AddAuthenticator", 1), form, nil)
	if err != nil {
		return EnrollResult{}, err
	}
	if err := eresultError(eresult); err != nil {
		return EnrollResult{}, err
	}

	var resp struct {
		SharedSecret   string `json:"shared_secret"`
		IdentitySecret string `json:"identity_secret"`
		Secret1        string `json:"secret_1"`
		SerialNumber   string `json:"serial_number"`
		RevocationCode string `json:"revocation_code"`
		URI            string `json:"uri"`
		TokenGID       string `json:"token_gid"`
		ServerTime     int64  `json:"server_time,string"`
		Status         int    `json:"status"`
	}
	if err := unwrapResponse(body, &resp); err != nil {
		return EnrollResult{}, err
	}
	switch resp.Status {
	case enrollStatusOK:
	case enrollStatusDuplicateRequest:
		return EnrollResult{}, domain.ErrAuthenticatorPresent
	default:
		return EnrollResult{}, protocolErr(nil, "add authenticator returned status %d", resp.Status)
	}

	out := EnrollResult{
		SerialNumber:   resp.SerialNumber,
		RevocationCode: resp.RevocationCode,
		URI:            resp.URI,
		TokenGID:       resp.TokenGID,
		ServerTime:     resp.ServerTime,
	}
	for _, f := range []struct {
		dst *domain.Secret
		enc string
	}{
		{&out.SharedSecret, resp.SharedSecret},
		{&out.IdentitySecret, resp.IdentitySecret},
		{&out.Secret1, resp.Secret1},
	} {
		raw, err := base64.StdEncoding.DecodeString(f.enc)
		if err != nil {
			return EnrollResult{}, protocolErr(err, "enrollment secret is not valid base64")
		}
		*f.dst = raw
	}
	if out.SharedSecret.IsZero() || out.RevocationCode == "" {
		return EnrollResult{}, protocolErr(nil, "enrollment response incomplete")
	}
	return out, nil
}

// FinalizeStatus is one answer from FinalizeAddAuthenticator.
type FinalizeStatus struct {
	Success bool
	// WantMore asks the caller to submit another generated code so the
	// server can calibrate against the authenticator's clock.
	WantMore   bool
	ServerTime int64
}

// FinalizeAddAuthenticator submits the SMS activation code together with
// a guard code generated from the freshly minted shared secret. A
// rejected activation code surfaces as ErrBadActivationCode, a rejected
// guard code as ErrBadGuardCode; both leave the enrollment resumable.
func (c *Client) FinalizeAddAuthenticator(ctx context.Context, accessToken string, steamID uint64, activationCode, guardCode string, guardTime int64) (FinalizeStatus, error) {
	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("steamid", strconv.FormatUint(steamID, 10))
	form.Set("activation_code", activationCode)
	form.Set("authenticator_code", guardCode)
	form.Set("authenticator_time", strconv.FormatInt(guardTime, 10))

	body, eresult, err := c.postForm(ctx, c.apiURL("ITwoFactorService", "FinalizeAddAuthenticator", 1), form, nil)
	if err != nil {
		return FinalizeStatus{}, err
	}
	if err := eresultError(eresult); err != nil {
		return FinalizeStatus{}, err
	}

	var resp struct {
		Status     int   `json:"status"`
		ServerTime int64 `json:"server_time,string"`
		WantMore   bool  `json:"want_more"`
		Success    bool  `json:"success"`
	}
	if err := unwrapResponse(body, &resp); err != nil {
		return FinalizeStatus{}, err
	}
	switch resp.Status {
	case enrollStatusBadActivationCode:
		return FinalizeStatus{}, domain.ErrBadActivationCode
	case enrollStatusTwoFactorMismatch:
		return FinalizeStatus{}, domain.ErrBadGuardCode
	}
	if !resp.Success && !resp.WantMore {
		return FinalizeStatus{}, protocolErr(nil, "finalize authenticator returned status %d", resp.Status)
	}
	return FinalizeStatus{Success: resp.Success, WantMore: resp.WantMore, ServerTime: resp.ServerTime}, nil
}
