package steamapi

import (
	"context"
	"net/url"
	"time"
)

// QRChallenge is a registered QR login session. ChallengeURL is the
// payload an external collaborator renders as a QR code; the server may
// rotate it mid-poll, reported via PollStatus.NewChallengeURL.
type QRChallenge struct {
	ClientID     string
	RequestID    string
	ChallengeURL string
	Interval     time.Duration
}

// BeginAuthSessionViaQR registers a QR login session for this device.
func (c *Client) BeginAuthSessionViaQR(ctx context.Context, deviceID string) (QRChallenge, error) {
	form := url.Values{}
	form.Set("device_friendly_name", deviceID)
	form.Set("platform_type", "3")

	body, eresult, err := c.postForm(ctx, c.apiURL("IAuthenticationService", "BeginAuthSessionViaQR", 1), form, nil)
	if err != nil {
		return QRChallenge{}, err
	}
	if err := eresultError(eresult); err != nil {
		return QRChallenge{}, err
	}

	var resp struct {
		ClientID     string `json:"client_id"`
		RequestID    string `json:"request_id"`
		ChallengeURL string `json:"challenge_url"`
		Interval     int    `json:"interval"`
	}
	if err := unwrapResponse(body, &resp); err != nil {
		return QRChallenge{}, err
	}
	if resp.ClientID == "" || resp.ChallengeURL == "" {
		return QRChallenge{}, protocolErr(nil, "qr session response incomplete")
	}

	interval := time.Duration(resp.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return QRChallenge{
		ClientID:     resp.ClientID,
		RequestID:    resp.RequestID,
		ChallengeURL: resp.ChallengeURL,
		Interval:     interval,
	}, nil
}
