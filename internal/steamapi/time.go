package steamapi

import (
	"context"
	"net/url"
	"strconv"
)

// QueryServerTime asks Steam for its current Unix time. The endpoint is
// unauthenticated; steamid=0 is what the mobile app sends.
func (c *Client) QueryServerTime(ctx context.Context) (int64, error) {
	form := url.Values{}
	form.Set("steamid", "0")

	body, eresult, err := c.postForm(ctx, c.apiURL("ITwoFactorService", "QueryTime", 1), form, nil)
	if err != nil {
		return 0, err
	}
	if err := eresultError(eresult); err != nil {
		return 0, err
	}

	var resp struct {
		ServerTime string `json:"server_time"`
	}
	if err := unwrapResponse(body, &resp); err != nil {
		return 0, err
	}
	t, err := strconv.ParseInt(resp.ServerTime, 10, 64)
	if err != nil {
		return 0, protocolErr(err, "server_time is not numeric")
	}
	return t, nil
}
