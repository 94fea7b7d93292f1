package steamapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"steamguard/internal/domain"
)

// ConfirmationQuery carries the signed parameters attached to every
// mobileconf request. Key must have been generated for Time and Tag with
// the account's identity secret.
type ConfirmationQuery struct {
	SteamID  uint64
	DeviceID string
	Key      string
	Time     int64
	Tag      string
}

func (q ConfirmationQuery) values() url.Values {
	v := url.Values{}
	v.Set("p", q.DeviceID)
	v.Set("a", strconv.FormatUint(q.SteamID, 10))
	v.Set("k", q.Key)
	v.Set("t", strconv.FormatInt(q.Time, 10))
	v.Set("m", "react")
	v.Set("tag", q.Tag)
	return v
}

type confirmationItem struct {
	Type      int      `json:"type"`
	TypeName  string   `json:"type_name"`
	ID        string   `json:"id"`
	CreatorID string   `json:"creator_id"`
	Nonce     string   `json:"nonce"`
	Headline  string   `json:"headline"`
	Summary   []string `json:"summary"`
}

type confirmationListResponse struct {
	Success  bool               `json:"success"`
	NeedAuth bool               `json:"needauth"`
	Message  string             `json:"message"`
	Conf     []confirmationItem `json:"conf"`
}

// FetchConfirmations lists the pending confirmations visible to the
// session. The returned entries are valid for this poll only; their
// nonces rotate between polls.
func (c *Client) FetchConfirmations(ctx context.Context, sess *domain.Session, q ConfirmationQuery) ([]domain.Confirmation, error) {
	body, _, err := c.get(ctx, c.communityBase+"/mobileconf/getlist", q.values(), sessionCookies(sess))
	if err != nil {
		return nil, err
	}

	var resp confirmationListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, protocolErr(err, "decode confirmation list")
	}
	if resp.NeedAuth {
		return nil, domain.ErrSessionExpired
	}
	if !resp.Success {
		return nil, domain.Errf(domain.KindProtocol, nil, "confirmation list refused: %s", resp.Message)
	}

	fetched := time.Now()
	out := make([]domain.Confirmation, 0, len(resp.Conf))
	for _, item := range resp.Conf {
		id, err := strconv.ParseUint(item.ID, 10, 64)
		if err != nil {
			return nil, protocolErr(err, "confirmation id %q is not numeric", item.ID)
		}
		// creator_id is absent for some confirmation kinds.
		creator, _ := strconv.ParseUint(item.CreatorID, 10, 64)

		out = append(out, domain.Confirmation{
			ID:        id,
			Nonce:     item.Nonce,
			Type:      confirmationType(item.Type),
			RawType:   item.TypeName,
			Creator:   creator,
			Headline:  item.Headline,
			Summary:   item.Summary,
			FetchedAt: fetched,
		})
	}
	return out, nil
}

// confirmationType maps the wire integer onto the closed domain set;
// anything unrecognized degrades to Unknown rather than failing the poll.
func confirmationType(wire int) domain.ConfirmationType {
	switch domain.ConfirmationType(wire) {
	case domain.ConfirmationTrade:
		return domain.ConfirmationTrade
	case domain.ConfirmationMarketListing:
		return domain.ConfirmationMarketListing
	}
	return domain.ConfirmationUnknown
}

type confirmationOpResponse struct {
	Success  bool   `json:"success"`
	NeedAuth bool   `json:"needauth"`
	Message  string `json:"message"`
}

// SendConfirmationOp submits one accept/cancel decision. The op must
// equal q.Tag; the server verifies the signature against the tag and
// rejects mismatches, surfaced here as ErrConfirmationRejected.
func (c *Client) SendConfirmationOp(ctx context.Context, sess *domain.Session, q ConfirmationQuery, op string, id uint64, nonce string) error {
	v := q.values()
	v.Set("op", op)
	v.Set("cid", strconv.FormatUint(id, 10))
	v.Set("ck", nonce)

	body, _, err := c.postForm(ctx, c.communityBase+"/mobileconf/ajaxop", v, sessionCookies(sess))
	if err != nil {
		return err
	}

	var resp confirmationOpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return protocolErr(err, "decode confirmation op response")
	}
	if resp.NeedAuth {
		return domain.ErrSessionExpired
	}
	if !resp.Success {
		return domain.Errf(domain.KindCrypto, domain.ErrConfirmationRejected, "%s", resp.Message)
	}
	return nil
}
