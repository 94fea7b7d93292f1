package steamapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"steamguard/internal/domain"
)

const (
	DefaultAPIBase       = "https://api.steampowered.com"
	DefaultCommunityBase = "https://steamcommunity.com"

	// userAgent mirrors the Steam mobile app's embedded browser; some
	// endpoints behave differently for unknown agents.
	userAgent = "Mozilla/5.0 (Linux; U; Android 4.1.1; en-us; Google Nexus 4 - 4.1.1 - API 16 - 768x1280 Build/JRO03S) AppleWebKit/534.30 (KHTML, like Gecko) Version/4.0 Mobile Safari/534.30"

	defaultTimeout = 30 * time.Second
)

// Selected EResult codes surfaced by the auth endpoints, from the public
// EResult enumeration.
const (
	eresultOK                    = 1
	eresultInvalidPassword       = 5
	eresultAccessDenied          = 15
	eresultExpired               = 27
	eresultRateLimitExceeded     = 84
	eresultTwoFactorCodeMismatch = 88
)

// Client talks to the Steam Web API and the community site. Safe for
// concurrent use; it keeps no cookie jar, cookies travel with each call.
type Client struct {
	apiBase       string
	communityBase string
	http          *http.Client
	log           *slog.Logger
}

// New builds a Client. Empty bases default to the real Steam hosts; a nil
// HTTP client gets a bounded-timeout default so no call can block
// indefinitely.
func New(apiBase, communityBase string, hc *http.Client, log *slog.Logger) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if communityBase == "" {
		communityBase = DefaultCommunityBase
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{apiBase: apiBase, communityBase: communityBase, http: hc, log: log}
}

// NewSessionID generates the random hex sessionid cookie value the
// community site expects.
func NewSessionID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// sessionCookies builds the cookie set for an authenticated community
// request: the mobile-client trio plus the session identity cookies.
func sessionCookies(s *domain.Session) []*http.Cookie {
	steamID := strconv.FormatUint(s.SteamID, 10)
	return []*http.Cookie{
		{Name: "mobileClientVersion", Value: "0 (2.1.3)"},
		{Name: "mobileClient", Value: "android"},
		{Name: "Steam_Language", Value: "english"},
		{Name: "steamid", Value: steamID},
		{Name: "sessionid", Value: s.SessionID},
		{Name: "steamLoginSecure", Value: steamID + "%7C%7C" + url.QueryEscape(s.AccessToken)},
	}
}

// do runs one request, classifies transport and status failures, and
// returns the body plus the x-eresult header (0 when absent).
func (c *Client) do(req *http.Request, cookies []*http.Cookie) ([]byte, int, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript;q=0.9, */*;q=0.5")
	req.Header.Set("X-Requested-With", "com.valvesoftware.android.steam.community")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	c.log.Debug("steam request", "method", req.Method, "url", req.URL.Redacted())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, domain.Errf(domain.KindNetwork, err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	eresult := 0
	if h := resp.Header.Get("X-Eresult"); h != "" {
		eresult, _ = strconv.Atoi(h)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eresult, domain.Errf(domain.KindNetwork, err, "read response body")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return body, eresult, domain.ErrSessionExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return body, eresult, domain.ErrRateLimited
	case resp.StatusCode/100 != 2:
		return body, eresult, domain.Errf(domain.KindProtocol, nil, "%s %s: unexpected status %s",
			req.Method, req.URL.Path, resp.Status)
	}
	return body, eresult, nil
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, cookies []*http.Cookie) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, domain.Errf(domain.KindProtocol, err, "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	return c.do(req, cookies)
}

func (c *Client) get(ctx context.Context, rawURL string, query url.Values, cookies []*http.Cookie) ([]byte, int, error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, domain.Errf(domain.KindProtocol, err, "build request")
	}
	return c.do(req, cookies)
}

// unwrapResponse peels the {"response": ...} layer common to Web API
// payloads.
func unwrapResponse(body []byte, out any) error {
	var env struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Errf(domain.KindProtocol, err, "unexpected response shape")
	}
	if len(env.Response) == 0 {
		return domain.Errf(domain.KindProtocol, nil, "response field missing")
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return domain.Errf(domain.KindProtocol, err, "decode response")
	}
	return nil
}

// eresultError maps a non-OK EResult to the taxonomy. Zero means the
// header was absent and the body has to speak for itself.
func eresultError(code int) error {
	switch code {
	case 0, eresultOK:
		return nil
	case eresultInvalidPassword:
		return domain.ErrBadCredentials
	case eresultAccessDenied:
		return domain.ErrSessionExpired
	case eresultExpired:
		return domain.ErrQRExpired
	case eresultRateLimitExceeded:
		return domain.ErrRateLimited
	case eresultTwoFactorCodeMismatch:
		return domain.ErrBadGuardCode
	}
	return domain.Errf(domain.KindProtocol, nil, "steam returned eresult %d", code)
}

func protocolErr(cause error, format string, args ...any) error {
	return domain.Errf(domain.KindProtocol, cause, format, args...)
}

func (c *Client) apiURL(iface, method string, version int) string {
	return fmt.Sprintf("%s/%s/%s/v%d/", c.apiBase, iface, method, version)
}
