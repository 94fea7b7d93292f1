package domain

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Session is the ephemeral authentication state for one account. It never
// references its owning Account; callers pass the steam ID explicitly
// wherever the owner must be identified.
type Session struct {
	SteamID      uint64 `json:"steam_id,string"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
}

// AccessExpired reports whether the access token has passed its embedded
// expiry. Tokens that cannot be parsed are treated as expired so the
// session manager attempts a refresh rather than sending a dead token.
func (s *Session) AccessExpired() bool {
	return tokenExpired(s.AccessToken, time.Now())
}

// RefreshExpired reports whether the refresh token has passed its expiry.
func (s *Session) RefreshExpired() bool {
	return tokenExpired(s.RefreshToken, time.Now())
}

// tokenExpired inspects the exp claim of a Steam JWT. Only the payload
// segment is decoded; the signature is the server's concern.
func tokenExpired(token string, now time.Time) bool {
	exp, ok := tokenExpiry(token)
	if !ok {
		return true
	}
	return !now.Before(exp)
}

func tokenExpiry(token string) (time.Time, bool) {
	claims, ok := tokenClaims(token)
	if !ok || claims.Exp == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.Exp, 0), true
}

// SteamIDFromToken extracts the subject steam ID from a Steam JWT, used
// when a QR approval hands back tokens without a separate steamid field.
func SteamIDFromToken(token string) (uint64, bool) {
	claims, ok := tokenClaims(token)
	if !ok || claims.Sub == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(claims.Sub, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

type jwtClaims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

func tokenClaims(token string) (jwtClaims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return jwtClaims{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return jwtClaims{}, false
	}
	var claims jwtClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return jwtClaims{}, false
	}
	return claims, true
}
