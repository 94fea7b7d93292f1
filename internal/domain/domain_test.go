package domain_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"steamguard/internal/domain"
)

func mintToken(sub string, exp time.Time) string {
	payload := fmt.Sprintf(`{"sub":"%s","exp":%d}`, sub, exp.Unix())
	return "h." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".s"
}

func TestSteamIDFromToken(t *testing.T) {
	id, ok := domain.SteamIDFromToken(mintToken("76561199000000001", time.Now().Add(time.Hour)))
	if !ok || id != 76561199000000001 {
		t.Fatalf("id = %d, ok = %v", id, ok)
	}

	for _, bad := range []string{"", "not-a-jwt", "a.b", "a.!!!.c", mintToken("pony", time.Now())} {
		if _, ok := domain.SteamIDFromToken(bad); ok {
			t.Errorf("SteamIDFromToken(%q) succeeded", bad)
		}
	}
}

func TestSessionExpiry(t *testing.T) {
	live := mintToken("1", time.Now().Add(time.Hour))
	dead := mintToken("1", time.Now().Add(-time.Hour))

	s := &domain.Session{AccessToken: live, RefreshToken: live}
	if s.AccessExpired() || s.RefreshExpired() {
		t.Fatal("live tokens reported expired")
	}

	s = &domain.Session{AccessToken: dead, RefreshToken: live}
	if !s.AccessExpired() || s.RefreshExpired() {
		t.Fatal("mixed expiry misread")
	}

	// Unparseable tokens count as expired so the caller refreshes
	// instead of sending a dead token.
	s = &domain.Session{AccessToken: "garbage", RefreshToken: "garbage"}
	if !s.AccessExpired() || !s.RefreshExpired() {
		t.Fatal("garbage tokens reported live")
	}
}

func TestAccountState(t *testing.T) {
	live := mintToken("1", time.Now().Add(time.Hour))
	dead := mintToken("1", time.Now().Add(-time.Hour))

	cases := []struct {
		name string
		sess *domain.Session
		want domain.LoginState
	}{
		{"no session", nil, domain.LoggedOut},
		{"live access", &domain.Session{AccessToken: live, RefreshToken: live}, domain.LoggedIn},
		{"expired access live refresh", &domain.Session{AccessToken: dead, RefreshToken: live}, domain.Expired},
		{"both expired", &domain.Session{AccessToken: dead, RefreshToken: dead}, domain.LoggedOut},
	}
	for _, tc := range cases {
		a := &domain.Account{AccountName: "x", Session: tc.sess}
		if got := a.State(); got != tc.want {
			t.Errorf("%s: state = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSecretJSON(t *testing.T) {
	type wrap struct {
		S domain.Secret `json:"s"`
	}
	out, err := json.Marshal(wrap{S: []byte("hello")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"s":"aGVsbG8="}` {
		t.Fatalf("encoded = %s", out)
	}

	var back wrap
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(back.S) != "hello" {
		t.Fatalf("round trip = %q", back.S)
	}

	if err := json.Unmarshal([]byte(`{"s":"***"}`), &back); err == nil {
		t.Fatal("invalid base64 accepted")
	}
}

func TestErrorKindAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := domain.Errf(domain.KindNetwork, cause, "fetch %s", "thing")

	if domain.KindOf(err) != domain.KindNetwork {
		t.Fatalf("kind = %v", domain.KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not unwrapped")
	}

	wrapped := domain.Errf(domain.KindAuth, domain.ErrBadGuardCode, "rejected")
	if !errors.Is(wrapped, domain.ErrBadGuardCode) {
		t.Fatal("sentinel not matched through wrap")
	}
	if domain.KindOf(wrapped) != domain.KindAuth {
		t.Fatalf("kind = %v", domain.KindOf(wrapped))
	}
}
