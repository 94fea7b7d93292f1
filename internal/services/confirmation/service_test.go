package confirmation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"steamguard/internal/domain"
	"steamguard/internal/guardcode"
	"steamguard/internal/steamapi"
)

const testServerTime = 1634603424

var testIdentitySecret = mustSecret("aWRlbnRpdHlzZWNyZXQwMDAwMDA=")

func mustSecret(enc string) domain.Secret {
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		panic(err)
	}
	return raw
}

type fixedClock struct{ now int64 }

func (c fixedClock) Now(context.Context) int64 { return c.now }

func (c fixedClock) Offset() time.Duration { return 0 }

func (c fixedClock) Refresh(context.Context) error { return nil }

// fakeSessions satisfies the session manager with canned behavior.
type fakeSessions struct {
	ensureCalls  int
	refreshCalls int
	ensureErr    error
	refreshErr   error
}

func (f *fakeSessions) Login(context.Context, *domain.Account, string) error { return nil }

func (f *fakeSessions) Refresh(_ context.Context, a *domain.Account) error {
	f.refreshCalls++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	a.Session.AccessToken = "refreshed." + a.Session.AccessToken
	return nil
}

func (f *fakeSessions) EnsureSession(context.Context, *domain.Account) error {
	f.ensureCalls++
	return f.ensureErr
}

func testAccount() *domain.Account {
	return &domain.Account{
		AccountName:    "hydrogen",
		SteamID:        76561199000000001,
		DeviceID:       "android:test-device",
		IdentitySecret: testIdentitySecret,
		Session: &domain.Session{
			SteamID:     76561199000000001,
			AccessToken: "tok.en.x",
			SessionID:   "abcdef0123456789",
		},
	}
}

func newService(t *testing.T, h http.Handler, sessions *fakeSessions) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	api := steamapi.New(srv.URL, srv.URL, srv.Client(), nil)
	return New(api, fixedClock{now: testServerTime}, sessions, nil)
}

// checkSignature asserts the request carries the parameters the server
// would verify, including the HMAC key for the claimed tag and time.
func checkSignature(t *testing.T, v map[string][]string, tag string) {
	t.Helper()
	get := func(k string) string {
		if len(v[k]) == 0 {
			return ""
		}
		return v[k][0]
	}
	if get("a") != "76561199000000001" || get("p") != "android:test-device" || get("m") != "react" {
		t.Errorf("query identity params = a:%q p:%q m:%q", get("a"), get("p"), get("m"))
	}
	if get("tag") != tag {
		t.Errorf("tag = %q, want %q", get("tag"), tag)
	}
	want, _ := guardcode.ConfirmationKey(testIdentitySecret, tag, testServerTime)
	if get("k") != want || get("t") != fmt.Sprint(testServerTime) {
		t.Errorf("signature k:%q t:%q, want k:%q t:%d", get("k"), get("t"), want, testServerTime)
	}
}

func TestList(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/mobileconf/getlist", func(w http.ResponseWriter, req *http.Request) {
		checkSignature(t, req.URL.Query(), "conf")
		fmt.Fprint(w, `{"success":true,"conf":[
			{"type":2,"type_name":"Trade Offer","id":"9001","creator_id":"42","nonce":"n1","headline":"Trade with partner","summary":["You give 1 item"]},
			{"type":3,"type_name":"Market Listing","id":"9002","creator_id":"43","nonce":"n2","headline":"Sell item","summary":[]}
		]}`)
	})
	sessions := &fakeSessions{}
	svc := newService(t, r, sessions)

	confs, err := svc.List(context.Background(), testAccount())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(confs) != 2 {
		t.Fatalf("got %d confirmations", len(confs))
	}
	if confs[0].ID != 9001 || confs[0].Type != domain.ConfirmationTrade || confs[0].Nonce != "n1" {
		t.Fatalf("first = %+v", confs[0])
	}
	if confs[1].Type != domain.ConfirmationMarketListing {
		t.Fatalf("second type = %v", confs[1].Type)
	}
	if confs[0].FetchedAt.IsZero() {
		t.Fatal("FetchedAt not stamped")
	}
	if sessions.ensureCalls != 1 {
		t.Fatalf("ensure calls = %d", sessions.ensureCalls)
	}
}

func TestList_NotLoggedIn(t *testing.T) {
	sessions := &fakeSessions{ensureErr: domain.ErrNotLoggedIn}
	svc := newService(t, mux.NewRouter(), sessions)

	_, err := svc.List(context.Background(), testAccount())
	if !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
}

func TestList_RefreshesOnceOnNeedAuth(t *testing.T) {
	var calls int
	r := mux.NewRouter()
	r.HandleFunc("/mobileconf/getlist", func(w http.ResponseWriter, req *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"success":false,"needauth":true}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"conf":[]}`)
	})
	sessions := &fakeSessions{}
	svc := newService(t, r, sessions)

	confs, err := svc.List(context.Background(), testAccount())
	if err != nil {
		t.Fatalf("List after refresh: %v", err)
	}
	if len(confs) != 0 {
		t.Fatalf("got %d confirmations", len(confs))
	}
	if sessions.refreshCalls != 1 || calls != 2 {
		t.Fatalf("refreshes = %d, fetches = %d", sessions.refreshCalls, calls)
	}
}

func TestList_RefreshFails(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/mobileconf/getlist", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"success":false,"needauth":true}`)
	})
	sessions := &fakeSessions{refreshErr: domain.ErrSessionExpired}
	svc := newService(t, r, sessions)

	_, err := svc.List(context.Background(), testAccount())
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if sessions.refreshCalls != 1 {
		t.Fatalf("refreshes = %d, want 1", sessions.refreshCalls)
	}
}

func TestAnswer_Accept(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/mobileconf/ajaxop", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		checkSignature(t, req.PostForm, "allow")
		if req.PostFormValue("op") != "allow" || req.PostFormValue("cid") != "9001" || req.PostFormValue("ck") != "n1" {
			t.Errorf("op params = op:%q cid:%q ck:%q", req.PostFormValue("op"), req.PostFormValue("cid"), req.PostFormValue("ck"))
		}
		fmt.Fprint(w, `{"success":true}`)
	})
	svc := newService(t, r, &fakeSessions{})

	conf := domain.Confirmation{ID: 9001, Nonce: "n1", FetchedAt: time.Now()}
	if err := svc.Accept(context.Background(), testAccount(), conf); err != nil {
		t.Fatalf("Accept: %v", err)
	}
}

func TestAnswer_CancelUsesCancelTag(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/mobileconf/ajaxop", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		checkSignature(t, req.PostForm, "cancel")
		if req.PostFormValue("op") != "cancel" {
			t.Errorf("op = %q", req.PostFormValue("op"))
		}
		fmt.Fprint(w, `{"success":true}`)
	})
	svc := newService(t, r, &fakeSessions{})

	conf := domain.Confirmation{ID: 9001, Nonce: "n1", FetchedAt: time.Now()}
	if err := svc.Cancel(context.Background(), testAccount(), conf); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
}

func TestAnswer_FreshRejection(t *testing.T) {
	var submissions int
	r := mux.NewRouter()
	r.HandleFunc("/mobileconf/ajaxop", func(w http.ResponseWriter, req *http.Request) {
		submissions++
		fmt.Fprint(w, `{"success":false,"message":"Something went wrong"}`)
	})
	svc := newService(t, r, &fakeSessions{})

	conf := domain.Confirmation{ID: 9001, Nonce: "n1", FetchedAt: time.Now()}
	err := svc.Answer(context.Background(), testAccount(), conf, domain.Accept)
	if !errors.Is(err, domain.ErrConfirmationRejected) {
		t.Fatalf("err = %v, want ErrConfirmationRejected", err)
	}
	if errors.Is(err, domain.ErrStaleConfirmation) {
		t.Fatal("fresh rejection reported as stale")
	}
	if submissions != 1 {
		t.Fatalf("submissions = %d, decision must not be retried", submissions)
	}
}

func TestAnswer_StaleRejection(t *testing.T) {
	var submissions int
	r := mux.NewRouter()
	r.HandleFunc("/mobileconf/ajaxop", func(w http.ResponseWriter, req *http.Request) {
		submissions++
		fmt.Fprint(w, `{"success":false}`)
	})
	svc := newService(t, r, &fakeSessions{})
	base := time.Now()
	svc.now = func() time.Time { return base.Add(2 * time.Minute) }

	conf := domain.Confirmation{ID: 9001, Nonce: "n1", FetchedAt: base}
	err := svc.Answer(context.Background(), testAccount(), conf, domain.Accept)
	if !errors.Is(err, domain.ErrStaleConfirmation) {
		t.Fatalf("err = %v, want ErrStaleConfirmation", err)
	}
	if domain.KindOf(err) != domain.KindStaleConfirmation {
		t.Fatalf("kind = %v", domain.KindOf(err))
	}
	if submissions != 1 {
		t.Fatalf("submissions = %d, decision must not be retried", submissions)
	}
}

func TestAnswer_NoIdentitySecret(t *testing.T) {
	svc := newService(t, mux.NewRouter(), &fakeSessions{})
	acct := testAccount()
	acct.IdentitySecret = nil

	err := svc.Answer(context.Background(), acct, domain.Confirmation{ID: 1, Nonce: "n"}, domain.Accept)
	if domain.KindOf(err) != domain.KindCrypto {
		t.Fatalf("kind = %v, want crypto", domain.KindOf(err))
	}
}
