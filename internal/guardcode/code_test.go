package guardcode_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"steamguard/internal/guardcode"
)

func secret(t *testing.T, b64 string) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	return raw
}

func TestLoginCode_ReferenceVectors(t *testing.T) {
	shared := secret(t, "c2hhcmVkc2VjcmV0MTIzNDU2Nzg=")

	cases := []struct {
		time int64
		want string
	}{
		{1234567890, "QQQR8"},
		{1634603424, "8VG6C"},
		{3000000000, "F55X7"},
		{0, "GYGPR"},
	}
	for _, c := range cases {
		got, err := guardcode.LoginCode(shared, c.time)
		if err != nil {
			t.Fatalf("LoginCode(%d): %v", c.time, err)
		}
		if got != c.want {
			t.Fatalf("LoginCode(%d) = %q, want %q", c.time, got, c.want)
		}
	}
}

func TestLoginCode_SecondSecret(t *testing.T) {
	shared := secret(t, "zvIayp3JPvtvX/QGcqYCwRA30sQ=")
	got, err := guardcode.LoginCode(shared, 1634603424)
	if err != nil {
		t.Fatalf("LoginCode: %v", err)
	}
	if got != "NT3F2" {
		t.Fatalf("LoginCode = %q, want NT3F2", got)
	}
}

func TestLoginCode_StableWithinPeriod(t *testing.T) {
	shared := secret(t, "c2hhcmVkc2VjcmV0MTIzNDU2Nzg=")

	a, _ := guardcode.LoginCode(shared, 0)
	b, _ := guardcode.LoginCode(shared, 29)
	c, _ := guardcode.LoginCode(shared, 30)
	if a != b {
		t.Fatalf("codes differ inside one period: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("code did not rotate at the period boundary")
	}
}

func TestLoginCode_AlphabetAndLength(t *testing.T) {
	const alphabet = "23456789BCDFGHJKMNPQRTVWXY"

	secrets := [][]byte{
		[]byte{0x01},
		[]byte("k"),
		[]byte("a longer secret of arbitrary byte length ..."),
	}
	for _, s := range secrets {
		for _, tm := range []int64{0, 1, 1 << 20, 1 << 31, 1 << 40} {
			code, err := guardcode.LoginCode(s, tm)
			if err != nil {
				t.Fatalf("LoginCode(%x, %d): %v", s, tm, err)
			}
			if len(code) != guardcode.CodeLength {
				t.Fatalf("code %q has length %d", code, len(code))
			}
			for _, r := range code {
				if !strings.ContainsRune(alphabet, r) {
					t.Fatalf("code %q contains %q outside the alphabet", code, r)
				}
			}
		}
	}
}

func TestLoginCode_EmptySecret(t *testing.T) {
	if _, err := guardcode.LoginCode(nil, 1234567890); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestConfirmationKey_ReferenceVectors(t *testing.T) {
	identity := secret(t, "aWRlbnRpdHlzZWNyZXQwMDAwMDA=")

	cases := map[string]string{
		"conf":    "olhO8S+YLTgVcvUNHv6lAG/rJJQ=",
		"allow":   "mx2SwdxgdkFVu4uGA0Mj//hC2r4=",
		"cancel":  "fDIwMg8EiYq2WrxBsDl6F6dh0yY=",
		"details": "otLdYvv7A+k+8Q8JqkpmBVA033U=",
	}
	for tag, want := range cases {
		got, err := guardcode.ConfirmationKey(identity, tag, 1634603424)
		if err != nil {
			t.Fatalf("ConfirmationKey(%q): %v", tag, err)
		}
		if got != want {
			t.Fatalf("ConfirmationKey(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestConfirmationKey_TagBindsSignature(t *testing.T) {
	identity := secret(t, "aWRlbnRpdHlzZWNyZXQwMDAwMDA=")

	allow, _ := guardcode.ConfirmationKey(identity, "allow", 1634603424)
	cancel, _ := guardcode.ConfirmationKey(identity, "cancel", 1634603424)
	if allow == cancel {
		t.Fatal("signatures for different tags must differ")
	}

	again, _ := guardcode.ConfirmationKey(identity, "allow", 1634603424)
	if allow != again {
		t.Fatal("signature is not deterministic")
	}
}

func TestConfirmationKey_EmptySecret(t *testing.T) {
	if _, err := guardcode.ConfirmationKey(nil, "conf", 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestNewDeviceID_Format(t *testing.T) {
	id := guardcode.NewDeviceID()
	if !strings.HasPrefix(id, "android:") {
		t.Fatalf("device id %q lacks android: prefix", id)
	}
	if id == guardcode.NewDeviceID() {
		t.Fatal("device ids must be unique")
	}
}

func TestAccountFromURI(t *testing.T) {
	uri := "otpauth://totp/Steam:hydrogen?secret=ONUGC4TFMRZWKY3SMV2DCMRTGQ2TMNZY&issuer=Steam"

	acct, err := guardcode.AccountFromURI(uri)
	if err != nil {
		t.Fatalf("AccountFromURI: %v", err)
	}
	if acct.AccountName != "hydrogen" {
		t.Fatalf("account name = %q", acct.AccountName)
	}
	if string(acct.SharedSecret) != "sharedsecret12345678" {
		t.Fatalf("shared secret mismatch: %q", acct.SharedSecret)
	}
	if acct.DeviceID == "" {
		t.Fatal("device id not generated")
	}

	// Secret recovered from the URI must produce the reference code.
	code, err := guardcode.LoginCode(acct.SharedSecret, 1634603424)
	if err != nil {
		t.Fatalf("LoginCode: %v", err)
	}
	if code != "8VG6C" {
		t.Fatalf("code = %q, want 8VG6C", code)
	}
}

func TestAccountFromURI_Invalid(t *testing.T) {
	if _, err := guardcode.AccountFromURI("http://not-otpauth"); err == nil {
		t.Fatal("expected error for non-otpauth uri")
	}
}
