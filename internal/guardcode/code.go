package guardcode

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
)

// codeAlphabet is Steam's own symbol set: digits and letters with the
// visually ambiguous ones removed. It is not Base32.
const codeAlphabet = "23456789BCDFGHJKMNPQRTVWXY"

const (
	// CodeLength is the length of a login code.
	CodeLength = 5
	// CodePeriod is the code rotation interval in seconds.
	CodePeriod = 30
	// maxTagLen caps the tag bytes bound into a confirmation signature.
	maxTagLen = 32
)

var errEmptySecret = errors.New("empty secret")

// LoginCode derives the 5-character login code for serverTime (Unix
// seconds) from the account's shared secret. Identical inputs always
// yield identical codes.
func LoginCode(sharedSecret []byte, serverTime int64) (string, error) {
	if len(sharedSecret) == 0 {
		return "", errEmptySecret
	}

	var step [8]byte
	binary.BigEndian.PutUint64(step[:], uint64(serverTime/CodePeriod))

	mac := hmac.New(sha1.New, sharedSecret)
	mac.Write(step[:])
	sum := mac.Sum(nil)

	// RFC 4226 dynamic truncation: the low nibble of the last byte picks
	// a 4-byte window, sign bit masked off.
	start := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[start:start+4]) & 0x7fffffff

	out := make([]byte, CodeLength)
	for i := range out {
		out[i] = codeAlphabet[code%uint32(len(codeAlphabet))]
		code /= uint32(len(codeAlphabet))
	}
	return string(out), nil
}

// ConfirmationKey signs a confirmation request: HMAC-SHA1 keyed by the
// identity secret over the 8-byte big-endian server time followed by the
// raw tag bytes, base64 for transport. The tag names the operation
// ("conf", "details", "allow", "cancel") so a captured signature cannot
// be replayed for a different action.
func ConfirmationKey(identitySecret []byte, tag string, serverTime int64) (string, error) {
	if len(identitySecret) == 0 {
		return "", errEmptySecret
	}
	if len(tag) > maxTagLen {
		tag = tag[:maxTagLen]
	}

	msg := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(msg, uint64(serverTime))
	msg = append(msg, tag...)

	mac := hmac.New(sha1.New, identitySecret)
	mac.Write(msg)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
