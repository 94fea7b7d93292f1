// Package memzero wipes key material once it is no longer needed.
package memzero

import "crypto/subtle"

// Zero overwrites b in place so secrets do not linger after use. The
// constant-time copy keeps the compiler from eliding the wipe.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}
