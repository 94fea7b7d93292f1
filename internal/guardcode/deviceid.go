package guardcode

import "github.com/google/uuid"

// NewDeviceID generates the stable pseudo-random device identifier sent
// with every authenticated request, in the format the Android app uses.
// Generate once per enrollment and persist it with the account.
func NewDeviceID() string {
	return "android:" + uuid.NewString()
}
