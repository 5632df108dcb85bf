package repositories

import "time"

// utcNow is the default clock. Timestamps are stored in UTC so that sqlite's
// text comparison orders them correctly.
func utcNow() time.Time {
	return time.Now().UTC()
}
