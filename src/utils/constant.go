package utils

import "time"

// -----------------------------------------------------------------------------

// RetentionCutoff returns the instant before which persisted data expires
func RetentionCutoff(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, -days)
}
