package services

import "time"

// StaleAfter is how long a snapshot stays fresh after receipt.
const StaleAfter = 10 * time.Minute

// IsStale reports whether a snapshot received at receivedAt should be flagged
// at now. A zero receivedAt means nothing was ever received. A receipt time in
// the future counts as fresh.
func IsStale(receivedAt, now time.Time) bool {
	if receivedAt.IsZero() {
		return true
	}
	return now.Sub(receivedAt) > StaleAfter
}
