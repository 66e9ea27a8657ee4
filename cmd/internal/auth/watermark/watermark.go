// Package watermark computes the eviction cutoff that keeps a user's
// session (or connect-request) count at or below a limit.
package watermark

import "time"

// Cutoff returns the instant below which a user's records should be deleted.
//
// expiries must be sorted newest first. If there are at most limit entries,
// ok is false and nothing should be deleted. Otherwise the cutoff is the
// limit-th newest expiry, raised to now so already-expired rows go too.
// Rows sharing the boundary expiry survive, so ties can leave the user
// briefly above limit.
func Cutoff(expiries []time.Time, limit int, now time.Time) (cutoff time.Time, ok bool) {
	if limit <= 0 || len(expiries) <= limit {
		return time.Time{}, false
	}
	target := expiries[limit-1]
	if now.After(target) {
		target = now
	}
	return target, true
}
