// Package ids mints request identifiers.
package ids

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID string for now. ULIDs sort by creation time, which keeps
// request ids greppable in chronological order.
func New(now time.Time) string {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
