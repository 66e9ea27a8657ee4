package watermark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return now.Add(time.Duration(n) * time.Hour) }

	cases := []struct {
		name     string
		expiries []time.Time
		limit    int
		want     time.Time
		ok       bool
	}{
		{name: "under limit", expiries: []time.Time{h(3), h(2)}, limit: 3},
		{name: "at limit", expiries: []time.Time{h(3), h(2), h(1)}, limit: 3},
		{name: "one over", expiries: []time.Time{h(4), h(3), h(2), h(1)}, limit: 3, want: h(2), ok: true},
		{name: "boundary in the past", expiries: []time.Time{h(1), h(-1), h(-2)}, limit: 2, want: now, ok: true},
		{name: "tie at boundary", expiries: []time.Time{h(2), h(2), h(2)}, limit: 2, want: h(2), ok: true},
		{name: "non-positive max", expiries: []time.Time{h(1)}, limit: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Cutoff(tc.expiries, tc.limit, now)
			assert.Equal(t, tc.ok, ok)
			assert.True(t, tc.want.Equal(got), "got %v want %v", got, tc.want)
		})
	}
}
