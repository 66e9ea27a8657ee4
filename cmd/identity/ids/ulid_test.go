package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_SortsByTime(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := New(t0)
	b := New(t0.Add(time.Second))

	assert.Len(t, a, 26)
	assert.True(t, Valid(a))
	assert.Less(t, a, b)
}

func TestValid_RejectsGarbage(t *testing.T) {
	assert.False(t, Valid("not-a-ulid"))
	assert.False(t, Valid(""))
}
