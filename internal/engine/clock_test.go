package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_Advance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start, 0)

	assert.Equal(t, start, c.Now())
	c.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), c.Now())

	// Negative deltas never move the clock backward.
	c.Advance(-time.Hour)
	assert.Equal(t, start.Add(5*time.Second), c.Now())
}

func TestClock_MultiplierScalesDeltas(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start, 60)

	c.Advance(time.Second)
	assert.Equal(t, start.Add(time.Minute), c.Now())
}
