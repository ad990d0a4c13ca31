package randx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreams_SameSeedSameSequence(t *testing.T) {
	a := New(42).Stream(StreamSchedule)
	b := New(42).Stream(StreamSchedule)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Int63(), b.Int63(), "draw %d diverged", i)
	}
}

func TestStreams_NamedStreamsAreIndependent(t *testing.T) {
	s := New(42)
	schedule := s.Stream(StreamSchedule)
	generator := s.Stream(StreamGenerator)

	// Draining one stream must not affect the other.
	fresh := New(42)
	for i := 0; i < 50; i++ {
		schedule.Int63()
	}
	got := generator.Int63()
	want := fresh.Stream(StreamGenerator).Int63()
	assert.Equal(t, want, got)
}

func TestStreams_DifferentSeedsDiverge(t *testing.T) {
	a := New(1).Stream(StreamSelection)
	b := New(2).Stream(StreamSelection)
	same := true
	for i := 0; i < 10; i++ {
		if a.Int63() != b.Int63() {
			same = false
			break
		}
	}
	assert.False(t, same)
}

func TestWeightedIndex_RespectsWeights(t *testing.T) {
	r := New(7).Stream("test")
	weights := []float64{0.8, 0.2}
	counts := make([]int, 2)
	const n = 10000
	for i := 0; i < n; i++ {
		idx := WeightedIndex(r, weights)
		require.GreaterOrEqual(t, idx, 0)
		counts[idx]++
	}
	freq := float64(counts[0]) / n
	assert.InDelta(t, 0.8, freq, 0.02)
}

func TestWeightedIndex_ZeroWeightNeverChosen(t *testing.T) {
	r := New(7).Stream("test")
	weights := []float64{0, 1, 0}
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, WeightedIndex(r, weights))
	}
}

func TestWeightedIndex_NoPositiveWeight(t *testing.T) {
	r := New(7).Stream("test")
	assert.Equal(t, -1, WeightedIndex(r, []float64{0, 0}))
	assert.Equal(t, -1, WeightedIndex(r, nil))
}
