// Package randx provides the seeded PRNG sub-streams that make simulation
// runs reproducible.
//
// One root seed fans out into named streams so that components drawing
// randomness do not perturb each other: adding a draw to payload
// generation must not change which event the scheduler picks next. Each
// stream is single-reader by convention; the engine's single-writer loop
// is the only caller for all four required streams.
package randx

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// Required stream names. The engine derives exactly these; tests may
// derive additional ones.
const (
	StreamSchedule     = "schedule"
	StreamGenerator    = "generator"
	StreamSelection    = "selection"
	StreamScenarioInit = "scenario_init"
)

// Streams derives named deterministic sub-streams from a root seed.
type Streams struct {
	seed    int64
	derived map[string]*rand.Rand
}

// New creates a stream set for the given root seed.
func New(seed int64) *Streams {
	return &Streams{seed: seed, derived: make(map[string]*rand.Rand)}
}

// Seed returns the root seed.
func (s *Streams) Seed() int64 {
	return s.seed
}

// Stream returns the sub-stream for name, creating it on first use.
// The same (seed, name) pair always yields the same sequence.
func (s *Streams) Stream(name string) *rand.Rand {
	if r, ok := s.derived[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(deriveSeed(s.seed, name)))
	s.derived[name] = r
	return r
}

// deriveSeed hashes (seed, name) with FNV-1a into a sub-stream seed.
func deriveSeed(seed int64, name string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte(name))
	return int64(h.Sum64())
}

// WeightedIndex samples an index proportionally to weights using r.
// Zero-weight entries are never chosen. Returns -1 when the total weight
// is not positive.
func WeightedIndex(r *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	target := r.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		target -= w
		if target < 0 {
			return i
		}
	}
	// Float accumulation can leave target at exactly 0; fall back to the
	// last positive-weight entry.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}
