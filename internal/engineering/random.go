package engineering

import "math/rand"

// Rand is the random source behind skill checks, degradation and calibration.
// Tests supply deterministic sequences to pin down outcome branches.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

type mathRand struct {
	r *rand.Rand
}

func (m mathRand) Float64() float64 { return m.r.Float64() }

// NewRand returns a seeded math/rand source.
func NewRand(seed int64) Rand {
	return mathRand{r: rand.New(rand.NewSource(seed))}
}
