package engineering

import (
	"time"
)

// stubRand replays a fixed sequence of rolls, cycling when exhausted.
type stubRand struct {
	vals []float64
	i    int
}

func (r *stubRand) Float64() float64 {
	if len(r.vals) == 0 {
		return 0.5
	}
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

// testClock is a manually advanced time source.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithRand(&stubRand{vals: []float64{0.5}}),
		WithClock(newTestClock().Now),
	}
	return NewEngine(append(base, opts...)...)
}

// setStrain reaches into the registry for scenarios that need an exact strain
// level without replaying the boosts that would produce it.
func setStrain(e *Engine, system SystemName, strain float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.systems[system].Strain = strain
}

func setEfficiency(e *Engine, system SystemName, efficiency float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.systems[system].Efficiency = efficiency
}
