package engineering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySeverity(t *testing.T) {
	cases := []struct {
		health float64
		want   Severity
	}{
		{100, SeverityNone},
		{80, SeverityNone},
		{79.9, SeverityMinor},
		{60, SeverityMinor},
		{59.9, SeverityMajor},
		{30, SeverityMajor},
		{29.9, SeverityCritical},
		{0, SeverityCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifySeverity(tc.health), "health %.1f", tc.health)
	}
}

func TestApplyDamage(t *testing.T) {
	t.Run("recomputes derived fields", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 30))

		s, ok := e.System(Weapons)
		require.True(t, ok)
		assert.Equal(t, 70.0, s.Health)
		assert.Equal(t, 76.0, s.Efficiency)
		assert.True(t, s.Damaged)
		assert.False(t, s.CriticalDamage)
	})

	t.Run("health floors at zero", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 500))
		s, _ := e.System(Weapons)
		assert.Equal(t, 0.0, s.Health)
		assert.Equal(t, 20.0, s.Efficiency)
		assert.True(t, s.CriticalDamage)
	})

	t.Run("rejects unknown system and bad amounts", func(t *testing.T) {
		e := newTestEngine()
		assert.True(t, IsValidation(e.ApplyDamage("warpDrive", 10)))
		assert.True(t, IsValidation(e.ApplyDamage(Weapons, -10)))
	})
}

func TestCascadeContainment(t *testing.T) {
	t.Run("critical failure strains the adjacent system", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Shields, 75)) // health 25, newly critical

		engines, _ := e.System(Engines)
		assert.Equal(t, 5.0, engines.Strain)
	})

	t.Run("no strain when the neighbor is already struggling", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Engines, 55)) // health 45, below the gate
		require.NoError(t, e.ApplyDamage(Shields, 75))

		engines, _ := e.System(Engines)
		assert.Equal(t, 0.0, engines.Strain)
	})

	t.Run("fires only on the critical transition", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Shields, 75))
		require.NoError(t, e.ApplyDamage(Shields, 10)) // already critical

		engines, _ := e.System(Engines)
		assert.Equal(t, 5.0, engines.Strain)
	})

	t.Run("strain clamps at 100", func(t *testing.T) {
		e := newTestEngine()
		setStrain(e, Engines, 98)
		require.NoError(t, e.ApplyDamage(Shields, 75))

		engines, _ := e.System(Engines)
		assert.Equal(t, 100.0, engines.Strain)
	})
}

func TestRepairSystemDirect(t *testing.T) {
	t.Run("restores health by amount", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 50))
		require.NoError(t, e.RepairSystem(Weapons, 20, false))

		s, _ := e.System(Weapons)
		assert.Equal(t, 70.0, s.Health)
		assert.Equal(t, 76.0, s.Efficiency)
		assert.True(t, s.Damaged)
	})

	t.Run("all restores full health", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 90))
		require.NoError(t, e.RepairSystem(Weapons, 0, true))

		s, _ := e.System(Weapons)
		assert.Equal(t, 100.0, s.Health)
		assert.False(t, s.Damaged)
	})

	t.Run("health caps at 100", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 10))
		require.NoError(t, e.RepairSystem(Weapons, 50, false))

		s, _ := e.System(Weapons)
		assert.Equal(t, 100.0, s.Health)
	})

	t.Run("leaves an in-flight repair task untouched", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 30))
		task, err := e.EnqueueRepair(Weapons, 2)
		require.NoError(t, err)
		require.NotNil(t, task)

		require.NoError(t, e.RepairSystem(Weapons, 0, true))
		assert.Len(t, e.RepairQueue(), 1)
	})
}

func TestTickDegradation(t *testing.T) {
	t.Run("strain creeps on every online system", func(t *testing.T) {
		e := newTestEngine(WithRand(&stubRand{vals: []float64{0.4}}))
		e.TickDegradation()

		for _, name := range SystemNames {
			s, _ := e.System(name)
			assert.InDelta(t, 0.2, s.Strain, 0.001, "system %s", name)
		}
	})

	t.Run("high strain bleeds efficiency", func(t *testing.T) {
		e := newTestEngine(WithRand(&stubRand{vals: []float64{0.4}}))
		setStrain(e, Engines, 80)
		e.TickDegradation()

		engines, _ := e.System(Engines)
		assert.InDelta(t, 80.2, engines.Strain, 0.001)
		assert.InDelta(t, 98.98, engines.Efficiency, 0.001)
	})

	t.Run("extreme strain can cost health", func(t *testing.T) {
		// Draw order: weapons creep, shields creep, engines creep, engines
		// failure chance, engines loss, then the remaining three creeps.
		rng := &stubRand{vals: []float64{0.4, 0.4, 0.4, 0.005, 0.9, 0.4, 0.4, 0.4}}
		e := newTestEngine(WithRand(rng))
		setStrain(e, Engines, 95)
		e.TickDegradation()

		engines, _ := e.System(Engines)
		assert.InDelta(t, 98.2, engines.Health, 0.001)
	})

	t.Run("shut-down systems do not wear", func(t *testing.T) {
		e := newTestEngine(WithRand(&stubRand{vals: []float64{0.4}}))
		require.NoError(t, e.EmergencyShutdown(Engines))
		e.TickDegradation()

		engines, _ := e.System(Engines)
		assert.Equal(t, 0.0, engines.Strain)
		assert.Equal(t, 0.0, engines.Efficiency)
	})
}
