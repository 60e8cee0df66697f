package engineering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoostCosts(t *testing.T) {
	t.Run("strain cost scales with complexity and magnitude", func(t *testing.T) {
		assert.Equal(t, 15.0, boostStrainCost(Weapons, BoostPerformance, 1))
		assert.Equal(t, 33.0, boostStrainCost(Engines, BoostPerformance, 3))
		assert.Equal(t, 44.0, boostStrainCost(Engines, BoostOutput, 3))
	})

	t.Run("duration shrinks with magnitude", func(t *testing.T) {
		assert.Equal(t, 120, boostDuration(BoostPerformance, 1))
		assert.Equal(t, 24, boostDuration(BoostPerformance, 5))
		assert.Equal(t, 144, boostDuration(BoostEfficiency, 2))
		assert.Equal(t, 36, boostDuration(BoostOutput, 4))
	})
}

func TestApplyBoost(t *testing.T) {
	t.Run("pays strain up front and tracks the window", func(t *testing.T) {
		e := newTestEngine()
		boost, err := e.ApplyBoost(Weapons, BoostPerformance, 2)
		require.NoError(t, err)
		assert.Equal(t, 23.0, boost.StrainCost)
		assert.Equal(t, 96, boost.Duration)
		assert.Equal(t, 96, boost.TimeRemaining)

		s, _ := e.System(Weapons)
		assert.Equal(t, 23.0, s.Strain)

		effects := e.Effects(Weapons)
		assert.Equal(t, 20.0, effects.Performance)
	})

	t.Run("rejects bad magnitude, system and type", func(t *testing.T) {
		e := newTestEngine()
		_, err := e.ApplyBoost(Weapons, BoostPerformance, 0)
		assert.True(t, IsValidation(err))
		_, err = e.ApplyBoost(Weapons, BoostPerformance, 6)
		assert.True(t, IsValidation(err))
		_, err = e.ApplyBoost("warpDrive", BoostPerformance, 1)
		assert.True(t, IsValidation(err))
		_, err = e.ApplyBoost(Weapons, "overdrive", 1)
		assert.True(t, IsValidation(err))
	})

	t.Run("rejects a critically damaged system", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 75))
		_, err := e.ApplyBoost(Weapons, BoostPerformance, 1)
		assert.True(t, IsResourceConstraint(err))
	})

	t.Run("one boost per system and type", func(t *testing.T) {
		e := newTestEngine()
		_, err := e.ApplyBoost(Weapons, BoostPerformance, 1)
		require.NoError(t, err)
		_, err = e.ApplyBoost(Weapons, BoostPerformance, 2)
		assert.True(t, IsResourceConstraint(err))

		// A different type on the same system stacks.
		_, err = e.ApplyBoost(Weapons, BoostEfficiency, 1)
		require.NoError(t, err)
		effects := e.Effects(Weapons)
		assert.Equal(t, 10.0, effects.Performance)
		assert.Equal(t, 15.0, effects.Efficiency)
	})

	t.Run("rejects when strain headroom is gone", func(t *testing.T) {
		e := newTestEngine()
		setStrain(e, Engines, 90)
		_, err := e.ApplyBoost(Engines, BoostPerformance, 3)
		assert.True(t, IsResourceConstraint(err))

		ok, reason := e.CanApplyBoost(Engines, BoostPerformance, 3)
		assert.False(t, ok)
		assert.NotEmpty(t, reason)
	})
}

func TestCancelBoost(t *testing.T) {
	e := newTestEngine()
	boost, err := e.ApplyBoost(Weapons, BoostPerformance, 1)
	require.NoError(t, err)

	require.NoError(t, e.CancelBoost(boost.ID))
	assert.Empty(t, e.Snapshot().ActiveBoosts)

	// Strain already paid stays.
	s, _ := e.System(Weapons)
	assert.Equal(t, 15.0, s.Strain)

	assert.True(t, IsValidation(e.CancelBoost(uuid.New())))
}

func TestTickBoosts(t *testing.T) {
	e := newTestEngine()
	boost, err := e.ApplyBoost(Weapons, BoostPerformance, 5) // 24s window
	require.NoError(t, err)
	require.Equal(t, 24, boost.Duration)

	for i := 0; i < 23; i++ {
		e.TickBoosts()
	}
	snap := e.Snapshot()
	require.Len(t, snap.ActiveBoosts, 1)
	assert.Equal(t, 1, snap.ActiveBoosts[0].TimeRemaining)

	e.TickBoosts()
	assert.Empty(t, e.Snapshot().ActiveBoosts)
	assert.Equal(t, BoostEffects{}, e.Effects(Weapons))
}
