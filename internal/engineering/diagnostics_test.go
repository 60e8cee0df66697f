package engineering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartScan(t *testing.T) {
	t.Run("defaults to a basic scan", func(t *testing.T) {
		e := newTestEngine()
		job, err := e.StartScan(Weapons, "")
		require.NoError(t, err)
		assert.Equal(t, ScanBasic, job.Depth)
		assert.Equal(t, 15, job.Duration)
	})

	t.Run("depth selects the duration", func(t *testing.T) {
		e := newTestEngine()
		job, err := e.StartScan(Weapons, ScanDeep)
		require.NoError(t, err)
		assert.Equal(t, 45, job.Duration)

		job, err = e.StartScan(Shields, ScanComprehensive)
		require.NoError(t, err)
		assert.Equal(t, 90, job.Duration)
	})

	t.Run("rejects unknown system and depth", func(t *testing.T) {
		e := newTestEngine()
		_, err := e.StartScan("warpDrive", ScanBasic)
		assert.True(t, IsValidation(err))
		_, err = e.StartScan(Weapons, "forensic")
		assert.True(t, IsValidation(err))
	})

	t.Run("one scan per system at a time", func(t *testing.T) {
		e := newTestEngine()
		_, err := e.StartScan(Weapons, ScanBasic)
		require.NoError(t, err)
		_, err = e.StartScan(Weapons, ScanDeep)
		assert.True(t, IsResourceConstraint(err))
	})
}

func TestTickScans(t *testing.T) {
	t.Run("basic scan completes into a report", func(t *testing.T) {
		e := newTestEngine()
		_, err := e.StartScan(Weapons, ScanBasic)
		require.NoError(t, err)

		for i := 0; i < 15; i++ {
			e.TickScans()
		}
		assert.Empty(t, e.Snapshot().ActiveScans)

		report, ok := e.LastReport(Weapons)
		require.True(t, ok)
		assert.Equal(t, ScanBasic, report.Depth)
		assert.Equal(t, 100.0, report.Health)
		assert.Equal(t, "optimal", report.OverallStatus)
		assert.Nil(t, report.Components)
	})

	t.Run("deep scan adds components and recommendations", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 40)) // health 60
		_, err := e.StartScan(Weapons, ScanDeep)
		require.NoError(t, err)

		for i := 0; i < 45; i++ {
			e.TickScans()
		}
		report, ok := e.LastReport(Weapons)
		require.True(t, ok)
		assert.Equal(t, "degraded", report.OverallStatus)
		assert.Len(t, report.Components, 3)
		assert.Contains(t, report.Components, "powerCoupling")
		assert.NotEmpty(t, report.Recommendations)
		assert.Empty(t, report.Predictions)
	})

	t.Run("comprehensive scan predicts failures", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 60)) // health 40
		setStrain(e, Weapons, 85)
		_, err := e.StartScan(Weapons, ScanComprehensive)
		require.NoError(t, err)

		for i := 0; i < 90; i++ {
			e.TickScans()
		}
		report, ok := e.LastReport(Weapons)
		require.True(t, ok)
		assert.NotEmpty(t, report.Predictions)
		assert.Equal(t, "within 1 hour", report.NextMaintenance)
	})
}

func TestOverallStatus(t *testing.T) {
	assert.Equal(t, "optimal", overallStatus(81))
	assert.Equal(t, "degraded", overallStatus(80))
	assert.Equal(t, "degraded", overallStatus(51))
	assert.Equal(t, "critical", overallStatus(50))
}

func TestMaintenanceWindow(t *testing.T) {
	assert.Equal(t, "within 72 hours", maintenanceWindow(&SystemStatus{Health: 100, Strain: 10}))
	assert.Equal(t, "within 8 hours", maintenanceWindow(&SystemStatus{Health: 100, Strain: 50}))
	assert.Equal(t, "within 1 hour", maintenanceWindow(&SystemStatus{Health: 100, Strain: 75}))
	assert.Equal(t, "within 1 hour", maintenanceWindow(&SystemStatus{Health: 70, Damaged: true}))
}

func TestHistory(t *testing.T) {
	t.Run("samples accumulate per system", func(t *testing.T) {
		e := newTestEngine()
		e.TickHistory()
		e.TickHistory()
		e.TickHistory()
		assert.Len(t, e.History(Weapons), 3)
	})

	t.Run("window is bounded", func(t *testing.T) {
		e := newTestEngine()
		for i := 0; i < historyCap+10; i++ {
			e.TickHistory()
		}
		assert.Len(t, e.History(Weapons), historyCap)
	})
}

func TestHealthTrend(t *testing.T) {
	t.Run("declining after damage", func(t *testing.T) {
		e := newTestEngine()
		e.TickHistory()
		e.TickHistory()
		require.NoError(t, e.ApplyDamage(Weapons, 30))
		e.TickHistory()
		e.TickHistory()
		assert.Equal(t, TrendDeclining, e.HealthTrend(Weapons))
	})

	t.Run("trend of raw windows", func(t *testing.T) {
		assert.Equal(t, TrendStable, trendOf(nil))
		assert.Equal(t, TrendStable, trendOf([]float64{50}))
		assert.Equal(t, TrendStable, trendOf([]float64{50, 51}))
		assert.Equal(t, TrendImproving, trendOf([]float64{50, 50, 60, 60}))
		assert.Equal(t, TrendDeclining, trendOf([]float64{60, 60, 50, 50}))
	})
}

func TestTickAlerts(t *testing.T) {
	t.Run("raises threshold alerts", func(t *testing.T) {
		e := newTestEngine()
		setStrain(e, Engines, 90)
		require.NoError(t, e.ApplyDamage(Shields, 70)) // health 30
		setEfficiency(e, Weapons, 50)                  // undamaged, low efficiency

		e.TickAlerts()
		alerts := e.Alerts()
		require.Len(t, alerts, 3)

		byType := map[string]PredictiveAlert{}
		for _, a := range alerts {
			byType[a.Type] = a
		}
		assert.Equal(t, Engines, byType["strain_critical"].System)
		assert.Equal(t, "high", byType["strain_critical"].Severity)
		assert.Equal(t, Shields, byType["health_low"].System)
		assert.Equal(t, "medium", byType["health_low"].Severity)
		assert.Equal(t, Weapons, byType["efficiency_degraded"].System)
		assert.Equal(t, "low", byType["efficiency_degraded"].Severity)
	})

	t.Run("unexpired alerts suppress duplicates", func(t *testing.T) {
		e := newTestEngine()
		setStrain(e, Engines, 90)
		e.TickAlerts()
		e.TickAlerts()
		assert.Len(t, e.Alerts(), 1)
	})

	t.Run("alerts expire after their TTL", func(t *testing.T) {
		clk := newTestClock()
		e := NewEngine(WithRand(&stubRand{}), WithClock(clk.Now))
		setStrain(e, Engines, 90)
		e.TickAlerts()
		require.Len(t, e.Alerts(), 1)

		setStrain(e, Engines, 0)
		clk.Advance(6 * time.Minute)
		e.TickAlerts()
		assert.Empty(t, e.Alerts())
	})
}

func TestCalibrate(t *testing.T) {
	t.Run("efficiency calibration raises efficiency", func(t *testing.T) {
		e := newTestEngine() // rng 0.5
		setEfficiency(e, Weapons, 70)
		require.NoError(t, e.Calibrate(Weapons, CalibrateEfficiency))

		s, _ := e.System(Weapons)
		assert.InDelta(t, 80.0, s.Efficiency, 0.001) // +5 + 0.5*10
	})

	t.Run("power calibration sheds strain", func(t *testing.T) {
		e := newTestEngine()
		setStrain(e, Weapons, 50)
		require.NoError(t, e.Calibrate(Weapons, CalibratePower))

		s, _ := e.System(Weapons)
		assert.InDelta(t, 37.5, s.Strain, 0.001) // -(10 + 0.5*5)
	})

	t.Run("thermal calibration does a little of both", func(t *testing.T) {
		e := newTestEngine()
		setStrain(e, Weapons, 50)
		setEfficiency(e, Weapons, 90)
		require.NoError(t, e.Calibrate(Weapons, CalibrateThermal))

		s, _ := e.System(Weapons)
		assert.Equal(t, 45.0, s.Strain)
		assert.Equal(t, 93.0, s.Efficiency)
	})

	t.Run("critically damaged systems cannot hold a calibration", func(t *testing.T) {
		e := newTestEngine()
		require.NoError(t, e.ApplyDamage(Weapons, 75))
		assert.True(t, IsResourceConstraint(e.Calibrate(Weapons, CalibrateEfficiency)))
	})

	t.Run("rejects unknown aspect", func(t *testing.T) {
		e := newTestEngine()
		assert.True(t, IsValidation(e.Calibrate(Weapons, "alignment")))
	})
}
