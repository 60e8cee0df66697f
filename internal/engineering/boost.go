package engineering

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// BoostType selects which aspect of a system a boost amplifies.
type BoostType string

const (
	BoostPerformance BoostType = "performance"
	BoostEfficiency  BoostType = "efficiency"
	BoostOutput      BoostType = "output"
)

// SystemBoost is one time-boxed boost. The strain cost is paid once at
// activation; the boost then counts down and expires on its own.
type SystemBoost struct {
	ID            uuid.UUID  `json:"id"`
	System        SystemName `json:"systemName"`
	Type          BoostType  `json:"boostType"`
	Magnitude     int        `json:"magnitude"`
	Duration      int        `json:"duration"` // seconds
	StrainCost    float64    `json:"strainCost"`
	TimeRemaining int        `json:"timeRemaining"`
	AppliedAt     time.Time  `json:"appliedAt"`
}

// BoostEffects aggregates the bonuses of all active boosts on one system.
type BoostEffects struct {
	Performance float64 `json:"performanceBonus"`
	Efficiency  float64 `json:"efficiencyBonus"`
	Output      float64 `json:"outputBonus"`
}

const (
	minBoostMagnitude = 1
	maxBoostMagnitude = 5
)

var boostStrainBase = map[BoostType]float64{
	BoostPerformance: 15,
	BoostEfficiency:  10,
	BoostOutput:      20,
}

// boostDurationBase in seconds; higher magnitude shortens the window.
var boostDurationBase = map[BoostType]float64{
	BoostPerformance: 120,
	BoostEfficiency:  180,
	BoostOutput:      90,
}

var boostBonusPerMagnitude = map[BoostType]float64{
	BoostPerformance: 10,
	BoostEfficiency:  15,
	BoostOutput:      20,
}

func boostStrainCost(system SystemName, boostType BoostType, magnitude int) float64 {
	return math.Round(boostStrainBase[boostType] * complexityFactor[system] * (1 + float64(magnitude-1)*0.5))
}

func boostDuration(boostType BoostType, magnitude int) int {
	return int(math.Round(boostDurationBase[boostType] * (1 - float64(magnitude-1)*0.2)))
}

// CanApplyBoost checks a boost request without mutating anything. The reason
// is empty when the boost is allowed.
func (e *Engine) CanApplyBoost(system SystemName, boostType BoostType, magnitude int) (ok bool, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.checkBoostLocked(system, boostType, magnitude)
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (e *Engine) checkBoostLocked(system SystemName, boostType BoostType, magnitude int) error {
	if !validSystem(system) {
		return validationf("unknown system %q", system)
	}
	if _, ok := boostStrainBase[boostType]; !ok {
		return validationf("unknown boost type %q", boostType)
	}
	if magnitude < minBoostMagnitude || magnitude > maxBoostMagnitude {
		return validationf("magnitude %d outside [%d,%d]", magnitude, minBoostMagnitude, maxBoostMagnitude)
	}
	status := e.systems[system]
	if status.CriticalDamage {
		return constraintf("system %s is critically damaged", system)
	}
	for _, boost := range e.boosts {
		if boost.System == system && boost.Type == boostType {
			return constraintf("%s boost already active on %s", boostType, system)
		}
	}
	if cost := boostStrainCost(system, boostType, magnitude); status.Strain+cost > 100 {
		return constraintf("boost would push %s strain to %.0f", system, status.Strain+cost)
	}
	return nil
}

// ApplyBoost activates a boost, paying its strain cost immediately.
func (e *Engine) ApplyBoost(system SystemName, boostType BoostType, magnitude int) (*SystemBoost, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	boost, err := e.applyBoostLocked(system, boostType, magnitude)
	if err != nil {
		return nil, err
	}
	e.publishLocked()
	return boost, nil
}

func (e *Engine) applyBoostLocked(system SystemName, boostType BoostType, magnitude int) (*SystemBoost, error) {
	if err := e.checkBoostLocked(system, boostType, magnitude); err != nil {
		return nil, err
	}

	cost := boostStrainCost(system, boostType, magnitude)
	status := e.systems[system]
	status.Strain = clamp(status.Strain+cost, 0, 100)

	boost := &SystemBoost{
		ID:         uuid.New(),
		System:     system,
		Type:       boostType,
		Magnitude:  magnitude,
		Duration:   boostDuration(boostType, magnitude),
		StrainCost: cost,
		AppliedAt:  e.now(),
	}
	boost.TimeRemaining = boost.Duration
	e.boosts = append(e.boosts, boost)

	e.log.Info().
		Str("system", string(system)).
		Str("type", string(boostType)).
		Int("magnitude", magnitude).
		Float64("strainCost", cost).
		Int("duration", boost.Duration).
		Msg("boost applied")
	return boost, nil
}

// CancelBoost removes an active boost immediately. The strain already paid is
// not refunded.
func (e *Engine) CancelBoost(boostID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.cancelBoostLocked(boostID); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) cancelBoostLocked(boostID uuid.UUID) error {
	for i, boost := range e.boosts {
		if boost.ID == boostID {
			e.boosts = append(e.boosts[:i], e.boosts[i+1:]...)
			e.log.Info().Str("boost", boostID.String()).Str("system", string(boost.System)).Msg("boost cancelled")
			return nil
		}
	}
	return validationf("no active boost %s", boostID)
}

// TickBoosts decrements every active boost by one second and expires those
// that reach zero.
func (e *Engine) TickBoosts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.boosts) == 0 {
		return
	}

	active := e.boosts[:0]
	for _, boost := range e.boosts {
		boost.TimeRemaining--
		if boost.TimeRemaining <= 0 {
			e.log.Info().
				Str("boost", boost.ID.String()).
				Str("system", string(boost.System)).
				Str("type", string(boost.Type)).
				Msg("boost expired")
			continue
		}
		active = append(active, boost)
	}
	e.boosts = active
	e.publishLocked()
}

// Effects sums the bonuses of every active boost on a system. Recomputed on
// demand, never stored.
func (e *Engine) Effects(system SystemName) BoostEffects {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectsLocked(system)
}

func (e *Engine) effectsLocked(system SystemName) BoostEffects {
	var effects BoostEffects
	for _, boost := range e.boosts {
		if boost.System != system {
			continue
		}
		bonus := float64(boost.Magnitude) * boostBonusPerMagnitude[boost.Type]
		switch boost.Type {
		case BoostPerformance:
			effects.Performance += bonus
		case BoostEfficiency:
			effects.Efficiency += bonus
		case BoostOutput:
			effects.Output += bonus
		}
	}
	return effects
}
