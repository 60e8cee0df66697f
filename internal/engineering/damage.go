package engineering

import "math"

// Degradation tuning. Strain creeps up on every degradation tick; past the
// bleed threshold it eats into efficiency, and past the failure threshold
// there is a small chance of spontaneous health loss.
const (
	strainCreepMax         = 0.5
	strainBleedThreshold   = 70
	strainFailureThreshold = 90
	strainFailureChance    = 0.01
	cascadeStrain          = 5
	cascadeHealthGate      = 50
)

// ApplyDamage reduces a system's health and recomputes every derived field.
// Crossing into critical damage propagates one hop of containment strain to
// the adjacent system.
func (e *Engine) ApplyDamage(system SystemName, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.applyDamageLocked(system, amount); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) applyDamageLocked(system SystemName, amount float64) error {
	if !validSystem(system) {
		return validationf("unknown system %q", system)
	}
	if math.IsNaN(amount) || amount < 0 {
		return validationf("damage amount must be a non-negative number")
	}

	status := e.systems[system]
	wasCritical := status.CriticalDamage
	status.Health = math.Max(0, status.Health-amount)
	status.recomputeDerived()

	e.log.Info().
		Str("system", string(system)).
		Float64("amount", amount).
		Float64("health", status.Health).
		Str("severity", string(classifySeverity(status.Health))).
		Msg("damage applied")

	if !wasCritical && status.CriticalDamage {
		e.cascadeContainmentLocked(system)
	}
	return nil
}

// cascadeContainmentLocked models structural and power coupling: a critical
// failure strains the one adjacent system, provided that neighbor is still
// healthy enough (health > 50) to be absorbing load. Strain only, one hop.
func (e *Engine) cascadeContainmentLocked(system SystemName) {
	neighbor, ok := cascadeAdjacency[system]
	if !ok {
		return
	}
	status := e.systems[neighbor]
	if status.Health <= cascadeHealthGate {
		return
	}
	status.Strain = clamp(status.Strain+cascadeStrain, 0, 100)
	e.log.Info().
		Str("system", string(system)).
		Str("neighbor", string(neighbor)).
		Float64("strain", status.Strain).
		Msg("cascade containment strain")
}

// RepairSystem restores health directly, bypassing the repair queue. Used by
// GM heal commands; an in-flight repair task on the same system continues
// unaffected. With all set, health is restored to full.
func (e *Engine) RepairSystem(system SystemName, amount float64, all bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.repairSystemLocked(system, amount, all); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) repairSystemLocked(system SystemName, amount float64, all bool) error {
	if !validSystem(system) {
		return validationf("unknown system %q", system)
	}
	if !all && (math.IsNaN(amount) || amount < 0) {
		return validationf("repair amount must be a non-negative number")
	}

	status := e.systems[system]
	if all {
		status.Health = 100
	} else {
		status.Health = math.Min(100, status.Health+amount)
	}
	status.recomputeDerived()

	e.log.Info().
		Str("system", string(system)).
		Bool("full", all).
		Float64("health", status.Health).
		Msg("direct repair applied")
	return nil
}

// TickDegradation applies simulated wear: a small random strain increment on
// every system, efficiency bleed under high strain and a rare spontaneous
// health loss at extreme strain. This is the only failure path that is
// time-driven rather than event-driven. Shut-down systems do not wear.
func (e *Engine) TickDegradation() {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for _, name := range SystemNames {
		status := e.systems[name]
		if status.ShutDown {
			continue
		}
		if status.Strain < 100 {
			status.Strain = clamp(status.Strain+e.rng.Float64()*strainCreepMax, 0, 100)
			changed = true
		}
		if status.Strain > strainBleedThreshold {
			status.Efficiency = clamp(status.Efficiency-(status.Strain-strainBleedThreshold)*0.1, 20, 100)
			changed = true
		}
		if status.Strain > strainFailureThreshold && e.rng.Float64() < strainFailureChance {
			loss := e.rng.Float64() * 2
			status.Health = math.Max(0, status.Health-loss)
			status.recomputeDerived()
			e.log.Warn().
				Str("system", string(name)).
				Float64("loss", loss).
				Float64("health", status.Health).
				Msg("strain-induced failure")
			changed = true
		}
	}
	if changed {
		e.publishLocked()
	}
}
