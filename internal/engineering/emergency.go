package engineering

import (
	"fmt"
	"math"
)

// EmergencyLevel summarizes ship condition for the status board.
type EmergencyLevel string

const (
	LevelGreen  EmergencyLevel = "green"
	LevelYellow EmergencyLevel = "yellow"
	LevelRed    EmergencyLevel = "red"
)

// EmergencyStatus is the condition summary returned by Status and embedded in
// every snapshot.
type EmergencyStatus struct {
	Level           EmergencyLevel `json:"level"`
	CriticalSystems []SystemName   `json:"criticalSystems"`
	Warnings        []string       `json:"warnings"`
}

const (
	lifeSupportPriorityCap   = 40
	lifeSupportPriorityShare = 0.4
	emergencyRepairDroids    = 2
)

// ToggleEmergencyPower flips the emergency power bonus. Allocations are not
// touched: dropping emergency power can leave a transient overallocation that
// shows up as a warning rather than being auto-corrected.
func (e *Engine) ToggleEmergencyPower() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toggleEmergencyPowerLocked()
	e.publishLocked()
}

func (e *Engine) toggleEmergencyPowerLocked() {
	e.emergencyPower = !e.emergencyPower
	e.log.Info().
		Bool("emergencyPower", e.emergencyPower).
		Float64("totalPower", e.availablePowerLocked()).
		Msg("emergency power toggled")
}

// ToggleLifeSupportPriority flips the life-support priority flag. Turning it
// on reallocates power: life support gets min(40, 40% of available) and the
// remainder is split evenly across the other systems.
func (e *Engine) ToggleLifeSupportPriority() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toggleLifeSupportPriorityLocked()
	e.publishLocked()
}

func (e *Engine) toggleLifeSupportPriorityLocked() {
	e.lifeSupportPriority = !e.lifeSupportPriority
	if !e.lifeSupportPriority {
		e.log.Info().Msg("life support priority deactivated")
		return
	}

	available := e.availablePowerLocked()
	lsShare := math.Min(lifeSupportPriorityCap, available*lifeSupportPriorityShare)

	others := make([]SystemName, 0, len(SystemNames)-1)
	for _, name := range SystemNames {
		if name != LifeSupport && !e.systems[name].ShutDown {
			others = append(others, name)
		}
	}
	var share float64
	if len(others) > 0 {
		share = (available - lsShare) / float64(len(others))
	}

	// Emergency reallocation writes the map directly: this is the one path
	// allowed to rebalance without per-allocation validation.
	for _, name := range SystemNames {
		e.allocations[name] = 0
	}
	e.allocations[LifeSupport] = lsShare
	for _, name := range others {
		e.allocations[name] = share
	}

	e.log.Info().
		Float64("lifeSupport", lsShare).
		Float64("perSystem", share).
		Msg("life support priority reallocation")
}

// EmergencyShutdown takes a system offline: allocation, efficiency and strain
// all drop to zero and the shutdown flag is set. An offline system does not
// strain and cannot receive power until brought back.
func (e *Engine) EmergencyShutdown(system SystemName) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.emergencyShutdownLocked(system); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) emergencyShutdownLocked(system SystemName) error {
	if !validSystem(system) {
		return validationf("unknown system %q", system)
	}
	status := e.systems[system]
	status.ShutDown = true
	status.Efficiency = 0
	status.Strain = 0
	e.allocations[system] = 0

	e.log.Warn().Str("system", string(system)).Msg("emergency shutdown")
	return nil
}

// ActivateProtocols runs the bundled emergency response: emergency power on,
// life-support priority on, and a jury-rigged two-droid repair for every
// critically damaged system.
func (e *Engine) ActivateProtocols() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activateProtocolsLocked()
	e.publishLocked()
}

func (e *Engine) activateProtocolsLocked() {
	if !e.emergencyPower {
		e.toggleEmergencyPowerLocked()
	}
	if !e.lifeSupportPriority {
		e.toggleLifeSupportPriorityLocked()
	}
	for _, name := range SystemNames {
		if e.systems[name].CriticalDamage {
			e.emergencyRepairLocked(name)
		}
	}
	e.log.Warn().Msg("emergency protocols activated")
}

// DeactivateProcedures stands down: emergency power and life-support priority
// are switched off and shut-down systems come back online with efficiency
// re-derived from their health.
func (e *Engine) DeactivateProcedures() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deactivateProceduresLocked()
	e.publishLocked()
}

func (e *Engine) deactivateProceduresLocked() {
	e.emergencyPower = false
	e.lifeSupportPriority = false
	for _, name := range SystemNames {
		status := e.systems[name]
		if status.ShutDown {
			status.ShutDown = false
			status.recomputeDerived()
		}
	}
	e.log.Info().Msg("emergency procedures deactivated")
}

// EmergencyRepair fast-tracks a repair on one system. An existing task is
// converted in place to jury-rigged at 30% of its remaining time requirement;
// otherwise a new jury-rigged two-droid task is created.
func (e *Engine) EmergencyRepair(system SystemName) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !validSystem(system) {
		return validationf("unknown system %q", system)
	}
	e.emergencyRepairLocked(system)
	e.publishLocked()
	return nil
}

func (e *Engine) emergencyRepairLocked(system SystemName) {
	if task := e.taskForSystemLocked(system); task != nil {
		task.JuryRigged = true
		task.TimeRequired = juryRigTime(task.TimeRequired)
		e.log.Info().
			Str("task", task.ID.String()).
			Str("system", string(system)).
			Int("timeRequired", task.TimeRequired).
			Msg("repair task converted to jury-rig")
		return
	}

	damage := classifySeverity(e.systems[system].Health)
	if damage == SeverityNone {
		return
	}
	// The emergency path still respects the droid pool: take two droids if
	// the pool covers it, one if it is tight, none only when fully drained.
	headroom := e.availableDroids - e.assignedDroidsLocked()
	droids := emergencyRepairDroids
	if headroom < droids {
		droids = headroom
	}
	if droids < minDroidsPerTask {
		e.log.Warn().Str("system", string(system)).Msg("no droids free for emergency repair")
		return
	}
	if _, err := e.enqueueLocked(system, damage, droids, true); err != nil {
		e.log.Warn().Str("system", string(system)).Err(err).Msg("emergency repair not queued")
	}
}

// Status grades overall ship condition: red when any system is critically
// damaged, yellow when more than two systems are damaged or more than one is
// under heavy strain, green otherwise. Warnings list high-strain systems and
// any power overallocation.
func (e *Engine) Status() EmergencyStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() EmergencyStatus {
	status := EmergencyStatus{Level: LevelGreen, CriticalSystems: []SystemName{}, Warnings: []string{}}

	var damaged, strained int
	for _, name := range SystemNames {
		s := e.systems[name]
		if s.CriticalDamage {
			status.CriticalSystems = append(status.CriticalSystems, name)
		}
		if s.Damaged {
			damaged++
		}
		if s.Strain > 80 {
			strained++
			status.Warnings = append(status.Warnings, fmt.Sprintf("%s under high strain (%.0f%%)", name, s.Strain))
		}
	}

	switch {
	case len(status.CriticalSystems) > 0:
		status.Level = LevelRed
	case damaged > 2 || strained > 1:
		status.Level = LevelYellow
	}

	if allocated := e.totalAllocatedLocked(); allocated > e.availablePowerLocked() {
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("power overallocated: %.0f allocated, %.0f available", allocated, e.availablePowerLocked()))
	}
	return status
}
