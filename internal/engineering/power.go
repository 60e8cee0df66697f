package engineering

import (
	"math"
	"time"
)

// AllocationRecord is one entry in the bounded allocation history.
type AllocationRecord struct {
	Timestamp time.Time  `json:"timestamp"`
	System    SystemName `json:"system"`
	Value     float64    `json:"value"`
}

const (
	emergencyPowerBonus  = 100
	allocationHistoryCap = 20
)

// AvailablePower returns the total power budget: reactor output plus the
// emergency bonus when emergency power is active.
func (e *Engine) AvailablePower() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.availablePowerLocked()
}

func (e *Engine) availablePowerLocked() float64 {
	if e.emergencyPower {
		return e.reactorOutput + emergencyPowerBonus
	}
	return e.reactorOutput
}

// SetAllocation replaces one system's power allocation. The change is
// rejected, with state untouched, when the value is negative or NaN, the
// system is unknown or offline, or the resulting total would exceed the
// available budget.
func (e *Engine) SetAllocation(system SystemName, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.setAllocationLocked(system, value); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) setAllocationLocked(system SystemName, value float64) error {
	if !validSystem(system) {
		return validationf("unknown system %q", system)
	}
	if math.IsNaN(value) || value < 0 {
		return validationf("allocation for %s must be a non-negative number", system)
	}
	status := e.systems[system]
	if status.ShutDown && value > 0 {
		return validationf("system %s is offline", system)
	}

	total := value
	for name, units := range e.allocations {
		if name != system {
			total += units
		}
	}
	if available := e.availablePowerLocked(); total > available {
		return constraintf("allocation of %.0f to %s exceeds available power %.0f", value, system, available)
	}

	e.allocations[system] = value
	e.allocationHistory = append(e.allocationHistory, AllocationRecord{
		Timestamp: e.now(),
		System:    system,
		Value:     value,
	})
	if len(e.allocationHistory) > allocationHistoryCap {
		e.allocationHistory = e.allocationHistory[len(e.allocationHistory)-allocationHistoryCap:]
	}

	e.log.Debug().
		Str("system", string(system)).
		Float64("value", value).
		Float64("effective", e.effectiveOutputLocked(system, value)).
		Msg("power allocation updated")
	return nil
}

// EffectiveOutput computes what a given allocation actually delivers on a
// system after efficiency and damage penalties. Pure: no state is touched.
func (e *Engine) EffectiveOutput(system SystemName, units float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectiveOutputLocked(system, units)
}

func (e *Engine) effectiveOutputLocked(system SystemName, units float64) float64 {
	status, ok := e.systems[system]
	if !ok {
		return 0
	}
	out := units * (status.Efficiency / 100)
	if status.Damaged {
		out *= 0.8
	}
	if status.CriticalDamage {
		out *= 0.5
	}
	return out
}

// SetReactorOutput clamps the requested reactor level to [0,100] and applies
// it. Existing allocations are deliberately not revalidated: cutting the
// reactor below the allocated total leaves an overallocation warning visible
// in the snapshot rather than auto-rebalancing.
func (e *Engine) SetReactorOutput(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setReactorOutputLocked(value)
	e.publishLocked()
}

func (e *Engine) setReactorOutputLocked(value float64) {
	if math.IsNaN(value) {
		value = 0
	}
	e.reactorOutput = clamp(value, 0, 100)
	if allocated := e.totalAllocatedLocked(); allocated > e.availablePowerLocked() {
		e.log.Warn().
			Float64("allocated", allocated).
			Float64("available", e.availablePowerLocked()).
			Msg("power overallocated after reactor change")
	}
}

func (e *Engine) totalAllocatedLocked() float64 {
	var total float64
	for _, units := range e.allocations {
		total += units
	}
	return total
}
