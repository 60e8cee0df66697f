package engineering

import "math"

// SystemName identifies one of the six shipboard systems.
type SystemName string

const (
	Weapons        SystemName = "weapons"
	Shields        SystemName = "shields"
	Engines        SystemName = "engines"
	Sensors        SystemName = "sensors"
	LifeSupport    SystemName = "lifeSupport"
	Communications SystemName = "communications"
)

// SystemNames lists every system in fixed processing order. Tick handlers and
// snapshots iterate in this order so repeated runs are reproducible.
var SystemNames = []SystemName{Weapons, Shields, Engines, Sensors, LifeSupport, Communications}

// SystemStatus is the live status of one shipboard system. Damaged and
// CriticalDamage are derived from Health and recomputed on every mutation.
type SystemStatus struct {
	Health         float64 `json:"health"`
	Efficiency     float64 `json:"efficiency"`
	Strain         float64 `json:"strain"`
	Damaged        bool    `json:"damaged"`
	CriticalDamage bool    `json:"criticalDamage"`
	ShutDown       bool    `json:"shutDown"`
}

// Severity grades damage on a system.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// severityPriority orders the repair queue: higher value repairs first.
var severityPriority = map[Severity]int{
	SeverityNone:     0,
	SeverityMinor:    1,
	SeverityMajor:    2,
	SeverityCritical: 3,
}

// complexityFactor scales repair difficulty and boost strain cost per system.
// Values stay at or below 1.1 so a critical repair on the most complex system
// still has a winnable skill check.
var complexityFactor = map[SystemName]float64{
	Weapons:        1.0,
	Shields:        1.0,
	Engines:        1.1,
	Sensors:        0.9,
	LifeSupport:    1.1,
	Communications: 0.8,
}

// cascadeAdjacency maps each system to the neighbor that picks up secondary
// strain when the system fails critically. One hop only, no recursion.
var cascadeAdjacency = map[SystemName]SystemName{
	Weapons:     Sensors,
	Shields:     Engines,
	Engines:     LifeSupport,
	Sensors:     Communications,
	LifeSupport: Communications,
}

// validSystem reports whether name is one of the six shipboard systems.
func validSystem(name SystemName) bool {
	_, ok := complexityFactor[name]
	return ok
}

// classifySeverity grades health into a damage severity.
func classifySeverity(health float64) Severity {
	switch {
	case health >= 80:
		return SeverityNone
	case health >= 60:
		return SeverityMinor
	case health >= 30:
		return SeverityMajor
	default:
		return SeverityCritical
	}
}

// derivedEfficiency computes baseline efficiency from health.
func derivedEfficiency(health float64) float64 {
	return clamp(math.Round(health*0.8+20), 20, 100)
}

// recomputeDerived refreshes every field that depends on Health. Called after
// any health mutation so readers never see a stale flag next to fresh health.
// A shut-down system keeps zero efficiency until it is brought back online.
func (s *SystemStatus) recomputeDerived() {
	s.Damaged = s.Health < 80
	s.CriticalDamage = s.Health < 30
	if s.ShutDown {
		s.Efficiency = 0
		return
	}
	s.Efficiency = derivedEfficiency(s.Health)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func newSystemStatus() *SystemStatus {
	s := &SystemStatus{Health: 100, Strain: 0}
	s.recomputeDerived()
	return s
}
