package engineering

import "time"

// PowerDistribution is the power view of a snapshot.
type PowerDistribution struct {
	ReactorOutput  float64                `json:"reactorOutput"`
	EmergencyPower bool                   `json:"emergencyPower"`
	TotalPower     float64                `json:"totalPower"`
	Allocations    map[SystemName]float64 `json:"powerAllocations"`
	Allocated      float64                `json:"allocated"`
	Overallocated  bool                   `json:"overallocated"`
	History        []AllocationRecord     `json:"allocationHistory"`
}

// EmergencyProcedures is the emergency view of a snapshot.
type EmergencyProcedures struct {
	EmergencyPower      bool            `json:"emergencyPower"`
	LifeSupportPriority bool            `json:"lifeSupportPriority"`
	ShutdownSystems     []SystemName    `json:"shutdownSystems"`
	Status              EmergencyStatus `json:"status"`
}

// Snapshot is the full engineering state republished after every mutating
// command and every state-changing tick. All fields are copies; consumers may
// hold them across ticks.
type Snapshot struct {
	Timestamp       time.Time                    `json:"timestamp"`
	Power           PowerDistribution            `json:"powerDistribution"`
	Systems         map[SystemName]SystemStatus  `json:"systemStatus"`
	RepairQueue     []RepairTask                 `json:"repairQueue"`
	AvailableDroids int                          `json:"availableDroids"`
	ActiveBoosts    []SystemBoost                `json:"activeBoosts"`
	BoostEffects    map[SystemName]BoostEffects  `json:"boostEffects"`
	ActiveScans     []ScanJob                    `json:"activeScans"`
	Emergency       EmergencyProcedures          `json:"emergencyProcedures"`
	Alerts          []PredictiveAlert            `json:"alerts"`
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Timestamp:       e.now(),
		Systems:         make(map[SystemName]SystemStatus, len(e.systems)),
		RepairQueue:     make([]RepairTask, len(e.queue)),
		AvailableDroids: e.availableDroids,
		ActiveBoosts:    make([]SystemBoost, len(e.boosts)),
		BoostEffects:    make(map[SystemName]BoostEffects, len(e.systems)),
		Alerts:          make([]PredictiveAlert, len(e.alerts)),
	}

	allocated := e.totalAllocatedLocked()
	available := e.availablePowerLocked()
	snap.Power = PowerDistribution{
		ReactorOutput:  e.reactorOutput,
		EmergencyPower: e.emergencyPower,
		TotalPower:     available,
		Allocations:    make(map[SystemName]float64, len(e.allocations)),
		Allocated:      allocated,
		Overallocated:  allocated > available,
		History:        append([]AllocationRecord(nil), e.allocationHistory...),
	}
	for name, units := range e.allocations {
		snap.Power.Allocations[name] = units
	}

	var shutdown []SystemName
	for _, name := range SystemNames {
		status := e.systems[name]
		snap.Systems[name] = *status
		snap.BoostEffects[name] = e.effectsLocked(name)
		if status.ShutDown {
			shutdown = append(shutdown, name)
		}
	}

	for i, task := range e.queue {
		snap.RepairQueue[i] = *task
	}
	for i, boost := range e.boosts {
		snap.ActiveBoosts[i] = *boost
	}
	for _, name := range SystemNames {
		if job, ok := e.scans[name]; ok {
			snap.ActiveScans = append(snap.ActiveScans, *job)
		}
	}
	for i, alert := range e.alerts {
		snap.Alerts[i] = *alert
	}

	snap.Emergency = EmergencyProcedures{
		EmergencyPower:      e.emergencyPower,
		LifeSupportPriority: e.lifeSupportPriority,
		ShutdownSystems:     shutdown,
		Status:              e.statusLocked(),
	}
	return snap
}

// System returns a copy of one system's status.
func (e *Engine) System(name SystemName) (SystemStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	status, ok := e.systems[name]
	if !ok {
		return SystemStatus{}, false
	}
	return *status, true
}
