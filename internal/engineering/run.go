package engineering

import (
	"time"

	"github.com/bridgesim/stationcore/pkg/clock"
)

// Tick intervals for the simulation clocks.
const (
	RepairInterval      = 10 * time.Second
	BoostInterval       = 1 * time.Second
	ScanInterval        = 1 * time.Second
	DegradationInterval = 10 * time.Second
	HistoryInterval     = 10 * time.Second
	AlertInterval       = 30 * time.Second
)

// RegisterTicks wires every simulation clock onto the scheduler. The engine
// mutex serializes tick bodies against commands, so firing order between
// clocks is the only ordering that matters and the scheduler pins it down.
func (e *Engine) RegisterTicks(s *clock.Scheduler) {
	s.Every("boost", BoostInterval, e.TickBoosts)
	s.Every("scan", ScanInterval, e.TickScans)
	s.Every("repair", RepairInterval, e.TickRepairs)
	s.Every("degradation", DegradationInterval, e.TickDegradation)
	s.Every("history", HistoryInterval, e.TickHistory)
	s.Every("alerts", AlertInterval, e.TickAlerts)
}
