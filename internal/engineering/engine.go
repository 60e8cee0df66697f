package engineering

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine owns the whole engineering simulation state: system registry, power
// distribution, repair queue, droid pool, active boosts, scan jobs, history
// and alerts. Every mutation goes through a validated method that re-derives
// dependent fields before returning; the single mutex serializes commands and
// ticks so no two mutations interleave.
type Engine struct {
	mu sync.Mutex

	log zerolog.Logger
	rng Rand
	now func() time.Time

	systems map[SystemName]*SystemStatus

	reactorOutput       float64
	emergencyPower      bool
	lifeSupportPriority bool
	allocations         map[SystemName]float64
	allocationHistory   []AllocationRecord

	queue           []*RepairTask
	availableDroids int

	boosts []*SystemBoost

	scans       map[SystemName]*ScanJob
	lastReports map[SystemName]*DiagnosticReport
	history     map[SystemName][]Sample
	alerts      []*PredictiveAlert

	publish func(Snapshot)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRand sets the random source used by skill checks and degradation.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPublisher sets the sink that receives a full snapshot after every
// state-changing command or tick.
func WithPublisher(fn func(Snapshot)) Option {
	return func(e *Engine) { e.publish = fn }
}

// WithDroidPool sets the initial droid labor pool.
func WithDroidPool(n int) Option {
	return func(e *Engine) { e.availableDroids = n }
}

// NewEngine builds an engine with all systems at full health, the reactor at
// full output and no power allocated.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log:             zerolog.Nop(),
		rng:             NewRand(time.Now().UnixNano()),
		now:             time.Now,
		systems:         make(map[SystemName]*SystemStatus, len(SystemNames)),
		reactorOutput:   100,
		allocations:     make(map[SystemName]float64, len(SystemNames)),
		availableDroids: defaultDroidPool,
		scans:           make(map[SystemName]*ScanJob),
		lastReports:     make(map[SystemName]*DiagnosticReport),
		history:         make(map[SystemName][]Sample),
	}
	for _, name := range SystemNames {
		e.systems[name] = newSystemStatus()
		e.allocations[name] = 0
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const defaultDroidPool = 10

// Command is one inbound mutation request from the local UI or a remote
// station relayed over the wire. Payload shape depends on Name.
type Command struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command payloads.

type systemPayload struct {
	System SystemName `json:"system"`
}

type allocationPayload struct {
	System SystemName `json:"system"`
	Value  float64    `json:"value"`
}

type valuePayload struct {
	Value float64 `json:"value"`
}

type damagePayload struct {
	System SystemName `json:"system"`
	Amount float64    `json:"amount"`
}

type healPayload struct {
	System SystemName      `json:"system"`
	Amount json.RawMessage `json:"amount"` // number or the string "all"
}

type repairTaskPayload struct {
	System SystemName `json:"system"`
	Droids int        `json:"droidCount"`
}

type taskDroidsPayload struct {
	TaskID string `json:"taskId"`
	Count  int    `json:"count"`
}

type taskIDPayload struct {
	TaskID string `json:"taskId"`
}

type boostPayload struct {
	System    SystemName `json:"system"`
	Type      BoostType  `json:"type"`
	Magnitude int        `json:"magnitude"`
}

type boostIDPayload struct {
	BoostID string `json:"boostId"`
}

type droidPoolPayload struct {
	Count int `json:"count"`
}

type scanPayload struct {
	System SystemName `json:"system"`
	Depth  ScanDepth  `json:"depth"`
}

type calibratePayload struct {
	System SystemName      `json:"system"`
	Aspect CalibrateAspect `json:"aspect"`
}

// SetPublisher replaces the snapshot sink. Used when the sink (gateway,
// relay) is built after the engine.
func (e *Engine) SetPublisher(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publish = fn
}

// Execute decodes and runs one command. Validation and resource-constraint
// rejections are returned to the caller with state untouched; unknown command
// names are logged and ignored. Every successful mutation republishes the
// full snapshot.
func (e *Engine) Execute(cmd Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.dispatchLocked(cmd)
	if errors.Is(err, errIgnored) {
		return nil
	}
	if err != nil {
		e.log.Warn().Str("command", cmd.Name).Err(err).Msg("command rejected")
		return err
	}
	e.publishLocked()
	return nil
}

// errIgnored marks a command that is dropped without error and without a
// snapshot republish (unknown names, duplicate repair requests).
var errIgnored = errors.New("command ignored")

func (e *Engine) dispatchLocked(cmd Command) error {
	switch cmd.Name {
	case "set_power_allocation":
		var p allocationPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		return e.setAllocationLocked(p.System, p.Value)

	case "set_reactor_output":
		var p valuePayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		e.setReactorOutputLocked(p.Value)
		return nil

	case "apply_system_damage":
		var p damagePayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		return e.applyDamageLocked(p.System, p.Amount)

	case "repair_system":
		var p healPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		amount, all, err := parseHealAmount(p.Amount)
		if err != nil {
			return err
		}
		return e.repairSystemLocked(p.System, amount, all)

	case "create_repair_task":
		var p repairTaskPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		if p.Droids == 0 {
			p.Droids = 1
		}
		_, err := e.enqueueForSystemLocked(p.System, p.Droids)
		return err

	case "set_repair_droids":
		var p taskDroidsPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		id, err := parseID(p.TaskID, "taskId")
		if err != nil {
			return err
		}
		return e.setDroidCountLocked(id, p.Count)

	case "cancel_repair":
		var p taskIDPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		id, err := parseID(p.TaskID, "taskId")
		if err != nil {
			return err
		}
		return e.cancelRepairLocked(id)

	case "apply_boost":
		var p boostPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		_, err := e.applyBoostLocked(p.System, p.Type, p.Magnitude)
		return err

	case "cancel_boost":
		var p boostIDPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		id, err := parseID(p.BoostID, "boostId")
		if err != nil {
			return err
		}
		return e.cancelBoostLocked(id)

	case "set_available_droids":
		var p droidPoolPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		return e.setAvailableDroidsLocked(p.Count)

	case "activate_emergency_power":
		e.toggleEmergencyPowerLocked()
		return nil

	case "activate_life_support_priority":
		e.toggleLifeSupportPriorityLocked()
		return nil

	case "emergency_shutdown":
		var p systemPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		return e.emergencyShutdownLocked(p.System)

	case "activate_emergency_protocols":
		e.activateProtocolsLocked()
		return nil

	case "deactivate_emergency_procedures":
		e.deactivateProceduresLocked()
		return nil

	case "run_diagnostic_scan":
		var p scanPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		_, err := e.startScanLocked(p.System, p.Depth)
		return err

	case "calibrate_system":
		var p calibratePayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return err
		}
		return e.calibrateLocked(p.System, p.Aspect)

	default:
		e.log.Warn().Str("command", cmd.Name).Msg("unknown command ignored")
		return errIgnored
	}
}

func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return validationf("missing payload")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return validationf("malformed payload: %v", err)
	}
	return nil
}

func parseID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, validationf("invalid %s %q", field, s)
	}
	return id, nil
}

// parseHealAmount accepts either a number or the string "all".
func parseHealAmount(raw json.RawMessage) (amount float64, all bool, err error) {
	if len(raw) == 0 {
		return 0, false, validationf("missing amount")
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if strings.EqualFold(s, "all") {
			return 0, true, nil
		}
		return 0, false, validationf("amount must be a number or %q", "all")
	}
	if err := json.Unmarshal(raw, &amount); err != nil {
		return 0, false, validationf("malformed amount: %v", err)
	}
	return amount, false, nil
}

func (e *Engine) publishLocked() {
	if e.publish == nil {
		return
	}
	e.publish(e.snapshotLocked())
}

// Snapshot returns a copy of the full engineering state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}
