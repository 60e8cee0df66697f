package engineering

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// RepairTask is one queued repair bound to a system and a slice of the droid
// labor pool. Owned exclusively by the engine; callers refer to it by ID.
type RepairTask struct {
	ID             uuid.UUID  `json:"id"`
	System         SystemName `json:"systemName"`
	Damage         Severity   `json:"damageType"`
	Difficulty     int        `json:"difficulty"`
	TimeRequired   int        `json:"timeRequired"` // seconds
	Progress       float64    `json:"progress"`
	AssignedDroids int        `json:"assignedCrew"`
	JuryRigged     bool       `json:"juryRigged"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// CheckQuality grades one repair skill check.
type CheckQuality string

const (
	QualityFailure   CheckQuality = "failure"
	QualitySuccess   CheckQuality = "success"
	QualityAdvantage CheckQuality = "advantage"
	QualityTriumph   CheckQuality = "triumph"
)

const (
	repairTickSeconds = 10
	skillCheckBonus   = 0.1
	minDroidsPerTask  = 1
	maxDroidsPerTask  = 10
	juryRigPenalty    = 0.7
)

var difficultyBase = map[Severity]int{
	SeverityMinor:    2,
	SeverityMajor:    3,
	SeverityCritical: 4,
}

var repairTimeBase = map[Severity]float64{
	SeverityMinor:    30,
	SeverityMajor:    90,
	SeverityCritical: 180,
}

var checkEffectiveness = map[CheckQuality]float64{
	QualityFailure:   0,
	QualitySuccess:   1.0,
	QualityAdvantage: 1.3,
	QualityTriumph:   1.6,
}

// healOnCompletion maps check quality to restored health; jury-rigged repairs
// restore less.
var healOnCompletion = map[CheckQuality][2]float64{
	QualityFailure:   {0, 0},
	QualitySuccess:   {25, 15},
	QualityAdvantage: {35, 20},
	QualityTriumph:   {50, 25},
}

// AssessDamage reports whether a system currently needs a repair task and at
// what severity.
func (e *Engine) AssessDamage(system SystemName) (needsRepair bool, damage Severity, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !validSystem(system) {
		return false, SeverityNone, validationf("unknown system %q", system)
	}
	status := e.systems[system]
	if !status.Damaged {
		return false, SeverityNone, nil
	}
	damage = classifySeverity(status.Health)
	return damage != SeverityNone, damage, nil
}

// EnqueueRepair creates a repair task for a damaged system, deriving the
// severity from current health. At most one task per system may exist; a
// duplicate request is logged and dropped without touching state.
func (e *Engine) EnqueueRepair(system SystemName, droids int) (*RepairTask, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	task, err := e.enqueueForSystemLocked(system, droids)
	if errors.Is(err, errIgnored) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.publishLocked()
	return task, nil
}

func (e *Engine) enqueueForSystemLocked(system SystemName, droids int) (*RepairTask, error) {
	if !validSystem(system) {
		return nil, validationf("unknown system %q", system)
	}
	status := e.systems[system]
	damage := classifySeverity(status.Health)
	if damage == SeverityNone {
		return nil, validationf("system %s is not damaged", system)
	}
	return e.enqueueLocked(system, damage, droids, false)
}

func (e *Engine) enqueueLocked(system SystemName, damage Severity, droids int, juryRigged bool) (*RepairTask, error) {
	if existing := e.taskForSystemLocked(system); existing != nil {
		e.log.Info().
			Str("system", string(system)).
			Str("task", existing.ID.String()).
			Msg("repair task already queued, request dropped")
		return nil, errIgnored
	}
	if droids < minDroidsPerTask || droids > maxDroidsPerTask {
		return nil, validationf("droid count %d outside [%d,%d]", droids, minDroidsPerTask, maxDroidsPerTask)
	}
	if assigned := e.assignedDroidsLocked(); assigned+droids > e.availableDroids {
		return nil, constraintf("droid pool exhausted: %d assigned, %d available", assigned, e.availableDroids)
	}

	task := &RepairTask{
		ID:             uuid.New(),
		System:         system,
		Damage:         damage,
		Difficulty:     repairDifficulty(system, damage),
		AssignedDroids: droids,
		JuryRigged:     juryRigged,
		CreatedAt:      e.now(),
	}
	task.TimeRequired = repairTime(damage, droids)
	if juryRigged {
		task.TimeRequired = juryRigTime(task.TimeRequired)
	}
	e.queue = append(e.queue, task)
	e.sortQueueLocked()

	e.log.Info().
		Str("system", string(system)).
		Str("task", task.ID.String()).
		Str("severity", string(damage)).
		Int("difficulty", task.Difficulty).
		Int("timeRequired", task.TimeRequired).
		Int("droids", droids).
		Msg("repair task queued")
	return task, nil
}

func repairDifficulty(system SystemName, damage Severity) int {
	return int(math.Round(float64(difficultyBase[damage]) * complexityFactor[system]))
}

// repairTime derives seconds of work from severity and droid count, with
// diminishing returns capped at double speed.
func repairTime(damage Severity, droids int) int {
	speedup := math.Min(2.0, 1+float64(droids-1)*0.3)
	return int(math.Round(repairTimeBase[damage] / speedup))
}

func juryRigTime(seconds int) int {
	t := int(math.Round(float64(seconds) * 0.3))
	if t < 1 {
		t = 1
	}
	return t
}

// sortQueueLocked keeps the queue in priority order: critical before major
// before minor, oldest first within a severity.
func (e *Engine) sortQueueLocked() {
	sort.SliceStable(e.queue, func(i, j int) bool {
		pi, pj := severityPriority[e.queue[i].Damage], severityPriority[e.queue[j].Damage]
		if pi != pj {
			return pi > pj
		}
		return e.queue[i].CreatedAt.Before(e.queue[j].CreatedAt)
	})
}

func (e *Engine) taskForSystemLocked(system SystemName) *RepairTask {
	for _, task := range e.queue {
		if task.System == system {
			return task
		}
	}
	return nil
}

func (e *Engine) taskByIDLocked(id uuid.UUID) (*RepairTask, int) {
	for i, task := range e.queue {
		if task.ID == id {
			return task, i
		}
	}
	return nil, -1
}

func (e *Engine) assignedDroidsLocked() int {
	var total int
	for _, task := range e.queue {
		total += task.AssignedDroids
	}
	return total
}

// SetDroidCount reassigns droids on a queued task and recomputes its time
// requirement. Rejected when the count is out of range or the droid pool
// cannot cover it.
func (e *Engine) SetDroidCount(taskID uuid.UUID, count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.setDroidCountLocked(taskID, count); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) setDroidCountLocked(taskID uuid.UUID, count int) error {
	task, _ := e.taskByIDLocked(taskID)
	if task == nil {
		return validationf("no repair task %s", taskID)
	}
	if count < minDroidsPerTask || count > maxDroidsPerTask {
		return validationf("droid count %d outside [%d,%d]", count, minDroidsPerTask, maxDroidsPerTask)
	}
	if assigned := e.assignedDroidsLocked() - task.AssignedDroids; assigned+count > e.availableDroids {
		return constraintf("droid pool exhausted: %d assigned elsewhere, %d available", assigned, e.availableDroids)
	}

	task.AssignedDroids = count
	task.TimeRequired = repairTime(task.Damage, count)
	if task.JuryRigged {
		task.TimeRequired = juryRigTime(task.TimeRequired)
	}
	return nil
}

// CancelRepair removes a queued task. The droids return to the pool
// implicitly; any skill check already computed this tick stands.
func (e *Engine) CancelRepair(taskID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.cancelRepairLocked(taskID); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) cancelRepairLocked(taskID uuid.UUID) error {
	task, i := e.taskByIDLocked(taskID)
	if task == nil {
		return validationf("no repair task %s", taskID)
	}
	e.queue = append(e.queue[:i], e.queue[i+1:]...)
	e.log.Info().Str("task", taskID.String()).Str("system", string(task.System)).Msg("repair task cancelled")
	return nil
}

// TickRepairs advances every queued task by one skill check. A failed check
// is a normal zero-progress outcome, not an error. Tasks reaching full
// progress are resolved: health is restored according to the quality of the
// completing check and the task leaves the queue.
func (e *Engine) TickRepairs() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return
	}

	remaining := e.queue[:0]
	for _, task := range e.queue {
		quality := e.skillCheckLocked(task)
		effectiveness := checkEffectiveness[quality]
		if task.JuryRigged {
			effectiveness *= juryRigPenalty
		}

		ticksNeeded := float64(task.TimeRequired) / repairTickSeconds
		increment := (100 / ticksNeeded) * float64(task.AssignedDroids) * effectiveness
		task.Progress = math.Min(100, task.Progress+increment)

		e.log.Debug().
			Str("task", task.ID.String()).
			Str("system", string(task.System)).
			Str("quality", string(quality)).
			Float64("progress", task.Progress).
			Msg("repair tick")

		if task.Progress >= 100 {
			e.resolveRepairLocked(task, quality)
			continue
		}
		remaining = append(remaining, task)
	}
	e.queue = remaining
	e.publishLocked()
}

// skillCheckLocked rolls one check against the task difficulty and grades the
// margin into failure, success, advantage or triumph.
func (e *Engine) skillCheckLocked(task *RepairTask) CheckQuality {
	roll := e.rng.Float64() + skillCheckBonus
	threshold := 0.3 + float64(task.Difficulty)*0.15
	switch {
	case roll >= threshold+0.3:
		return QualityTriumph
	case roll >= threshold+0.15:
		return QualityAdvantage
	case roll >= threshold:
		return QualitySuccess
	default:
		return QualityFailure
	}
}

func (e *Engine) resolveRepairLocked(task *RepairTask, quality CheckQuality) {
	heal := healOnCompletion[quality][0]
	if task.JuryRigged {
		heal = healOnCompletion[quality][1]
	}

	status := e.systems[task.System]
	status.Health = math.Min(100, status.Health+heal)
	status.recomputeDerived()

	e.log.Info().
		Str("task", task.ID.String()).
		Str("system", string(task.System)).
		Str("quality", string(quality)).
		Float64("restored", heal).
		Float64("health", status.Health).
		Msg("repair completed")
}

// SetAvailableDroids resizes the GM-adjustable droid labor pool. Shrinking
// the pool below the current total assignment rebalances the queue in
// priority order; a zero pool clears the queue entirely.
func (e *Engine) SetAvailableDroids(count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.setAvailableDroidsLocked(count); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) setAvailableDroidsLocked(count int) error {
	if count < 0 {
		return validationf("droid pool must be non-negative")
	}
	e.availableDroids = count
	if count == 0 {
		if len(e.queue) > 0 {
			e.log.Warn().Int("cleared", len(e.queue)).Msg("droid pool empty, repair queue cleared")
			e.queue = nil
		}
		return nil
	}
	if e.assignedDroidsLocked() > count {
		e.rebalanceDroidsLocked(count)
	}
	return nil
}

// rebalanceDroidsLocked reassigns droids greedily in queue (priority) order.
// Each surviving task keeps at least one droid; tasks that cannot be covered
// at all are dropped.
func (e *Engine) rebalanceDroidsLocked(available int) {
	remaining := available
	kept := e.queue[:0]
	for i, task := range e.queue {
		if remaining == 0 {
			e.log.Warn().Str("task", task.ID.String()).Str("system", string(task.System)).
				Msg("repair task dropped during droid rebalance")
			continue
		}
		tasksAfter := len(e.queue) - i - 1
		alloc := remaining - tasksAfter
		if alloc < minDroidsPerTask {
			alloc = minDroidsPerTask
		}
		if alloc > task.AssignedDroids {
			alloc = task.AssignedDroids
		}
		if alloc > remaining {
			alloc = remaining
		}
		task.AssignedDroids = alloc
		task.TimeRequired = repairTime(task.Damage, alloc)
		if task.JuryRigged {
			task.TimeRequired = juryRigTime(task.TimeRequired)
		}
		remaining -= alloc
		kept = append(kept, task)
	}
	e.queue = kept
}

// RepairQueue returns a copy of the queued tasks in priority order.
func (e *Engine) RepairQueue() []RepairTask {
	e.mu.Lock()
	defer e.mu.Unlock()
	tasks := make([]RepairTask, len(e.queue))
	for i, task := range e.queue {
		tasks[i] = *task
	}
	return tasks
}
