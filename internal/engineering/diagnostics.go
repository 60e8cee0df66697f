package engineering

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScanDepth selects how thorough a diagnostic scan is.
type ScanDepth string

const (
	ScanBasic         ScanDepth = "basic"
	ScanDeep          ScanDepth = "deep"
	ScanComprehensive ScanDepth = "comprehensive"
)

var scanDuration = map[ScanDepth]int{
	ScanBasic:         15,
	ScanDeep:          45,
	ScanComprehensive: 90,
}

// ScanJob is a diagnostic scan in progress. Progress advances on the 1s tick.
type ScanJob struct {
	ID       uuid.UUID  `json:"id"`
	System   SystemName `json:"systemName"`
	Depth    ScanDepth  `json:"depth"`
	Duration int        `json:"duration"` // seconds
	Elapsed  int        `json:"elapsed"`
}

// Progress returns scan completion in percent.
func (j *ScanJob) Progress() float64 {
	return clamp(float64(j.Elapsed)/float64(j.Duration)*100, 0, 100)
}

// FailurePrediction flags a stressed subsystem area with an estimated
// probability and coarse timeframe.
type FailurePrediction struct {
	Area        string  `json:"area"`
	Probability float64 `json:"probability"`
	Timeframe   string  `json:"timeframe"`
}

// DiagnosticReport is the product of a completed scan. Deep scans add
// component sub-scores and recommendations; comprehensive scans add failure
// predictions and a maintenance schedule.
type DiagnosticReport struct {
	ID              uuid.UUID           `json:"id"`
	System          SystemName          `json:"systemName"`
	Depth           ScanDepth           `json:"depth"`
	Health          float64             `json:"health"`
	Efficiency      float64             `json:"efficiency"`
	Strain          float64             `json:"strain"`
	OverallStatus   string              `json:"overallStatus"`
	Components      map[string]float64  `json:"components,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
	Predictions     []FailurePrediction `json:"predictions,omitempty"`
	NextMaintenance string              `json:"nextMaintenance,omitempty"`
	CompletedAt     time.Time           `json:"completedAt"`
}

// Sample is one point in the rolling per-system performance history.
type Sample struct {
	Timestamp  time.Time  `json:"timestamp"`
	System     SystemName `json:"systemName"`
	Health     float64    `json:"health"`
	Efficiency float64    `json:"efficiency"`
	Strain     float64    `json:"strain"`
}

// Trend direction over a history window.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// PredictiveAlert is an ephemeral maintenance warning; it retires itself
// after alertTTL.
type PredictiveAlert struct {
	ID        uuid.UUID  `json:"id"`
	System    SystemName `json:"systemName"`
	Type      string     `json:"type"`
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// CalibrateAspect selects what a calibration pass tunes.
type CalibrateAspect string

const (
	CalibrateEfficiency CalibrateAspect = "efficiency"
	CalibratePower      CalibrateAspect = "power"
	CalibrateThermal    CalibrateAspect = "thermal"
)

const (
	historyCap = 100
	alertTTL   = 5 * time.Minute
)

// StartScan begins a diagnostic scan. Only one scan per system may run at a
// time.
func (e *Engine) StartScan(system SystemName, depth ScanDepth) (*ScanJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, err := e.startScanLocked(system, depth)
	if err != nil {
		return nil, err
	}
	e.publishLocked()
	return job, nil
}

func (e *Engine) startScanLocked(system SystemName, depth ScanDepth) (*ScanJob, error) {
	if !validSystem(system) {
		return nil, validationf("unknown system %q", system)
	}
	if depth == "" {
		depth = ScanBasic
	}
	duration, ok := scanDuration[depth]
	if !ok {
		return nil, validationf("unknown scan depth %q", depth)
	}
	if _, running := e.scans[system]; running {
		return nil, constraintf("scan already running for %s", system)
	}

	job := &ScanJob{
		ID:       uuid.New(),
		System:   system,
		Depth:    depth,
		Duration: duration,
	}
	e.scans[system] = job
	e.log.Info().Str("system", string(system)).Str("depth", string(depth)).Msg("diagnostic scan started")
	return job, nil
}

// TickScans advances every running scan by one second and files a report for
// each scan that completes.
func (e *Engine) TickScans() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.scans) == 0 {
		return
	}

	for _, name := range SystemNames {
		job, ok := e.scans[name]
		if !ok {
			continue
		}
		job.Elapsed++
		if job.Elapsed < job.Duration {
			continue
		}
		report := e.buildReportLocked(job)
		e.lastReports[name] = report
		delete(e.scans, name)
		e.log.Info().
			Str("system", string(name)).
			Str("depth", string(job.Depth)).
			Str("status", report.OverallStatus).
			Msg("diagnostic scan completed")
	}
	e.publishLocked()
}

func (e *Engine) buildReportLocked(job *ScanJob) *DiagnosticReport {
	status := e.systems[job.System]
	report := &DiagnosticReport{
		ID:            job.ID,
		System:        job.System,
		Depth:         job.Depth,
		Health:        status.Health,
		Efficiency:    status.Efficiency,
		Strain:        status.Strain,
		OverallStatus: overallStatus(status.Health),
		CompletedAt:   e.now(),
	}
	if job.Depth == ScanBasic {
		return report
	}

	// Deep scans synthesize component sub-scores around the measured values,
	// with a little sensor noise.
	report.Components = map[string]float64{
		"powerCoupling":       clamp(status.Health-status.Strain*0.2+e.rng.Float64()*4, 0, 100),
		"controlCircuits":     clamp(status.Efficiency+e.rng.Float64()*6-3, 0, 100),
		"structuralIntegrity": clamp(status.Health+e.rng.Float64()*4-2, 0, 100),
	}
	report.Recommendations = e.recommendationsLocked(job.System)

	if job.Depth == ScanComprehensive {
		report.Predictions = e.failurePredictionsLocked(job.System)
		report.NextMaintenance = maintenanceWindow(status)
	}
	return report
}

func overallStatus(health float64) string {
	switch {
	case health > 80:
		return "optimal"
	case health > 50:
		return "degraded"
	default:
		return "critical"
	}
}

func maintenanceWindow(status *SystemStatus) string {
	switch {
	case status.Strain > 70 || status.Damaged:
		return "within 1 hour"
	case status.Strain > 40:
		return "within 8 hours"
	default:
		return "within 72 hours"
	}
}

// Recommendations returns the rule-based maintenance advice for a system.
func (e *Engine) Recommendations(system SystemName) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !validSystem(system) {
		return nil, validationf("unknown system %q", system)
	}
	return e.recommendationsLocked(system), nil
}

func (e *Engine) recommendationsLocked(system SystemName) []string {
	status := e.systems[system]
	var recs []string
	if status.Health < 80 {
		recs = append(recs, "schedule maintenance")
	}
	if status.Strain > 70 {
		recs = append(recs, "reduce operational load")
	}
	if status.Efficiency < 80 {
		recs = append(recs, "run calibration cycle")
	}
	if status.CriticalDamage {
		recs = append(recs, "urgent repair required")
	} else if status.Damaged {
		recs = append(recs, "repair recommended")
	}
	return recs
}

// FailurePredictions estimates which subsystem areas are likely to fail and
// roughly when.
func (e *Engine) FailurePredictions(system SystemName) ([]FailurePrediction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !validSystem(system) {
		return nil, validationf("unknown system %q", system)
	}
	return e.failurePredictionsLocked(system), nil
}

func (e *Engine) failurePredictionsLocked(system SystemName) []FailurePrediction {
	status := e.systems[system]
	var preds []FailurePrediction
	if status.Strain > 80 {
		preds = append(preds, FailurePrediction{
			Area:        "power couplings",
			Probability: clamp(0.5+(status.Strain-80)/40, 0, 0.95),
			Timeframe:   "imminent",
		})
	}
	if status.Health < 50 {
		preds = append(preds, FailurePrediction{
			Area:        "primary systems",
			Probability: clamp(0.3+(50-status.Health)/100, 0, 0.9),
			Timeframe:   "within hours",
		})
	}
	if status.Efficiency < 60 {
		preds = append(preds, FailurePrediction{
			Area:        "efficiency regulators",
			Probability: 0.25,
			Timeframe:   "within days",
		})
	}
	return preds
}

// TickHistory appends one performance sample per system to the rolling
// history window.
func (e *Engine) TickHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, name := range SystemNames {
		status := e.systems[name]
		samples := append(e.history[name], Sample{
			Timestamp:  now,
			System:     name,
			Health:     status.Health,
			Efficiency: status.Efficiency,
			Strain:     status.Strain,
		})
		if len(samples) > historyCap {
			samples = samples[len(samples)-historyCap:]
		}
		e.history[name] = samples
	}
}

// History returns a copy of the performance history for one system.
func (e *Engine) History(system SystemName) []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Sample(nil), e.history[system]...)
}

// HealthTrend reports the trend direction of a system's health history.
func (e *Engine) HealthTrend(system SystemName) Trend {
	e.mu.Lock()
	defer e.mu.Unlock()
	samples := e.history[system]
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Health
	}
	return trendOf(values)
}

// trendOf compares the mean of the first half of a window against the second
// half; a difference under 2 points counts as stable.
func trendOf(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}
	half := len(values) / 2
	first := mean(values[:half])
	second := mean(values[half:])
	switch {
	case second-first >= 2:
		return TrendImproving
	case first-second >= 2:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// TickAlerts retires expired alerts and raises new predictive alerts from
// strain, health and efficiency thresholds. An unexpired alert of the same
// type on the same system suppresses a duplicate.
func (e *Engine) TickAlerts() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	kept := e.alerts[:0]
	for _, alert := range e.alerts {
		if now.Sub(alert.Timestamp) < alertTTL {
			kept = append(kept, alert)
		}
	}
	changed := len(kept) != len(e.alerts)
	e.alerts = kept
	for _, name := range SystemNames {
		status := e.systems[name]
		if status.Strain > 85 {
			changed = e.raiseAlertLocked(name, "strain_critical", "high",
				fmt.Sprintf("%s strain at %.0f%%, failure imminent", name, status.Strain)) || changed
		}
		if status.Health > 20 && status.Health <= 40 {
			changed = e.raiseAlertLocked(name, "health_low", "medium",
				fmt.Sprintf("%s health down to %.0f%%", name, status.Health)) || changed
		}
		if status.Efficiency < 60 && !status.Damaged && !status.ShutDown {
			changed = e.raiseAlertLocked(name, "efficiency_degraded", "low",
				fmt.Sprintf("%s efficiency at %.0f%% with no damage, calibration advised", name, status.Efficiency)) || changed
		}
	}
	if changed {
		e.publishLocked()
	}
}

func (e *Engine) raiseAlertLocked(system SystemName, alertType, severity, message string) bool {
	for _, alert := range e.alerts {
		if alert.System == system && alert.Type == alertType {
			return false
		}
	}
	alert := &PredictiveAlert{
		ID:        uuid.New(),
		System:    system,
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Timestamp: e.now(),
	}
	e.alerts = append(e.alerts, alert)
	e.log.Warn().
		Str("system", string(system)).
		Str("type", alertType).
		Str("severity", severity).
		Msg(message)
	return true
}

// Alerts returns a copy of the currently active predictive alerts.
func (e *Engine) Alerts() []PredictiveAlert {
	e.mu.Lock()
	defer e.mu.Unlock()
	alerts := make([]PredictiveAlert, len(e.alerts))
	for i, alert := range e.alerts {
		alerts[i] = *alert
	}
	return alerts
}

// LastReport returns the most recent diagnostic report for a system.
func (e *Engine) LastReport(system SystemName) (*DiagnosticReport, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	report, ok := e.lastReports[system]
	if !ok {
		return nil, false
	}
	copied := *report
	return &copied, true
}

// Calibrate fine-tunes a system. Efficiency calibration raises efficiency,
// power calibration sheds strain, thermal calibration does a little of both.
// Critically damaged systems cannot hold a calibration.
func (e *Engine) Calibrate(system SystemName, aspect CalibrateAspect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.calibrateLocked(system, aspect); err != nil {
		return err
	}
	e.publishLocked()
	return nil
}

func (e *Engine) calibrateLocked(system SystemName, aspect CalibrateAspect) error {
	if !validSystem(system) {
		return validationf("unknown system %q", system)
	}
	status := e.systems[system]
	if status.CriticalDamage {
		return constraintf("system %s is critically damaged", system)
	}

	switch aspect {
	case CalibrateEfficiency:
		status.Efficiency = clamp(status.Efficiency+5+e.rng.Float64()*10, 20, 100)
	case CalibratePower:
		status.Strain = clamp(status.Strain-(10+e.rng.Float64()*5), 0, 100)
	case CalibrateThermal:
		status.Strain = clamp(status.Strain-5, 0, 100)
		status.Efficiency = clamp(status.Efficiency+3, 20, 100)
	default:
		return validationf("unknown calibration aspect %q", aspect)
	}

	e.log.Info().
		Str("system", string(system)).
		Str("aspect", string(aspect)).
		Float64("efficiency", status.Efficiency).
		Float64("strain", status.Strain).
		Msg("calibration applied")
	return nil
}
