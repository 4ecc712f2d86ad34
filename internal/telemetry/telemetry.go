package telemetry

import (
	"sync"
	"time"

	"github.com/linehawk/linehawk/internal/task"
)

// BaselineLinesPerSec is the single-threaded scalar rate the speedup ratio
// is measured against.
const BaselineLinesPerSec = 930e6

// TargetLinesPerSec is the aspirational full-engine throughput used for the
// target-achievement percentage.
const TargetLinesPerSec = 15e9

// Metrics is a point-in-time copy of the aggregate counters plus the
// derived rates. Derived fields are computed at snapshot time only, so the
// raw counters can never drift from them.
type Metrics struct {
	TotalOps       uint64
	TotalLines     uint64
	TotalBytes     uint64
	TaskErrors     uint64
	VectorOps      uint64
	AcceleratorOps uint64
	Fallbacks      uint64
	Steals         uint64

	TotalProcessing time.Duration
	PeakLinesPerSec float64

	CurrentTemp float64
	PeakTemp    float64
	Throttling  bool

	AvgLinesPerSec       float64
	SpeedupVsBaseline    float64
	TargetAchievementPct float64
}

// Telemetry aggregates counters from workers and the thermal monitor. All
// mutation happens under one mutex, held only for the duration of a counter
// update or a snapshot copy.
type Telemetry struct {
	mu sync.Mutex
	m  Metrics
}

// New creates an empty aggregator.
func New() *Telemetry {
	return &Telemetry{}
}

// Record folds one completed task result into the counters.
func (t *Telemetry) Record(res task.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.m.TotalOps++
	t.m.TotalLines += res.Lines
	t.m.TotalBytes += res.Bytes
	t.m.TotalProcessing += res.Duration

	switch res.Backend {
	case "accelerator":
		t.m.AcceleratorOps++
	default:
		t.m.VectorOps++
	}

	if res.Duration > 0 && res.Lines > 0 {
		rate := float64(res.Lines) / res.Duration.Seconds()
		if rate > t.m.PeakLinesPerSec {
			t.m.PeakLinesPerSec = rate
		}
	}
}

// RecordSteal counts one successful work steal.
func (t *Telemetry) RecordSteal() {
	t.mu.Lock()
	t.m.Steals++
	t.mu.Unlock()
}

// RecordFallback counts one accelerator-to-vector fallback.
func (t *Telemetry) RecordFallback() {
	t.mu.Lock()
	t.m.Fallbacks++
	t.mu.Unlock()
}

// RecordError counts one task that finished with a task-local error.
func (t *Telemetry) RecordError() {
	t.mu.Lock()
	t.m.TaskErrors++
	t.mu.Unlock()
}

// SetThermal implements thermal.Sink.
func (t *Telemetry) SetThermal(current float64, throttled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m.CurrentTemp = current
	if current > t.m.PeakTemp {
		t.m.PeakTemp = current
	}
	t.m.Throttling = throttled
}

// Snapshot copies the aggregates under the lock and computes the derived
// fields on the copy. Callers never observe partial updates.
func (t *Telemetry) Snapshot() Metrics {
	t.mu.Lock()
	m := t.m
	t.mu.Unlock()

	if m.TotalProcessing > 0 {
		m.AvgLinesPerSec = float64(m.TotalLines) / m.TotalProcessing.Seconds()
		m.SpeedupVsBaseline = m.AvgLinesPerSec / BaselineLinesPerSec
		m.TargetAchievementPct = m.AvgLinesPerSec / TargetLinesPerSec * 100
	}
	return m
}
