package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linehawk/linehawk/internal/task"
)

func TestRecordAndSnapshot(t *testing.T) {
	tel := New()

	tel.Record(task.Result{
		Lines:    100,
		Bytes:    4096,
		Backend:  "vector",
		Duration: time.Millisecond,
	})
	tel.Record(task.Result{
		Lines:    50,
		Bytes:    2048,
		Backend:  "accelerator",
		Duration: time.Millisecond,
	})
	tel.RecordSteal()
	tel.RecordFallback()
	tel.RecordError()

	m := tel.Snapshot()
	assert.Equal(t, uint64(2), m.TotalOps)
	assert.Equal(t, uint64(150), m.TotalLines)
	assert.Equal(t, uint64(6144), m.TotalBytes)
	assert.Equal(t, uint64(1), m.VectorOps)
	assert.Equal(t, uint64(1), m.AcceleratorOps)
	assert.Equal(t, uint64(1), m.Steals)
	assert.Equal(t, uint64(1), m.Fallbacks)
	assert.Equal(t, uint64(1), m.TaskErrors)
}

func TestDerivedFieldsComputedAtSnapshot(t *testing.T) {
	tel := New()
	tel.Record(task.Result{
		Lines:    930_000,
		Backend:  "vector",
		Duration: time.Millisecond,
	})

	m := tel.Snapshot()
	assert.InDelta(t, 930e6, m.AvgLinesPerSec, 1e3)
	assert.InDelta(t, 1.0, m.SpeedupVsBaseline, 0.01)
	assert.InDelta(t, 930e6/15e9*100, m.TargetAchievementPct, 0.01)
}

func TestPeakTracksFastestTask(t *testing.T) {
	tel := New()
	tel.Record(task.Result{Lines: 10, Duration: time.Second, Backend: "vector"})
	tel.Record(task.Result{Lines: 1000, Duration: time.Millisecond, Backend: "vector"})
	tel.Record(task.Result{Lines: 10, Duration: time.Second, Backend: "vector"})

	m := tel.Snapshot()
	assert.InDelta(t, 1e6, m.PeakLinesPerSec, 1e3)
}

func TestThermalState(t *testing.T) {
	tel := New()
	tel.SetThermal(88, false)
	tel.SetThermal(97, true)
	tel.SetThermal(91, true)

	m := tel.Snapshot()
	assert.Equal(t, 91.0, m.CurrentTemp)
	assert.Equal(t, 97.0, m.PeakTemp)
	assert.True(t, m.Throttling)
}

func TestConcurrentRecording(t *testing.T) {
	tel := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				tel.Record(task.Result{Lines: 1, Bytes: 1, Backend: "vector", Duration: time.Microsecond})
				tel.Snapshot()
			}
		}()
	}
	wg.Wait()

	m := tel.Snapshot()
	assert.Equal(t, uint64(4000), m.TotalOps)
	assert.Equal(t, uint64(4000), m.TotalLines)
}
