package thermal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubSource replays a scripted temperature sequence, holding the last
// value once exhausted.
type stubSource struct {
	mu    sync.Mutex
	temps []float64
	idx   int
}

func (s *stubSource) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx < len(s.temps)-1 {
		s.idx++
		return s.temps[s.idx-1], nil
	}
	return s.temps[len(s.temps)-1], nil
}

type recordingSink struct {
	mu      sync.Mutex
	samples []float64
	flags   []bool
}

func (r *recordingSink) SetThermal(current float64, throttled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, current)
	r.flags = append(r.flags, throttled)
}

func (r *recordingSink) last() (float64, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.samples) == 0 {
		return 0, false, false
	}
	return r.samples[len(r.samples)-1], r.flags[len(r.flags)-1], true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestThrottlingSetAndHeld(t *testing.T) {
	src := &stubSource{temps: []float64{70, 98, 93}}
	sink := &recordingSink{}
	m := New(zap.NewNop(), src, sink, time.Millisecond, 95, 5)
	m.Start()
	defer m.Stop()

	waitFor(t, m.Throttled)

	// 93 is under the ceiling but inside the hysteresis band, so the
	// flag must stay set.
	waitFor(t, func() bool {
		temp, _, ok := sink.last()
		return ok && temp == 93
	})
	assert.True(t, m.Throttled())
}

func TestThrottlingClearsBelowHysteresis(t *testing.T) {
	src := &stubSource{temps: []float64{98, 93, 89}}
	sink := &recordingSink{}
	m := New(zap.NewNop(), src, sink, time.Millisecond, 95, 5)
	m.Start()
	defer m.Stop()

	waitFor(t, m.Throttled)
	waitFor(t, func() bool { return !m.Throttled() })

	temp, throttled, ok := sink.last()
	require.True(t, ok)
	assert.Equal(t, 89.0, temp)
	assert.False(t, throttled)
}

func TestNoSensorNeverThrottles(t *testing.T) {
	src := &failingSource{}
	m := New(zap.NewNop(), src, nil, time.Millisecond, 95, 5)
	m.Start()
	defer m.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, m.Throttled())
}

type failingSource struct{}

func (f *failingSource) Read() (float64, error) {
	return 0, ErrNoSensor
}

func TestStopIsIdempotent(t *testing.T) {
	m := New(zap.NewNop(), &failingSource{}, nil, time.Millisecond, 95, 5)
	m.Start()
	m.Stop()
	m.Stop()
}
