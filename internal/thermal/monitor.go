package thermal

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

// Source reads the current package temperature in degrees Celsius.
type Source interface {
	Read() (float64, error)
}

// Sink receives thermal samples. The telemetry aggregator implements it.
type Sink interface {
	SetThermal(current float64, throttled bool)
}

// ErrNoSensor means no temperature source is available on this host.
// Throttling is then simply never signalled; the engine stays correct.
var ErrNoSensor = errors.New("thermal: no temperature sensor available")

// DefaultHysteresis is how far below the ceiling a sample must fall before
// the throttling flag clears, preventing flapping around the ceiling.
const DefaultHysteresis = 5.0

// Monitor samples a temperature source at a fixed interval and maintains
// the advisory throttling flag consumed by the scheduler.
type Monitor struct {
	logger     *zap.Logger
	source     Source
	sink       Sink
	interval   time.Duration
	ceiling    float64
	hysteresis float64

	throttled atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New creates a monitor. A nil source selects the platform sensor source;
// interval <= 0 defaults to one second.
func New(logger *zap.Logger, source Source, sink Sink, interval time.Duration, ceiling, hysteresis float64) *Monitor {
	if source == nil {
		source = NewSensorSource()
	}
	if interval <= 0 {
		interval = time.Second
	}
	if hysteresis <= 0 {
		hysteresis = DefaultHysteresis
	}
	return &Monitor{
		logger:     logger,
		source:     source,
		sink:       sink,
		interval:   interval,
		ceiling:    ceiling,
		hysteresis: hysteresis,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the sampling goroutine. Subsequent calls are no-ops.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// Stop terminates sampling and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}

// Throttled reports the current advisory throttling state.
func (m *Monitor) Throttled() bool {
	return m.throttled.Load()
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	temp, err := m.source.Read()
	if err != nil {
		// No sensor means no throttling signal, by design of the
		// degraded profile: correctness never depends on the sensor.
		return
	}

	throttled := m.throttled.Load()
	switch {
	case temp > m.ceiling && !throttled:
		throttled = true
		m.logger.Warn("Thermal throttling active",
			zap.Float64("temperature", temp),
			zap.Float64("ceiling", m.ceiling),
		)
	case temp < m.ceiling-m.hysteresis && throttled:
		throttled = false
		m.logger.Info("Thermal throttling cleared",
			zap.Float64("temperature", temp),
		)
	}
	m.throttled.Store(throttled)

	if m.sink != nil {
		m.sink.SetThermal(temp, throttled)
	}
}

// SensorSource reads the CPU package temperature from the platform sensor
// stack, preferring gopsutil's sensor enumeration with a sysfs thermal-zone
// fallback.
type SensorSource struct {
	thermalPath string
}

// NewSensorSource creates the platform sensor source.
func NewSensorSource() *SensorSource {
	return &SensorSource{thermalPath: "/sys/class/thermal"}
}

// Read implements Source. It averages the CPU-related sensors it can find
// and returns ErrNoSensor when there are none.
func (s *SensorSource) Read() (float64, error) {
	if temps, err := host.SensorsTemperatures(); err == nil {
		var sum float64
		var n int
		for _, t := range temps {
			key := strings.ToLower(t.SensorKey)
			if t.Temperature <= 0 {
				continue
			}
			if strings.Contains(key, "coretemp") || strings.Contains(key, "k10temp") ||
				strings.Contains(key, "cpu") || strings.Contains(key, "package") {
				sum += t.Temperature
				n++
			}
		}
		if n > 0 {
			return sum / float64(n), nil
		}
	}
	return s.readThermalZones()
}

func (s *SensorSource) readThermalZones() (float64, error) {
	zones, err := filepath.Glob(filepath.Join(s.thermalPath, "thermal_zone*", "temp"))
	if err != nil || len(zones) == 0 {
		return 0, ErrNoSensor
	}

	var sum float64
	var n int
	for _, zone := range zones {
		data, err := os.ReadFile(zone)
		if err != nil {
			continue
		}
		milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		sum += float64(milli) / 1000.0
		n++
	}
	if n == 0 {
		return 0, ErrNoSensor
	}
	return sum / float64(n), nil
}
