package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linehawk/linehawk/internal/telemetry"
)

// Config is the full application configuration.
type Config struct {
	Engine  EngineConfig             `yaml:"engine"`
	Thermal ThermalConfig            `yaml:"thermal"`
	Metrics telemetry.ExporterConfig `yaml:"metrics"`
	Logging LoggingConfig            `yaml:"logging"`
}

// EngineConfig controls the worker pool, the queues, and backend selection.
type EngineConfig struct {
	// Workers overrides the one-per-physical-core default. Zero means
	// one worker per core in the hardware profile.
	Workers int `yaml:"workers"`
	// NumQueues overrides the one-queue-per-four-cores default.
	NumQueues int `yaml:"num_queues"`
	// QueueCapacity is the ring size of each work queue.
	QueueCapacity int `yaml:"queue_capacity"`
	// IdleBackoff bounds the sleep of a worker that found no work to pop
	// or steal. Tests shrink it; behavior is unchanged.
	IdleBackoff time.Duration `yaml:"idle_backoff"`
	// ThrottleBackoffFactor multiplies the idle backoff of workers whose
	// cores are preferred for idling while the throttling flag is set.
	ThrottleBackoffFactor int `yaml:"throttle_backoff_factor"`
	// PinWorkers enables CPU affinity pinning of worker threads.
	PinWorkers bool `yaml:"pin_workers"`
	// AcceleratorEnabled gates the accelerator backend even when the
	// hardware probe reports one.
	AcceleratorEnabled bool `yaml:"accelerator_enabled"`
	// AcceleratorMinBytes is the smallest payload worth the offload
	// dispatch overhead; smaller tasks run on the vector backend.
	AcceleratorMinBytes int `yaml:"accelerator_min_bytes"`
	// AcceleratorTensorBytes is the device staging buffer size. Larger
	// payloads fail over to the vector backend.
	AcceleratorTensorBytes int `yaml:"accelerator_tensor_bytes"`
}

// ThermalConfig controls the thermal monitor.
type ThermalConfig struct {
	Interval time.Duration `yaml:"interval"`
	// CeilingCelsius of zero uses the hardware profile's ceiling.
	CeilingCelsius    float64 `yaml:"ceiling_celsius"`
	HysteresisCelsius float64 `yaml:"hysteresis_celsius"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"` // json or console
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			QueueCapacity:          64,
			IdleBackoff:            time.Millisecond,
			ThrottleBackoffFactor:  8,
			PinWorkers:             true,
			AcceleratorEnabled:     true,
			AcceleratorMinBytes:    4096,
			AcceleratorTensorBytes: 1 << 20,
		},
		Thermal: ThermalConfig{
			Interval:          time.Second,
			HysteresisCelsius: 5,
		},
		Metrics: telemetry.ExporterConfig{
			Enabled:        true,
			ListenAddr:     ":9090",
			MetricsPath:    "/metrics",
			UpdateInterval: 5 * time.Second,
			Namespace:      "linehawk",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative")
	}
	if c.Engine.NumQueues < 0 {
		return fmt.Errorf("engine.num_queues must not be negative")
	}
	if c.Engine.QueueCapacity <= 0 {
		return fmt.Errorf("engine.queue_capacity must be positive")
	}
	if c.Engine.IdleBackoff <= 0 {
		return fmt.Errorf("engine.idle_backoff must be positive")
	}
	if c.Engine.ThrottleBackoffFactor < 1 {
		return fmt.Errorf("engine.throttle_backoff_factor must be at least 1")
	}
	if c.Thermal.Interval <= 0 {
		return fmt.Errorf("thermal.interval must be positive")
	}
	if c.Thermal.HysteresisCelsius < 0 {
		return fmt.Errorf("thermal.hysteresis_celsius must not be negative")
	}
	switch c.Logging.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.encoding must be json or console")
	}
	return nil
}
