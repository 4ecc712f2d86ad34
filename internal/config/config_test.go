package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	// Durations are integer nanoseconds; yaml.v3 has no duration-string
	// decoding.
	data := []byte(`
engine:
  workers: 4
  num_queues: 2
  queue_capacity: 128
  idle_backoff: 500000
thermal:
  interval: 250000000
  ceiling_celsius: 90
logging:
  level: debug
  encoding: json
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 2, cfg.Engine.NumQueues)
	assert.Equal(t, 128, cfg.Engine.QueueCapacity)
	assert.Equal(t, 500*time.Microsecond, cfg.Engine.IdleBackoff)
	assert.Equal(t, 250*time.Millisecond, cfg.Thermal.Interval)
	assert.Equal(t, 90.0, cfg.Thermal.CeilingCelsius)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8, cfg.Engine.ThrottleBackoffFactor)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }},
		{"zero queue capacity", func(c *Config) { c.Engine.QueueCapacity = 0 }},
		{"zero idle backoff", func(c *Config) { c.Engine.IdleBackoff = 0 }},
		{"zero throttle factor", func(c *Config) { c.Engine.ThrottleBackoffFactor = 0 }},
		{"zero thermal interval", func(c *Config) { c.Thermal.Interval = 0 }},
		{"bad encoding", func(c *Config) { c.Logging.Encoding = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
