package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 15*time.Second, cfg.ServiceTimeout)
	assert.Equal(t, 30*time.Second, cfg.BatchTimeout)
	assert.Equal(t, 60.0, cfg.DefaultElevation)
	assert.Equal(t, 0.0, cfg.DefaultAzimuth)
	assert.Equal(t, 1.26, cfg.DefaultRadarFrequency)
	assert.False(t, cfg.ExposeStderr)
	assert.Equal(t, 5.0, cfg.FeedMinMagnitude)
	assert.Equal(t, 4, cfg.FeedConcurrency)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVICE_TIMEOUT_SEC", "3")
	t.Setenv("DEFAULT_ELEVATION", "45.5")
	t.Setenv("EXPOSE_STDERR", "true")
	t.Setenv("WORKER_POOL_SIZE", "not-a-number")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.ServiceTimeout)
	assert.Equal(t, 45.5, cfg.DefaultElevation)
	assert.True(t, cfg.ExposeStderr)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing binary", func(c *Config) { c.DislocBinary = "" }},
		{"missing root", func(c *Config) { c.OutputRoot = "" }},
		{"zero timeout", func(c *Config) { c.ServiceTimeout = 0 }},
		{"bad frequency", func(c *Config) { c.DefaultRadarFrequency = -1 }},
		{"no workers", func(c *Config) { c.WorkerPoolSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "job_id", "disloc00012024")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "disloc00012024", line["job_id"])
}
