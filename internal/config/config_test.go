package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/agrisense/internal/executor"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, executor.DefaultOptions(), cfg.ExecutorOptions())
	assert.False(t, cfg.InfluxEnabled())
	assert.False(t, cfg.MQTTEnabled())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, t.TempDir(), "agrisense.yaml", `
base_url: http://inference.local:9000
timeout_ms: 5000
max_retries: 3
mqtt:
  host: broker.local
  outcome_topic: farm/{operation}
influx:
  url: http://influx:8086
`)
	t.Setenv("AGRISENSE_MAX_RETRIES", "0")
	t.Setenv("MQTT_PORT", "1884")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://inference.local:9000", cfg.BaseURL, "yaml over default")
	assert.Equal(t, 5000, cfg.TimeoutMs)
	assert.Equal(t, 0, cfg.MaxRetries, "environment over yaml")
	assert.Equal(t, 1000, cfg.RetryBackoffMs, "untouched default")
	assert.Equal(t, executor.Options{Timeout: 5 * time.Second, MaxRetries: 0, RetryDelay: time.Second}, cfg.ExecutorOptions())

	assert.True(t, cfg.MQTTEnabled())
	b := cfg.Broker()
	assert.Equal(t, "broker.local", b.Host)
	assert.Equal(t, 1884, b.Port)
	assert.Equal(t, "farm/{operation}", cfg.MQTT.OutcomeTopic)

	assert.True(t, cfg.InfluxEnabled())
	assert.Equal(t, "analysis", cfg.InfluxTarget().Bucket)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "AGRISENSE_BREAKER_FAILURES=4\n")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("AGRISENSE_BREAKER_FAILURES")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.BreakerFailures)
	assert.Equal(t, 10*time.Second, cfg.BreakerOpenFor())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, t.TempDir(), "bad.yaml", "timeout_ms: [1, 2")
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("AGRISENSE_TIMEOUT_MS", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "AGRISENSE_TIMEOUT_MS")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"relative base url": func(c *Config) { c.BaseURL = "inference.local" },
		"ftp base url":      func(c *Config) { c.BaseURL = "ftp://inference.local" },
		"path without /":    func(c *Config) { c.SoilPath = "api/analyze/soil" },
		"zero timeout":      func(c *Config) { c.TimeoutMs = 0 },
		"negative retries":  func(c *Config) { c.MaxRetries = -1 },
		"zero backoff":      func(c *Config) { c.RetryBackoffMs = 0 },
		"negative breaker":  func(c *Config) { c.BreakerFailures = -2 },
		"bad mqtt port":     func(c *Config) { c.MQTT.Host = "b"; c.MQTT.Port = 70000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	c := Default()
	c.MaxRetries = 0
	assert.NoError(t, c.Validate(), "zero retries is allowed")
}
