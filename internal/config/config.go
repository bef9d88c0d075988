// Package config loads the client settings: defaults, then an optional YAML
// file, then the environment (a .env file is read into it first).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/agrisense/internal/executor"
	"github.com/LeonardoBeccarini/agrisense/internal/orchestrator"
	"github.com/LeonardoBeccarini/agrisense/internal/telemetry"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
)

type Config struct {
	BaseURL     string `yaml:"base_url"`
	SoilPath    string `yaml:"soil_path"`
	DiseasePath string `yaml:"disease_path"`

	TimeoutMs      int `yaml:"timeout_ms"`
	MaxRetries     int `yaml:"max_retries"`
	RetryBackoffMs int `yaml:"retry_backoff_ms"`

	BreakerFailures int `yaml:"breaker_failures"` // 0 = disabled
	BreakerOpenMs   int `yaml:"breaker_open_ms"`

	MetricsAddr string `yaml:"metrics_addr"` // empty = disabled

	Influx InfluxConfig `yaml:"influx"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// InfluxConfig is disabled when URL is empty.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// MQTTConfig is disabled when Host is empty.
type MQTTConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	ClientID     string `yaml:"client_id"`
	OutcomeTopic string `yaml:"outcome_topic"`
}

func Default() Config {
	return Config{
		BaseURL:        "http://127.0.0.1:8000",
		SoilPath:       orchestrator.DefaultSoilPath,
		DiseasePath:    orchestrator.DefaultDiseasePath,
		TimeoutMs:      int(executor.DefaultTimeout / time.Millisecond),
		MaxRetries:     executor.DefaultMaxRetries,
		RetryBackoffMs: int(executor.DefaultRetryDelay / time.Millisecond),
		BreakerOpenMs:  10000,
		Influx: InfluxConfig{
			Org:    "agrisense",
			Bucket: "analysis",
		},
		MQTT: MQTTConfig{
			Port:         1883,
			ClientID:     "agrisense-cli",
			OutcomeTopic: telemetry.DefaultOutcomeTopic,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error, a missing YAML file is.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("config: load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.BaseURL = envStr("AGRISENSE_BASE_URL", c.BaseURL)
	c.SoilPath = envStr("AGRISENSE_SOIL_PATH", c.SoilPath)
	c.DiseasePath = envStr("AGRISENSE_DISEASE_PATH", c.DiseasePath)
	c.MetricsAddr = envStr("METRICS_ADDR", c.MetricsAddr)

	c.Influx.URL = envStr("INFLUX_URL", c.Influx.URL)
	c.Influx.Token = envStr("INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = envStr("INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = envStr("INFLUX_BUCKET", c.Influx.Bucket)

	c.MQTT.Host = envStr("MQTT_HOST", c.MQTT.Host)
	c.MQTT.User = envStr("MQTT_USER", c.MQTT.User)
	c.MQTT.Password = envStr("MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.ClientID = envStr("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.OutcomeTopic = envStr("OUTCOME_TOPIC", c.MQTT.OutcomeTopic)

	ints := []struct {
		key string
		dst *int
	}{
		{"AGRISENSE_TIMEOUT_MS", &c.TimeoutMs},
		{"AGRISENSE_MAX_RETRIES", &c.MaxRetries},
		{"AGRISENSE_RETRY_BACKOFF_MS", &c.RetryBackoffMs},
		{"AGRISENSE_BREAKER_FAILURES", &c.BreakerFailures},
		{"AGRISENSE_BREAKER_OPEN_MS", &c.BreakerOpenMs},
		{"MQTT_PORT", &c.MQTT.Port},
	}
	for _, it := range ints {
		v, err := envInt(it.key, *it.dst)
		if err != nil {
			return err
		}
		*it.dst = v
	}
	return nil
}

// Validate rejects settings the executor cannot work with.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: base URL %q must be an absolute http(s) URL", c.BaseURL)
	}
	if !strings.HasPrefix(c.SoilPath, "/") || !strings.HasPrefix(c.DiseasePath, "/") {
		return errors.New("config: endpoint paths must start with /")
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("config: timeout must be > 0, got %dms", c.TimeoutMs)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RetryBackoffMs <= 0 {
		return fmt.Errorf("config: retry backoff must be > 0, got %dms", c.RetryBackoffMs)
	}
	if c.BreakerFailures < 0 {
		return fmt.Errorf("config: breaker failures must be >= 0, got %d", c.BreakerFailures)
	}
	if c.MQTT.Host != "" && (c.MQTT.Port <= 0 || c.MQTT.Port > 65535) {
		return fmt.Errorf("config: invalid MQTT port %d", c.MQTT.Port)
	}
	return nil
}

func (c Config) ExecutorOptions() executor.Options {
	return executor.Options{
		Timeout:    time.Duration(c.TimeoutMs) * time.Millisecond,
		MaxRetries: c.MaxRetries,
		RetryDelay: time.Duration(c.RetryBackoffMs) * time.Millisecond,
	}
}

func (c Config) BreakerOpenFor() time.Duration {
	return time.Duration(c.BreakerOpenMs) * time.Millisecond
}

func (c Config) InfluxEnabled() bool { return c.Influx.URL != "" }
func (c Config) MQTTEnabled() bool   { return c.MQTT.Host != "" }

func (c Config) Broker() broker.Config {
	return broker.Config{
		Host:     c.MQTT.Host,
		Port:     c.MQTT.Port,
		User:     c.MQTT.User,
		Password: c.MQTT.Password,
		ClientID: c.MQTT.ClientID,
	}
}

func (c Config) InfluxTarget() telemetry.InfluxConfig {
	return telemetry.InfluxConfig{
		URL:    c.Influx.URL,
		Token:  c.Influx.Token,
		Org:    c.Influx.Org,
		Bucket: c.Influx.Bucket,
	}
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("config: %s=%q is not an integer", key, v)
	}
	return n, nil
}
