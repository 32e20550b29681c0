package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port      string `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
	Title     string `yaml:"title"`

	// Source; empty means in-memory ingest mode
	StatusFile string `yaml:"status_file"`

	// Relay
	RelayURL     string        `yaml:"relay_url"`
	RelaySecret  string        `yaml:"relay_secret"`
	RelayTimeout time.Duration `yaml:"relay_timeout"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" or "text"

	// Tracing
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`

	// MQTT
	MQTTBrokerURL   string `yaml:"mqtt_broker_url"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix"`

	// Features
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:            "3000",
		Title:           "Agent Dashboard",
		RelayTimeout:    10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
		ServiceName:     "statusboard",
		MQTTTopicPrefix: "statusboard",
		EnableMetrics:   true,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any) and the environment, in increasing precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AuthToken = getEnv("STATUS_AUTH_TOKEN", cfg.AuthToken)
	cfg.Title = getEnv("DASHBOARD_TITLE", cfg.Title)
	cfg.StatusFile = getEnv("STATUS_FILE", cfg.StatusFile)
	cfg.RelayURL = getEnv("RELAY_URL", cfg.RelayURL)
	cfg.RelaySecret = getEnv("RELAY_AGENT_SECRET", cfg.RelaySecret)
	cfg.RelayTimeout = getEnvDuration("RELAY_TIMEOUT", cfg.RelayTimeout)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.OTLPEndpoint = getEnv("OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.MQTTBrokerURL = getEnv("MQTT_BROKER_URL", cfg.MQTTBrokerURL)
	cfg.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", cfg.MQTTTopicPrefix)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	if c.RelayTimeout < 0 {
		return fmt.Errorf("relay timeout must not be negative")
	}
	return nil
}

// FileMode reports whether the server reads from a status file instead of
// accepting pushes.
func (c *Config) FileMode() bool {
	return c.StatusFile != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
