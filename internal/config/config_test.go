package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"CONFIG_FILE", "PORT", "STATUS_AUTH_TOKEN", "DASHBOARD_TITLE", "STATUS_FILE",
	"RELAY_URL", "RELAY_AGENT_SECRET", "RELAY_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	"OTLP_ENDPOINT", "SERVICE_NAME", "MQTT_BROKER_URL", "MQTT_TOPIC_PREFIX",
	"ENABLE_METRICS", "ENABLE_TRACING",
}

// clearEnv unsets every key Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		if old, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, old) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.RelayTimeout)
	assert.False(t, cfg.FileMode())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("STATUS_AUTH_TOKEN", "tok")
	t.Setenv("RELAY_URL", "http://relay:9000")
	t.Setenv("RELAY_TIMEOUT", "3s")
	t.Setenv("STATUS_FILE", "/var/lib/agent/status.json")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("ENABLE_TRACING", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "tok", cfg.AuthToken)
	assert.Equal(t, "http://relay:9000", cfg.RelayURL)
	assert.Equal(t, 3*time.Second, cfg.RelayTimeout)
	assert.True(t, cfg.FileMode())
	assert.False(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing, "unparseable booleans keep the default")
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "statusboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
title: Lab
relay_url: http://from-file
relay_timeout: 2s
mqtt_broker_url: tcp://broker:1883
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RELAY_URL", "http://from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "Lab", cfg.Title)
	assert.Equal(t, "http://from-env", cfg.RelayURL, "environment wins over the file")
	assert.Equal(t, 2*time.Second, cfg.RelayTimeout)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBrokerURL)
	assert.Equal(t, "statusboard", cfg.MQTTTopicPrefix)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o644))
		t.Setenv("CONFIG_FILE", path)
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "http")
		_, err := Load()
		assert.Error(t, err)
	})
}
