package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "MQTT_BROKER", "MQTT_PORT", "MQTT_TOPIC", "MQTT_USERNAME", "MQTT_PASSWORD",
	"DISCOVERY_PREFIX", "DEVICE_ID", "DATA_DIR", "PUBLISH_INTERVAL", "FLUSH_AT",
	"TIMEZONE", "FLUSH_ON_SHUTDOWN", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8124, cfg.Port)
	require.Equal(t, "localhost", cfg.MQTTBroker)
	require.Equal(t, 1883, cfg.MQTTPort)
	require.Equal(t, "bresser/weather", cfg.MQTTTopic)
	require.Equal(t, "homeassistant", cfg.DiscoveryPrefix)
	require.Equal(t, "bresser", cfg.DeviceID)
	require.Equal(t, "/data", cfg.DataDir)
	require.Equal(t, 10*time.Minute, cfg.PublishInterval)
	require.Equal(t, "21:00", cfg.FlushAt)
	require.Equal(t, "Europe/Berlin", cfg.Location.String())
	require.True(t, cfg.FlushOnShutdown)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MQTT_BROKER", "192.168.1.20")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_TOPIC", "pws/state")
	t.Setenv("PUBLISH_INTERVAL", "30s")
	t.Setenv("FLUSH_AT", "06:30")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("FLUSH_ON_SHUTDOWN", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "192.168.1.20", cfg.MQTTBroker)
	require.Equal(t, 8883, cfg.MQTTPort)
	require.Equal(t, "pws/state", cfg.MQTTTopic)
	require.Equal(t, 30*time.Second, cfg.PublishInterval)
	require.Equal(t, "06:30", cfg.FlushAt)
	require.Equal(t, time.UTC, cfg.Location)
	require.False(t, cfg.FlushOnShutdown)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"MQTT_PORT":         "not-a-number",
		"PUBLISH_INTERVAL":  "often",
		"FLUSH_AT":          "9pm",
		"TIMEZONE":          "Mars/Olympus",
		"LOG_LEVEL":         "loud",
		"FLUSH_ON_SHUTDOWN": "maybe",
		"DEVICE_ID":         "bad/id",
		"PORT":              "70000",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsTooShortInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUBLISH_INTERVAL", "10ms")

	_, err := Load()
	require.Error(t, err)
}
