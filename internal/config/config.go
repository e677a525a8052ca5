package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	// HTTP port the station pushes to.
	Port int `validate:"min=1,max=65535"`

	MQTTBroker   string `validate:"required,hostname_rfc1123|ip"`
	MQTTPort     int    `validate:"min=1,max=65535"`
	MQTTTopic    string `validate:"required"`
	MQTTUsername string
	MQTTPassword string

	// Home Assistant discovery.
	DiscoveryPrefix string `validate:"required"`
	DeviceID        string `validate:"required,excludesall=/+#"`

	// Daily CSV files are written here.
	DataDir string `validate:"required"`

	PublishInterval time.Duration  `validate:"min=1s"`
	FlushAt         string         `validate:"required"`
	Location        *time.Location `validate:"required"`
	FlushOnShutdown bool

	LogLevel slog.Level
}

// Load reads configuration from environment (and .env if present) with sensible defaults.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		MQTTBroker:      getenvDefault("MQTT_BROKER", "localhost"),
		MQTTTopic:       getenvDefault("MQTT_TOPIC", "bresser/weather"),
		MQTTUsername:    strings.TrimSpace(os.Getenv("MQTT_USERNAME")),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		DiscoveryPrefix: getenvDefault("DISCOVERY_PREFIX", "homeassistant"),
		DeviceID:        getenvDefault("DEVICE_ID", "bresser"),
		DataDir:         getenvDefault("DATA_DIR", "/data"),
		FlushAt:         getenvDefault("FLUSH_AT", "21:00"),
	}

	var err error
	if cfg.Port, err = getenvInt("PORT", 8124); err != nil {
		return nil, err
	}
	if cfg.MQTTPort, err = getenvInt("MQTT_PORT", 1883); err != nil {
		return nil, err
	}
	if cfg.FlushOnShutdown, err = getenvBool("FLUSH_ON_SHUTDOWN", true); err != nil {
		return nil, err
	}

	interval, err := time.ParseDuration(getenvDefault("PUBLISH_INTERVAL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PUBLISH_INTERVAL: %w", err)
	}
	cfg.PublishInterval = interval

	if _, err := time.Parse("15:04", cfg.FlushAt); err != nil {
		return nil, fmt.Errorf("invalid FLUSH_AT %q: want HH:MM", cfg.FlushAt)
	}

	loc, err := time.LoadLocation(getenvDefault("TIMEZONE", "Europe/Berlin"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
