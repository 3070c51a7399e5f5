// Package config loads operational settings from the environment.
//
// Assessment parameters (site, years, heights, turbine) are plain
// command-line arguments. The environment only carries deployment
// concerns: log routing, metrics push, and report publishing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config holds all operational settings, populated from environment variables.
type Config struct {
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`
	LogFile   string // when set, logs are written here with rotation

	// Prometheus Pushgateway endpoint for batch-run metrics.
	// Empty disables the push.
	PushgatewayURL string        `validate:"omitempty,url"`
	PushTimeout    time.Duration `validate:"gt=0"`

	// Kafka publishing of finished reports. An empty broker list
	// disables it.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaTimeout time.Duration `validate:"gt=0"`
}

// PushEnabled reports whether run metrics are pushed to a Pushgateway.
func (c *Config) PushEnabled() bool { return c.PushgatewayURL != "" }

// PublishEnabled reports whether finished reports are published to Kafka.
func (c *Config) PublishEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	pushTimeout, err := parseDuration("PUSH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	kafkaTimeout, err := parseDuration("KAFKA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "text"),
		LogFile:        os.Getenv("LOG_FILE"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		PushTimeout:    pushTimeout,
		KafkaBrokers:   splitBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     os.Getenv("KAFKA_TOPIC"),
		KafkaTimeout:   kafkaTimeout,
	}

	if cfg.PublishEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig runs struct validation and names the offending
// environment variable in the error.
func validateConfig(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].StructField()
		name, ok := envNames[field]
		if !ok {
			name = field
		}
		return fmt.Errorf("invalid %s: fails %q", name, verrs[0].Tag())
	}
	return err
}

var envNames = map[string]string{
	"LogLevel":       "LOG_LEVEL",
	"LogFormat":      "LOG_FORMAT",
	"LogFile":        "LOG_FILE",
	"PushgatewayURL": "PUSHGATEWAY_URL",
	"PushTimeout":    "PUSH_TIMEOUT",
	"KafkaTimeout":   "KAFKA_TIMEOUT",
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func parseDuration(name, fallback string) (time.Duration, error) {
	s := envOrDefault(name, fallback)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return d, nil
}

// splitBrokers parses a comma-separated broker list, dropping empty entries.
func splitBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
