package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Equal(t, 10*time.Second, cfg.PushTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Second, cfg.KafkaTimeout)
	assert.False(t, cfg.PushEnabled())
	assert.False(t, cfg.PublishEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "/var/log/windassess.log")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("PUSH_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "assessments")
	t.Setenv("KAFKA_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/var/log/windassess.log", cfg.LogFile)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.Equal(t, 5*time.Second, cfg.PushTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "assessments", cfg.KafkaTopic)
	assert.Equal(t, 30*time.Second, cfg.KafkaTimeout)
	assert.True(t, cfg.PushEnabled())
	assert.True(t, cfg.PublishEnabled())
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestLoad_InvalidPushTimeout(t *testing.T) {
	t.Setenv("PUSH_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUSH_TIMEOUT")
}

func TestLoad_NegativePushTimeout(t *testing.T) {
	t.Setenv("PUSH_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUSH_TIMEOUT")
}

func TestLoad_InvalidPushgatewayURL(t *testing.T) {
	t.Setenv("PUSHGATEWAY_URL", "not a url")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUSHGATEWAY_URL")
}

func TestLoad_InvalidKafkaTimeout(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker:9092")
	t.Setenv("KAFKA_TOPIC", "assessments")
	t.Setenv("KAFKA_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_TIMEOUT")
}

func TestLoad_TopicRequiredWithBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker:9092")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_TOPIC")
}
