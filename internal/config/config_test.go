package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, "posture/+/frames", cfg.Posture.Topics.Frames)
	assert.Equal(t, "posture/+/telemetry", cfg.Posture.Topics.Telemetry)
	assert.Equal(t, "posture/+/control", cfg.Posture.Topics.Control)

	assert.Equal(t, "vital-focus:posture:", cfg.Posture.Cache.RealtimeKeyPrefix)
	assert.Equal(t, 30, cfg.Posture.Cache.RealtimeTTL)
	assert.Equal(t, "posture:warnings:stream", cfg.Posture.Cache.WarningStream)

	assert.Equal(t, 1.0, cfg.Posture.MinIntervalSeconds)
	assert.Equal(t, 60, cfg.Posture.WarningThresholdSeconds)
	assert.Equal(t, 30, cfg.Posture.ReduceQualityWindowSeconds)
	assert.Equal(t, 3, cfg.Posture.RecoveryDelaySeconds)
	assert.Equal(t, 5, cfg.Posture.TelemetryPublishSeconds)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("POSTURE_WARNING_THRESHOLD", "120")
	t.Setenv("POSTURE_TOPIC_FRAMES", "sensing/+/frames")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 120, cfg.Posture.WarningThresholdSeconds)
	assert.Equal(t, "sensing/+/frames", cfg.Posture.Topics.Frames)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("POSTURE_WARNING_THRESHOLD", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Posture.WarningThresholdSeconds)
}

func TestDatabaseDSN(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	dsn := cfg.Database.GetDSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "sslmode=disable")
}
