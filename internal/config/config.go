package config

import (
	"os"
	"strconv"

	"wisefido-posture/internal/common/config"
)

// Config 姿态监测服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// 姿态服务特定配置
	Posture struct {
		// MQTT 主题配置（+ 为设备ID通配）
		Topics struct {
			Frames    string // 帧观测主题，如 "posture/+/frames"
			Telemetry string // 设备遥测主题，如 "posture/+/telemetry"
			Control   string // 会话控制主题，如 "posture/+/control"
		}

		// Redis 缓存配置
		Cache struct {
			RealtimeKeyPrefix string // 实时姿态键前缀，如 "vital-focus:posture:"
			RealtimeSuffix    string // 实时姿态键后缀，如 ":realtime"
			TelemetrySuffix   string // 遥测快照键后缀，如 ":telemetry"
			RealtimeTTL       int    // 实时键 TTL（秒），默认 30秒
			WarningStream     string // 警告事件流
			SessionStream     string // 会话完成事件流
		}

		// 管线参数
		MinIntervalSeconds         float64 // 姿态区间去抖阈值（秒），默认 1.0
		WarningThresholdSeconds    int     // 警告阈值（秒），默认 60
		ReduceQualityWindowSeconds int     // 内存警告降质窗口（秒），默认 30
		RecoveryDelaySeconds       int     // 帧门限退避恢复延迟（秒），默认 3
		TelemetryPublishSeconds    int     // 遥测快照发布间隔（秒），默认 5
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitalfocus")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-posture")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	// 姿态服务配置
	cfg.Posture.Topics.Frames = getEnv("POSTURE_TOPIC_FRAMES", "posture/+/frames")
	cfg.Posture.Topics.Telemetry = getEnv("POSTURE_TOPIC_TELEMETRY", "posture/+/telemetry")
	cfg.Posture.Topics.Control = getEnv("POSTURE_TOPIC_CONTROL", "posture/+/control")

	cfg.Posture.Cache.RealtimeKeyPrefix = getEnv("CACHE_POSTURE_PREFIX", "vital-focus:posture:")
	cfg.Posture.Cache.RealtimeSuffix = ":realtime"
	cfg.Posture.Cache.TelemetrySuffix = ":telemetry"
	cfg.Posture.Cache.RealtimeTTL = 30 // 30秒
	cfg.Posture.Cache.WarningStream = getEnv("POSTURE_WARNING_STREAM", "posture:warnings:stream")
	cfg.Posture.Cache.SessionStream = getEnv("POSTURE_SESSION_STREAM", "posture:sessions:stream")

	cfg.Posture.MinIntervalSeconds = 1.0
	cfg.Posture.WarningThresholdSeconds = getEnvInt("POSTURE_WARNING_THRESHOLD", 60)
	cfg.Posture.ReduceQualityWindowSeconds = 30
	cfg.Posture.RecoveryDelaySeconds = 3
	cfg.Posture.TelemetryPublishSeconds = 5

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
