package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-posture/internal/config"
	"wisefido-posture/internal/models"

	rediscommon "wisefido-posture/internal/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StatePublisher 姿态状态发布器
//
// 展示层的读取面：
// - 实时姿态/遥测快照写入带 TTL 的 Redis 键（展示层轮询）
// - 警告事件和会话完成事件追加到 Redis Streams（展示层订阅）
type StatePublisher struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewStatePublisher 创建姿态状态发布器
func NewStatePublisher(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *StatePublisher {
	return &StatePublisher{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// realtimeKey 构建实时姿态键
func (p *StatePublisher) realtimeKey(deviceID string) string {
	return p.config.Posture.Cache.RealtimeKeyPrefix + deviceID + p.config.Posture.Cache.RealtimeSuffix
}

// telemetryKey 构建遥测快照键
func (p *StatePublisher) telemetryKey(deviceID string) string {
	return p.config.Posture.Cache.RealtimeKeyPrefix + deviceID + p.config.Posture.Cache.TelemetrySuffix
}

// PublishPostureState 发布当前姿态状态到实时键
func (p *StatePublisher) PublishPostureState(ctx context.Context, event *models.PostureStateEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal posture state: %w", err)
	}

	ttl := time.Duration(p.config.Posture.Cache.RealtimeTTL) * time.Second
	if err := p.redisClient.Set(ctx, p.realtimeKey(event.DeviceID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set posture state: %w", err)
	}

	return nil
}

// PublishTelemetry 发布遥测快照到遥测键
func (p *StatePublisher) PublishTelemetry(ctx context.Context, deviceID string, snapshot models.TelemetrySnapshot) error {
	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry snapshot: %w", err)
	}

	ttl := time.Duration(p.config.Posture.Cache.RealtimeTTL) * time.Second
	if err := p.redisClient.Set(ctx, p.telemetryKey(deviceID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set telemetry snapshot: %w", err)
	}

	return nil
}

// PublishWarning 发布警告事件到警告流
func (p *StatePublisher) PublishWarning(ctx context.Context, event *models.WarningEvent) error {
	streamID, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, p.config.Posture.Cache.WarningStream, event)
	if err != nil {
		return fmt.Errorf("failed to publish warning event: %w", err)
	}

	p.logger.Info("Warning event published",
		zap.String("event_id", event.EventID),
		zap.String("device_id", event.DeviceID),
		zap.String("category", string(event.Category)),
		zap.Float64("bad_posture_duration", event.BadPostureDuration),
		zap.String("stream_id", streamID),
	)

	return nil
}

// PublishSessionCompleted 发布会话完成事件到会话流
func (p *StatePublisher) PublishSessionCompleted(ctx context.Context, event *models.SessionCompletedEvent) error {
	streamID, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, p.config.Posture.Cache.SessionStream, event)
	if err != nil {
		return fmt.Errorf("failed to publish session completed event: %w", err)
	}

	p.logger.Info("Session completed event published",
		zap.String("session_id", event.Session.SessionID),
		zap.Float64("health_score", event.Statistics.HealthScore),
		zap.String("stream_id", streamID),
	)

	return nil
}
