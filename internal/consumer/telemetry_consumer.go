package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-posture/internal/config"
	"wisefido-posture/internal/models"

	mqttcommon "wisefido-posture/internal/common/mqtt"

	"go.uber.org/zap"
)

// TelemetrySink 遥测事件接收方（资源遥测监控器）
type TelemetrySink interface {
	OnBatteryChange(level float32, state models.BatteryState)
	OnPowerModeChange(lowPower bool)
	OnMemorySample(usagePercent float64)
	OnMemoryWarning()
}

// TelemetryConsumer 设备遥测消费者
// 订阅设备遥测主题，把电池/电源模式/内存事件分发给监控器
type TelemetryConsumer struct {
	config     *config.Config
	mqttClient *mqttcommon.Client
	sink       TelemetrySink
	logger     *zap.Logger
}

// NewTelemetryConsumer 创建设备遥测消费者
func NewTelemetryConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	sink TelemetrySink,
	logger *zap.Logger,
) *TelemetryConsumer {
	return &TelemetryConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		sink:       sink,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *TelemetryConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.Posture.Topics.Telemetry, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}

	c.logger.Info("Telemetry consumer started",
		zap.String("topic", c.config.Posture.Topics.Telemetry),
	)

	return nil
}

// Stop 停止消费者
func (c *TelemetryConsumer) Stop() error {
	if err := c.mqttClient.Unsubscribe(c.config.Posture.Topics.Telemetry); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}

	c.logger.Info("Telemetry consumer stopped")
	return nil
}

// handleMessage 处理遥测消息
// 主题格式: posture/{device_id}/telemetry
func (c *TelemetryConsumer) handleMessage(topic string, payload []byte) error {
	deviceID, err := deviceIDFromTopic(topic)
	if err != nil {
		return err
	}

	var event models.TelemetryEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal telemetry event: %w", err)
	}

	switch event.Type {
	case "battery":
		if event.BatteryLevel == nil {
			return fmt.Errorf("battery event missing battery_level")
		}
		state := models.BatteryUnplugged
		if event.BatteryState != nil {
			state = models.BatteryState(*event.BatteryState)
		}
		c.sink.OnBatteryChange(*event.BatteryLevel, state)
	case "power_mode":
		if event.LowPowerMode == nil {
			return fmt.Errorf("power_mode event missing low_power_mode")
		}
		c.sink.OnPowerModeChange(*event.LowPowerMode)
	case "memory":
		if event.MemoryUsagePercent == nil {
			return fmt.Errorf("memory event missing memory_usage_percent")
		}
		c.sink.OnMemorySample(*event.MemoryUsagePercent)
	case "memory_warning":
		c.sink.OnMemoryWarning()
	default:
		c.logger.Warn("Unknown telemetry event type",
			zap.String("device_id", deviceID),
			zap.String("type", event.Type),
		)
	}

	return nil
}
