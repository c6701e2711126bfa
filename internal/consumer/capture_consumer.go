package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wisefido-posture/internal/config"
	"wisefido-posture/internal/models"

	mqttcommon "wisefido-posture/internal/common/mqtt"

	"go.uber.org/zap"
)

// FramePipeline 姿态管线接口（由 service 层实现）
// 帧处理必须同步完成（分类是纯几何运算，热路径上无 I/O）
type FramePipeline interface {
	HandleFrame(deviceID string, at time.Time, geometry *models.FaceGeometry, providerError string)
	StartSession(deviceID string, at time.Time) error
	StopSession(deviceID string, at time.Time) error
}

// CaptureConsumer 采集数据消费者
// 订阅帧观测主题和会话控制主题，解析后转发给姿态管线
type CaptureConsumer struct {
	config     *config.Config
	mqttClient *mqttcommon.Client
	pipeline   FramePipeline
	logger     *zap.Logger
}

// NewCaptureConsumer 创建采集数据消费者
func NewCaptureConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	pipeline FramePipeline,
	logger *zap.Logger,
) *CaptureConsumer {
	return &CaptureConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		pipeline:   pipeline,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *CaptureConsumer) Start(ctx context.Context) error {
	qos := c.config.MQTT.QoS

	if err := c.mqttClient.Subscribe(c.config.Posture.Topics.Frames, qos, c.handleFrameMessage); err != nil {
		return fmt.Errorf("failed to subscribe to frames topic: %w", err)
	}
	if err := c.mqttClient.Subscribe(c.config.Posture.Topics.Control, qos, c.handleControlMessage); err != nil {
		return fmt.Errorf("failed to subscribe to control topic: %w", err)
	}

	c.logger.Info("Capture consumer started",
		zap.String("frames_topic", c.config.Posture.Topics.Frames),
		zap.String("control_topic", c.config.Posture.Topics.Control),
	)

	return nil
}

// Stop 停止消费者
func (c *CaptureConsumer) Stop() error {
	if err := c.mqttClient.Unsubscribe(
		c.config.Posture.Topics.Frames,
		c.config.Posture.Topics.Control,
	); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}

	c.logger.Info("Capture consumer stopped")
	return nil
}

// handleFrameMessage 处理帧观测消息
// 主题格式: posture/{device_id}/frames
func (c *CaptureConsumer) handleFrameMessage(topic string, payload []byte) error {
	deviceID, err := deviceIDFromTopic(topic)
	if err != nil {
		return err
	}

	var event models.FrameEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logger.Error("Failed to unmarshal frame event",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal frame event: %w", err)
	}

	at := time.Now()
	if event.TimestampMs > 0 {
		at = time.UnixMilli(event.TimestampMs)
	}

	c.pipeline.HandleFrame(deviceID, at, event.Geometry, event.Error)
	return nil
}

// handleControlMessage 处理会话控制消息
// 主题格式: posture/{device_id}/control
func (c *CaptureConsumer) handleControlMessage(topic string, payload []byte) error {
	deviceID, err := deviceIDFromTopic(topic)
	if err != nil {
		return err
	}

	var event models.ControlEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal control event: %w", err)
	}

	at := time.Now()
	if event.TimestampMs > 0 {
		at = time.UnixMilli(event.TimestampMs)
	}

	switch event.Command {
	case "start_session":
		if err := c.pipeline.StartSession(deviceID, at); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
	case "stop_session":
		if err := c.pipeline.StopSession(deviceID, at); err != nil {
			return fmt.Errorf("failed to stop session: %w", err)
		}
	default:
		c.logger.Warn("Unknown control command",
			zap.String("device_id", deviceID),
			zap.String("command", event.Command),
		)
	}

	return nil
}

// deviceIDFromTopic 从主题中提取设备ID
// 主题格式: posture/{device_id}/{kind}
func deviceIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[1], nil
}
