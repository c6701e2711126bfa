package models

// FrameEvent 采集子系统推送的单帧观测（MQTT posture/{device_id}/frames）
// Geometry 为 nil 表示该帧未检测到人脸
// Error 非空表示几何检测器对该帧处理失败（帧被跳过，触发帧门限退避）
type FrameEvent struct {
	TimestampMs int64         `json:"timestamp_ms"`       // 帧时间戳（Unix 毫秒）
	Geometry    *FaceGeometry `json:"geometry,omitempty"` // 人脸几何观测
	Error       string        `json:"error,omitempty"`    // 检测器错误信息
}

// TelemetryEvent 设备遥测事件（MQTT posture/{device_id}/telemetry）
// Type 决定哪些字段有效：
// - "battery":        BatteryLevel + BatteryState（事件驱动）
// - "power_mode":     LowPowerMode（事件驱动）
// - "memory":         MemoryUsagePercent（每5秒采样）
// - "memory_warning": 无附加字段（系统低内存事件）
type TelemetryEvent struct {
	Type               string   `json:"type"`
	BatteryLevel       *float32 `json:"battery_level,omitempty"`
	BatteryState       *string  `json:"battery_state,omitempty"`
	LowPowerMode       *bool    `json:"low_power_mode,omitempty"`
	MemoryUsagePercent *float64 `json:"memory_usage_percent,omitempty"`
}

// ControlEvent 会话控制事件（MQTT posture/{device_id}/control）
// Command: "start_session" 或 "stop_session"
type ControlEvent struct {
	Command     string `json:"command"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// PostureStateEvent 当前姿态状态（写入 Redis 实时键，供展示层轮询）
type PostureStateEvent struct {
	DeviceID        string          `json:"device_id"`
	SessionID       string          `json:"session_id"`
	Category        PostureCategory `json:"category"`
	Since           int64           `json:"since"`                       // 当前分类开始时间（Unix 毫秒）
	BadPostureSince *int64          `json:"bad_posture_since,omitempty"` // 不健康姿态开始时间（Unix 毫秒）
	UpdatedAt       int64           `json:"updated_at"`                  // Unix 毫秒
}

// WarningEvent 姿态警告事件（写入 posture:warnings:stream）
type WarningEvent struct {
	EventID            string          `json:"event_id"`
	DeviceID           string          `json:"device_id"`
	SessionID          string          `json:"session_id"`
	Category           PostureCategory `json:"category"`
	BadPostureDuration float64         `json:"bad_posture_duration"` // 持续不健康时长（秒）
	FiredAt            int64           `json:"fired_at"`             // Unix 毫秒
}

// SessionCompletedEvent 会话完成事件（写入 posture:sessions:stream）
type SessionCompletedEvent struct {
	Session     WorkSession       `json:"session"`
	Statistics  SessionStatistics `json:"statistics"`
	CompletedAt int64             `json:"completed_at"` // Unix 毫秒
}
