package models

// BatteryState 电池充电状态
type BatteryState string

const (
	BatteryUnplugged BatteryState = "unplugged" // 未接电源
	BatteryCharging  BatteryState = "charging"  // 充电中
	BatteryFull      BatteryState = "full"      // 已充满
)

// TelemetrySnapshot 设备资源遥测快照
// 只保留最新值，不保留历史；每次重算都是幂等的
type TelemetrySnapshot struct {
	BatteryLevel           float32      `json:"battery_level"`             // 电量（0-1）
	BatteryState           BatteryState `json:"battery_state"`             // 充电状态
	LowPowerMode           bool         `json:"low_power_mode"`            // 低电量模式
	MemoryUsagePercent     float64      `json:"memory_usage_percent"`      // 内存占用百分比
	RecommendedFrameRateHz float64      `json:"recommended_frame_rate_hz"` // 推荐处理帧率
	CurrentFrameRateHz     float64      `json:"current_frame_rate_hz"`     // 实际处理帧率
	ReduceQuality          bool         `json:"reduce_quality"`            // 降质标志（内存压力下降低分类精度）
	Timestamp              int64        `json:"timestamp"`                 // Unix 时间戳
}
