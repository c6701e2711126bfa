// Package telemetry 提供设备资源遥测监控器
//
// 监控器接收电池/电源模式变化事件（事件驱动）和内存占用采样
// （周期采样），从最新值推导推荐处理帧率和降质标志，供自适应
// 帧门限消费。只保留最新快照，不保留历史；给定相同输入，
// 每次重算结果相同（无累积漂移）。
package telemetry

import (
	"sync"
	"time"

	"wisefido-posture/internal/models"

	"go.uber.org/zap"
)

// 帧率推导参数
const (
	rateCritical = 5.0  // 电量 < 10%
	rateLow      = 10.0 // 电量 [10%, 20%)
	rateMedium   = 12.0 // 电量 [20%, 50%)
	rateFull     = 15.0 // 电量 >= 50%

	lowPowerCap      = 8.0  // 低电量模式帧率上限
	memoryWarningCap = 8.0  // 内存警告事件帧率上限
	highMemoryCap    = 10.0 // 内存占用 > 80% 帧率上限

	highMemoryPercent = 80.0
)

// DefaultReduceQualityWindow 内存警告事件的降质窗口默认时长
const DefaultReduceQualityWindow = 30 * time.Second

// Monitor 资源遥测监控器
//
// 单生产者/单消费者关系：消费方（帧门限）只读，
// 读取通过快照完成，无需全程锁
type Monitor struct {
	mu           sync.RWMutex
	logger       *zap.Logger
	reduceWindow time.Duration

	batteryLevel       float32
	batteryState       models.BatteryState
	lowPowerMode       bool
	memoryUsagePercent float64
	memoryWarningUntil time.Time // 内存警告事件的降质窗口截止时间
	currentFrameRateHz float64
}

// NewMonitor 创建资源遥测监控器
// reduceWindow <= 0 时使用默认降质窗口（30秒）
// 初始状态假定满电、未接电源
func NewMonitor(reduceWindow time.Duration, logger *zap.Logger) *Monitor {
	if reduceWindow <= 0 {
		reduceWindow = DefaultReduceQualityWindow
	}
	return &Monitor{
		logger:       logger,
		reduceWindow: reduceWindow,
		batteryLevel: 1.0,
		batteryState: models.BatteryUnplugged,
	}
}

// OnBatteryChange 处理电池电量/状态变化事件
func (m *Monitor) OnBatteryChange(level float32, state models.BatteryState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batteryLevel = level
	m.batteryState = state
	m.logger.Debug("Battery changed",
		zap.Float32("level", level),
		zap.String("state", string(state)),
	)
}

// OnPowerModeChange 处理低电量模式开关事件
func (m *Monitor) OnPowerModeChange(lowPower bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lowPowerMode = lowPower
	m.logger.Info("Low power mode changed",
		zap.Bool("low_power_mode", lowPower),
	)
}

// OnMemorySample 处理周期内存占用采样
func (m *Monitor) OnMemorySample(usagePercent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memoryUsagePercent = usagePercent
}

// OnMemoryWarning 处理系统低内存事件
// 在降质窗口内强制降低帧率上限并抬起降质标志
func (m *Monitor) OnMemoryWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memoryWarningUntil = time.Now().Add(m.reduceWindow)
	m.logger.Warn("Memory warning received, reducing quality",
		zap.Duration("window", m.reduceWindow),
	)
}

// SetCurrentFrameRate 记录实际处理帧率（由管线回报，仅用于快照展示）
func (m *Monitor) SetCurrentFrameRate(rateHz float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentFrameRateHz = rateHz
}

// RecommendedRate 推荐处理帧率（Hz）
//
// 电量分段：<10% → 5，[10%,20%) → 10，[20%,50%) → 12，其余 → 15；
// 低电量模式上限 8；内存警告窗口内上限 8；内存占用 > 80% 上限 10。
func (m *Monitor) RecommendedRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recommendedRateLocked()
}

func (m *Monitor) recommendedRateLocked() float64 {
	var rate float64
	switch {
	case m.batteryLevel < 0.10:
		rate = rateCritical
	case m.batteryLevel < 0.20:
		rate = rateLow
	case m.batteryLevel < 0.50:
		rate = rateMedium
	default:
		rate = rateFull
	}

	if m.lowPowerMode && rate > lowPowerCap {
		rate = lowPowerCap
	}
	if time.Now().Before(m.memoryWarningUntil) && rate > memoryWarningCap {
		rate = memoryWarningCap
	}
	if m.memoryUsagePercent > highMemoryPercent && rate > highMemoryCap {
		rate = highMemoryCap
	}

	return rate
}

// ReduceQuality 降质标志
// 内存警告窗口内或内存占用持续超过80%时为 true
func (m *Monitor) ReduceQuality() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reduceQualityLocked()
}

func (m *Monitor) reduceQualityLocked() bool {
	return time.Now().Before(m.memoryWarningUntil) || m.memoryUsagePercent > highMemoryPercent
}

// Snapshot 当前遥测快照
func (m *Monitor) Snapshot() models.TelemetrySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.TelemetrySnapshot{
		BatteryLevel:           m.batteryLevel,
		BatteryState:           m.batteryState,
		LowPowerMode:           m.lowPowerMode,
		MemoryUsagePercent:     m.memoryUsagePercent,
		RecommendedFrameRateHz: m.recommendedRateLocked(),
		CurrentFrameRateHz:     m.currentFrameRateHz,
		ReduceQuality:          m.reduceQualityLocked(),
		Timestamp:              time.Now().Unix(),
	}
}
