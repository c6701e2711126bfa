// Package gate 提供自适应帧门限
//
// 门限位于分类器之前，是整条管线的背压机制：采集子系统以
// 设备原生帧率推送帧（不受控、可能远高于目标帧率），门限按
// 遥测推荐帧率丢弃多余帧，保证分类工作量有界。内存压力下
// 额外把已接受帧率减半并降低分类精度档位；分类侧出错时单方面
// 退避（处理间隔 ×1.5，上限1秒），并在固定延迟后按最新遥测
// 推荐帧率恢复。
package gate

import (
	"sync"
	"time"

	"wisefido-posture/internal/classifier"

	"go.uber.org/zap"
)

// 退避参数
const (
	backoffFactorNum     = 3 // 退避系数 1.5 = 3/2
	backoffFactorDen     = 2
	maxInterval          = time.Second // 处理间隔上限
	DefaultRecoveryDelay = 3 * time.Second
)

// RateSource 帧率信号来源（资源遥测监控器）
type RateSource interface {
	RecommendedRate() float64
	ReduceQuality() bool
}

// FrameGate 自适应帧门限
type FrameGate struct {
	mu     sync.Mutex
	logger *zap.Logger
	source RateSource

	accepting     bool
	interval      time.Duration
	lastProcessed time.Time
	backoff       bool
	recoveryDelay time.Duration
	recovery      *time.Timer
	skipToggle    bool // 降质时每两帧跳过一帧的翻转标志

	accepted uint64
	dropped  uint64
}

// NewFrameGate 创建自适应帧门限
// recoveryDelay <= 0 时使用默认恢复延迟（3秒）
func NewFrameGate(source RateSource, recoveryDelay time.Duration, logger *zap.Logger) *FrameGate {
	if recoveryDelay <= 0 {
		recoveryDelay = DefaultRecoveryDelay
	}
	return &FrameGate{
		logger:        logger,
		source:        source,
		recoveryDelay: recoveryDelay,
	}
}

// Start 开始接受帧
func (g *FrameGate) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accepting = true
	g.lastProcessed = time.Time{}
	g.skipToggle = false
	g.accepted = 0
	g.dropped = 0
}

// Stop 停止接受帧，取消待定的退避恢复
// 会话停止时的有序关闭第一步
func (g *FrameGate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accepting = false
	g.backoff = false
	if g.recovery != nil {
		g.recovery.Stop()
		g.recovery = nil
	}
}

// ShouldProcess 判定该帧是否进入分类
// 每帧调用一次；接受条件：距上一次处理已满处理间隔。
// 降质标志抬起时，满足间隔的帧再隔一跳过（吞吐减半）。
func (g *FrameGate) ShouldProcess(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.accepting {
		return false
	}

	// 非退避状态下跟随最新遥测推荐帧率
	if !g.backoff {
		if rate := g.source.RecommendedRate(); rate > 0 {
			g.interval = time.Duration(float64(time.Second) / rate)
		}
	}

	if !g.lastProcessed.IsZero() && now.Sub(g.lastProcessed) < g.interval {
		g.dropped++
		return false
	}

	if g.source.ReduceQuality() {
		g.skipToggle = !g.skipToggle
		if g.skipToggle {
			// 降质：该帧满足间隔但被跳过，吞吐减半
			g.lastProcessed = now
			g.dropped++
			return false
		}
	} else {
		g.skipToggle = false
	}

	g.lastProcessed = now
	g.accepted++
	return true
}

// Detail 当前分类精度档位
// 降质标志抬起时跳过眼部关键点等次级分析
func (g *FrameGate) Detail() classifier.Detail {
	if g.source.ReduceQuality() {
		return classifier.DetailPrimary
	}
	return classifier.DetailFull
}

// OnClassifierError 分类侧出错时的单方面退避
// 处理间隔 ×1.5（上限1秒），并调度一次性恢复：固定延迟后
// 按最新遥测推荐帧率重置间隔。这是自愈式背压，不重试失败帧。
func (g *FrameGate) OnClassifierError() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.backoff = true
	g.interval = g.interval * backoffFactorNum / backoffFactorDen
	if g.interval > maxInterval {
		g.interval = maxInterval
	}
	if g.interval <= 0 {
		g.interval = maxInterval
	}

	g.logger.Warn("Classifier error, backing off",
		zap.Duration("interval", g.interval),
	)

	if g.recovery != nil {
		g.recovery.Stop()
	}
	g.recovery = time.AfterFunc(g.recoveryDelay, g.recover)
}

// recover 退避恢复：回到遥测驱动的处理间隔
func (g *FrameGate) recover() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.backoff {
		return
	}
	g.backoff = false
	g.recovery = nil
	if rate := g.source.RecommendedRate(); rate > 0 {
		g.interval = time.Duration(float64(time.Second) / rate)
	}
	g.logger.Info("Frame gate recovered from backoff",
		zap.Duration("interval", g.interval),
	)
}

// Interval 当前处理间隔
func (g *FrameGate) Interval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interval
}

// Stats 累计接受/丢弃帧数（自 Start 起）
func (g *FrameGate) Stats() (accepted, dropped uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accepted, g.dropped
}
