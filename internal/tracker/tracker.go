// Package tracker 提供去抖动的姿态状态跟踪器
//
// 跟踪器消费分类器的输出序列，维护当前姿态及其开始时间、
// 不健康姿态的持续时长，并把已结束的姿态区间定稿到历史列表。
// 时长不足最小有效阈值（默认1秒）的区间视为分类器噪声，
// 直接丢弃，不并入相邻区间。
package tracker

import (
	"sync"
	"time"

	"wisefido-posture/internal/models"

	"go.uber.org/zap"
)

// DefaultMinSignificant 区间最小有效时长（去抖动阈值）
const DefaultMinSignificant = time.Second

// TransitionFunc 分类切换回调
// 在每次 currentCategory 变化时触发（包括后续被去抖丢弃的微区间）
type TransitionFunc func(from, to models.PostureCategory, at time.Time)

// PostureTracker 姿态状态跟踪器
//
// 单写者结构：所有变更必须串行化到同一逻辑时间线上
// （由内部互斥锁保证，调用方负责提供单调递增的时间戳）
type PostureTracker struct {
	mu             sync.Mutex
	logger         *zap.Logger
	minSignificant time.Duration
	onTransition   TransitionFunc

	started      bool
	current      models.PostureCategory
	currentStart time.Time
	badStart     *time.Time // 仅当 current 不健康时非 nil
	history      []models.PostureInterval
}

// NewPostureTracker 创建姿态状态跟踪器
// minSignificant <= 0 时使用默认去抖阈值（1秒）
func NewPostureTracker(minSignificant time.Duration, onTransition TransitionFunc, logger *zap.Logger) *PostureTracker {
	if minSignificant <= 0 {
		minSignificant = DefaultMinSignificant
	}
	return &PostureTracker{
		logger:         logger,
		minSignificant: minSignificant,
		onTransition:   onTransition,
	}
}

// OnClassification 处理一次分类结果
//
// 同分类：无状态切换。
// 异分类：定稿刚结束的区间（仅当时长 >= 去抖阈值），切换当前分类；
// 新分类不健康时记录不健康开始时间，健康时清除。
// 时间戳回退属于调用方契约违反，不做处理。
func (t *PostureTracker) OnClassification(category models.PostureCategory, now time.Time) {
	var fire *transition

	t.mu.Lock()
	if !t.started {
		// 首次分类：初始化当前状态，无区间可定稿
		// 切换回调照常触发（from 为空），保证会话一开始就处于
		// 不健康姿态时下游（警告调度器）能收到通知
		t.started = true
		t.current = category
		t.currentStart = now
		if !category.IsHealthy() {
			badStart := now
			t.badStart = &badStart
		}
		t.mu.Unlock()
		if t.onTransition != nil {
			t.onTransition("", category, now)
		}
		return
	}

	if category == t.current {
		t.mu.Unlock()
		return
	}

	t.finalizeLocked(now)

	from := t.current
	t.current = category
	t.currentStart = now
	if category.IsHealthy() {
		t.badStart = nil
	} else {
		badStart := now
		t.badStart = &badStart
	}
	fire = &transition{from: from, to: category, at: now}
	t.mu.Unlock()

	if fire != nil && t.onTransition != nil {
		t.onTransition(fire.from, fire.to, fire.at)
	}
}

// Stop 结束跟踪：按同样的去抖规则定稿进行中的区间，
// 清除瞬态状态（历史列表保留）
func (t *PostureTracker) Stop(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}

	t.finalizeLocked(now)
	t.started = false
	t.current = ""
	t.currentStart = time.Time{}
	t.badStart = nil
}

// finalizeLocked 定稿当前区间（调用方必须持有锁）
// 时长不足去抖阈值的区间静默丢弃
func (t *PostureTracker) finalizeLocked(now time.Time) {
	duration := now.Sub(t.currentStart)
	if duration < t.minSignificant {
		t.logger.Debug("Discarding sub-threshold posture interval",
			zap.String("category", string(t.current)),
			zap.Duration("duration", duration),
		)
		return
	}

	t.history = append(t.history, models.PostureInterval{
		Category:  t.current,
		StartTime: t.currentStart,
		Duration:  duration,
	})
}

// Current 当前姿态分类（未开始时返回空串）
func (t *PostureTracker) Current() models.PostureCategory {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// CurrentStart 当前分类的开始时间
func (t *PostureTracker) CurrentStart() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentStart
}

// BadPostureStart 不健康姿态开始时间（健康时返回 nil）
func (t *PostureTracker) BadPostureStart() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.badStart == nil {
		return nil
	}
	badStart := *t.badStart
	return &badStart
}

// BadPostureDuration 截至 now 的不健康姿态持续时长（健康时为 0）
func (t *PostureTracker) BadPostureDuration(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.badStart == nil {
		return 0
	}
	return now.Sub(*t.badStart)
}

// History 已定稿的姿态区间列表（副本）
func (t *PostureTracker) History() []models.PostureInterval {
	t.mu.Lock()
	defer t.mu.Unlock()
	history := make([]models.PostureInterval, len(t.history))
	copy(history, t.history)
	return history
}

type transition struct {
	from, to models.PostureCategory
	at       time.Time
}
