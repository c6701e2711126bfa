// Package warning 提供姿态警告调度器
//
// 两状态状态机：Idle（姿态健康）/ Armed（不健康倒计时中）。
// 进入不健康姿态时启动单次定时器；到期时若仍不健康则触发一次
// 警告回调并重新武装下一个定时器（重复提醒直到姿态纠正）；
// 恢复健康时取消待定定时器。
package warning

import (
	"sync"
	"time"

	"wisefido-posture/internal/models"

	"go.uber.org/zap"
)

// WarningFunc 警告回调
// category: 触发时的姿态分类；unhealthyFor: 持续不健康时长
type WarningFunc func(category models.PostureCategory, unhealthyFor time.Duration)

// Scheduler 姿态警告调度器
//
// 保证：持续不健康期间每个阈值窗口内回调至多触发一次；
// 健康期间零次触发。
type Scheduler struct {
	mu        sync.Mutex
	logger    *zap.Logger
	threshold time.Duration
	fn        WarningFunc

	armed          bool
	category       models.PostureCategory
	unhealthySince time.Time
	timer          *time.Timer
}

// NewScheduler 创建警告调度器
func NewScheduler(threshold time.Duration, fn WarningFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:    logger,
		threshold: threshold,
		fn:        fn,
	}
}

// OnPostureChanged 处理跟踪器报告的分类切换
//
// Idle→Armed：切换到不健康分类时启动阈值定时器。
// Armed 期间在不健康分类之间切换：保持武装，仅更新分类
// （不健康状态连续，不重置倒计时）。
// Armed→Idle：切换到健康分类时取消待定定时器。
func (s *Scheduler) OnPostureChanged(category models.PostureCategory, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.IsHealthy() {
		if s.armed {
			s.disarmLocked()
			s.logger.Debug("Warning scheduler disarmed")
		}
		return
	}

	if s.armed {
		// 不健康分类之间切换：保持倒计时
		s.category = category
		return
	}

	s.armed = true
	s.category = category
	s.unhealthySince = now
	s.timer = time.AfterFunc(s.threshold, s.onDeadline)
	s.logger.Debug("Warning scheduler armed",
		zap.String("category", string(category)),
		zap.Duration("threshold", s.threshold),
	)
}

// onDeadline 定时器到期：触发警告并重新武装
func (s *Scheduler) onDeadline() {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}

	category := s.category
	unhealthyFor := time.Since(s.unhealthySince)
	// 重新武装使用当前阈值（UpdateThreshold 在此生效）
	s.timer = time.AfterFunc(s.threshold, s.onDeadline)
	s.mu.Unlock()

	if s.fn != nil {
		s.fn(category, unhealthyFor)
	}
}

// UpdateThreshold 更新警告阈值
// 在下一次重新武装时生效，不会重排已经在倒计时的定时器
func (s *Scheduler) UpdateThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
}

// Stop 停止调度器，取消待定定时器
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
}

// disarmLocked 解除武装（调用方必须持有锁）
func (s *Scheduler) disarmLocked() {
	s.armed = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
