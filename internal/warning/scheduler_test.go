package warning

import (
	"sync/atomic"
	"testing"
	"time"

	"wisefido-posture/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestScheduler_RepeatingWarningsWhileUnhealthy(t *testing.T) {
	var fired int32
	s := NewScheduler(50*time.Millisecond, func(category models.PostureCategory, unhealthyFor time.Duration) {
		atomic.AddInt32(&fired, 1)
	}, zap.NewNop())
	defer s.Stop()

	// 持续不健康 175ms，阈值 50ms：应触发 3 次（t=50,100,150）
	s.OnPostureChanged(models.PostureLookingDown, time.Now())
	time.Sleep(175 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&fired))
}

func TestScheduler_NoWarningWhileHealthy(t *testing.T) {
	var fired int32
	s := NewScheduler(30*time.Millisecond, func(category models.PostureCategory, unhealthyFor time.Duration) {
		atomic.AddInt32(&fired, 1)
	}, zap.NewNop())
	defer s.Stop()

	s.OnPostureChanged(models.PostureExcellent, time.Now())
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestScheduler_DisarmsOnHealthyTransition(t *testing.T) {
	var fired int32
	s := NewScheduler(60*time.Millisecond, func(category models.PostureCategory, unhealthyFor time.Duration) {
		atomic.AddInt32(&fired, 1)
	}, zap.NewNop())
	defer s.Stop()

	now := time.Now()
	s.OnPostureChanged(models.PostureTilted, now)
	// 倒计时未到期即恢复健康：待定定时器取消，零次触发
	time.Sleep(20 * time.Millisecond)
	s.OnPostureChanged(models.PostureExcellent, time.Now())
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestScheduler_StaysArmedAcrossUnhealthyCategories(t *testing.T) {
	var fired int32
	s := NewScheduler(50*time.Millisecond, func(category models.PostureCategory, unhealthyFor time.Duration) {
		atomic.AddInt32(&fired, 1)
	}, zap.NewNop())
	defer s.Stop()

	now := time.Now()
	s.OnPostureChanged(models.PostureLookingDown, now)
	// 不健康分类之间切换不重置倒计时
	time.Sleep(30 * time.Millisecond)
	s.OnPostureChanged(models.PostureTilted, time.Now())
	time.Sleep(35 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestScheduler_UpdateThresholdEffectiveOnNextRearm(t *testing.T) {
	var fired int32
	s := NewScheduler(50*time.Millisecond, func(category models.PostureCategory, unhealthyFor time.Duration) {
		atomic.AddInt32(&fired, 1)
	}, zap.NewNop())
	defer s.Stop()

	s.OnPostureChanged(models.PostureNotPresent, time.Now())
	// 已在倒计时的定时器不受新阈值影响
	s.UpdateThreshold(500 * time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))

	// 重新武装后使用新阈值：短时间内不会再次触发
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestScheduler_CallbackCarriesUnhealthyDuration(t *testing.T) {
	type firing struct {
		category     models.PostureCategory
		unhealthyFor time.Duration
	}
	ch := make(chan firing, 1)
	s := NewScheduler(40*time.Millisecond, func(category models.PostureCategory, unhealthyFor time.Duration) {
		select {
		case ch <- firing{category, unhealthyFor}:
		default:
		}
	}, zap.NewNop())
	defer s.Stop()

	s.OnPostureChanged(models.PostureTooClose, time.Now())

	select {
	case f := <-ch:
		assert.Equal(t, models.PostureTooClose, f.category)
		assert.GreaterOrEqual(t, f.unhealthyFor, 40*time.Millisecond)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("warning callback not fired")
	}
}
