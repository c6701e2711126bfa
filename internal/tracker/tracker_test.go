package tracker

import (
	"testing"
	"time"

	"wisefido-posture/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTracker_FirstClassificationInitializes(t *testing.T) {
	var transitions []models.PostureCategory
	tr := NewPostureTracker(time.Second, func(from, to models.PostureCategory, at time.Time) {
		transitions = append(transitions, to)
	}, zap.NewNop())

	base := time.Now()
	tr.OnClassification(models.PostureNotPresent, base)

	assert.Equal(t, models.PostureNotPresent, tr.Current())
	assert.Empty(t, tr.History())
	// 首次分类也触发切换回调（会话一开始就不健康时警告调度器需要武装）
	require.Len(t, transitions, 1)
	assert.Equal(t, models.PostureNotPresent, transitions[0])
	assert.NotNil(t, tr.BadPostureStart())
}

func TestTracker_FinalizesSignificantInterval(t *testing.T) {
	tr := NewPostureTracker(time.Second, nil, zap.NewNop())

	base := time.Now()
	tr.OnClassification(models.PostureExcellent, base)
	tr.OnClassification(models.PostureTilted, base.Add(2*time.Second))

	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, models.PostureExcellent, history[0].Category)
	assert.Equal(t, base, history[0].StartTime)
	assert.Equal(t, 2*time.Second, history[0].Duration)
	assert.Equal(t, models.PostureTilted, tr.Current())
}

func TestTracker_DebounceDiscardsMicroInterval(t *testing.T) {
	tr := NewPostureTracker(time.Second, nil, zap.NewNop())

	base := time.Now()
	tr.OnClassification(models.PostureExcellent, base)
	// 2秒后切到 Tilted，0.5秒内又切回：Tilted 微区间被丢弃
	tr.OnClassification(models.PostureTilted, base.Add(2*time.Second))
	tr.OnClassification(models.PostureExcellent, base.Add(2500*time.Millisecond))

	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, models.PostureExcellent, history[0].Category)
	// 当前分类反映切换序列本身，与去抖无关
	assert.Equal(t, models.PostureExcellent, tr.Current())
}

func TestTracker_SameCategoryNoTransition(t *testing.T) {
	count := 0
	tr := NewPostureTracker(time.Second, func(from, to models.PostureCategory, at time.Time) {
		count++
	}, zap.NewNop())

	base := time.Now()
	tr.OnClassification(models.PostureExcellent, base)
	tr.OnClassification(models.PostureExcellent, base.Add(time.Second))
	tr.OnClassification(models.PostureExcellent, base.Add(2*time.Second))

	assert.Equal(t, 1, count)
	assert.Empty(t, tr.History())
}

func TestTracker_BadPostureDuration(t *testing.T) {
	tr := NewPostureTracker(time.Second, nil, zap.NewNop())

	base := time.Now()
	tr.OnClassification(models.PostureExcellent, base)
	assert.Equal(t, time.Duration(0), tr.BadPostureDuration(base.Add(5*time.Second)))
	assert.Nil(t, tr.BadPostureStart())

	tr.OnClassification(models.PostureLookingDown, base.Add(5*time.Second))
	assert.Equal(t, 3*time.Second, tr.BadPostureDuration(base.Add(8*time.Second)))

	// 不健康分类之间切换：不健康开始时间重置
	tr.OnClassification(models.PostureTilted, base.Add(10*time.Second))
	assert.Equal(t, time.Second, tr.BadPostureDuration(base.Add(11*time.Second)))

	// 恢复健康：清零
	tr.OnClassification(models.PostureExcellent, base.Add(12*time.Second))
	assert.Equal(t, time.Duration(0), tr.BadPostureDuration(base.Add(20*time.Second)))
	assert.Nil(t, tr.BadPostureStart())
}

func TestTracker_StopFinalizesInProgressInterval(t *testing.T) {
	tr := NewPostureTracker(time.Second, nil, zap.NewNop())

	base := time.Now()
	tr.OnClassification(models.PostureExcellent, base)
	tr.OnClassification(models.PostureTooClose, base.Add(4*time.Second))
	tr.Stop(base.Add(7 * time.Second))

	history := tr.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.PostureTooClose, history[1].Category)
	assert.Equal(t, 3*time.Second, history[1].Duration)

	// 瞬态状态已清除，历史保留
	assert.Equal(t, models.PostureCategory(""), tr.Current())
	assert.Nil(t, tr.BadPostureStart())
	assert.Len(t, tr.History(), 2)
}

func TestTracker_StopDiscardsSubThresholdInterval(t *testing.T) {
	tr := NewPostureTracker(time.Second, nil, zap.NewNop())

	base := time.Now()
	tr.OnClassification(models.PostureExcellent, base)
	tr.Stop(base.Add(500 * time.Millisecond))

	assert.Empty(t, tr.History())
}

func TestTracker_HistoryAppendOrder(t *testing.T) {
	tr := NewPostureTracker(time.Second, nil, zap.NewNop())

	base := time.Now()
	tr.OnClassification(models.PostureExcellent, base)
	tr.OnClassification(models.PostureTilted, base.Add(2*time.Second))
	tr.OnClassification(models.PostureExcellent, base.Add(5*time.Second))
	tr.Stop(base.Add(9 * time.Second))

	history := tr.History()
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].StartTime.Before(history[i-1].StartTime))
		assert.Greater(t, history[i].Duration, time.Duration(0))
	}
}
