// Package session 提供工作会话的姿态统计聚合
package session

import (
	"time"

	"wisefido-posture/internal/models"
)

// Aggregate 把已定稿的姿态区间列表折叠为会话统计
//
// 纯函数：不修改输入，无 I/O。
// 健康评分 = 100 × Excellent 累计时长 / 会话总时长，截断到 [0,100]；
// 总时长为零的会话评分定义为 0（不产生除零/NaN）。
// 最长连续健康时长为相邻 Excellent 区间时长之和的最大值，
// 任何非 Excellent 区间都会把累计值清零（区间不跨间隙合并）。
func Aggregate(intervals []models.PostureInterval, totalDuration time.Duration) models.SessionStatistics {
	stats := models.SessionStatistics{
		PerCategoryDurations:   make(map[models.PostureCategory]time.Duration),
		PerCategoryPercentages: make(map[models.PostureCategory]float64),
	}

	var healthyTotal time.Duration
	var streak time.Duration

	for i, interval := range intervals {
		stats.PerCategoryDurations[interval.Category] += interval.Duration

		if interval.Category.IsHealthy() {
			healthyTotal += interval.Duration
			streak += interval.Duration
			if streak > stats.LongestHealthyStreak {
				stats.LongestHealthyStreak = streak
			}
		} else {
			streak = 0
		}

		if i > 0 && intervals[i-1].Category != interval.Category {
			stats.TransitionCount++
		}
	}

	if totalDuration <= 0 {
		// 零时长会话：评分为 0，占比表留空值为 0
		for category := range stats.PerCategoryDurations {
			stats.PerCategoryPercentages[category] = 0
		}
		return stats
	}

	for category, duration := range stats.PerCategoryDurations {
		stats.PerCategoryPercentages[category] = 100 * float64(duration) / float64(totalDuration)
	}

	score := 100 * float64(healthyTotal) / float64(totalDuration)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	stats.HealthScore = score

	return stats
}
