package models

import "time"

// PostureCategory 姿态分类（5档离散分类）
// Excellent 是唯一的健康分类，其余均为不健康分类
type PostureCategory string

const (
	PostureExcellent   PostureCategory = "Excellent"   // 姿态良好
	PostureLookingDown PostureCategory = "LookingDown" // 低头
	PostureTilted      PostureCategory = "Tilted"      // 头部侧倾
	PostureTooClose    PostureCategory = "TooClose"    // 距离屏幕过近
	PostureNotPresent  PostureCategory = "NotPresent"  // 未检测到人脸
)

// IsHealthy 是否为健康姿态
func (c PostureCategory) IsHealthy() bool {
	return c == PostureExcellent
}

// Point2D 归一化2D点（相对帧尺寸，取值 0-1）
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceGeometry 单帧人脸几何观测
// 角度字段可能缺失（取决于检测器能力），缺失时分类器回退到
// 位置/眼部关键点启发式
type FaceGeometry struct {
	PitchRadians *float64 `json:"pitch_radians,omitempty"` // 俯仰角（弧度，低头为负）
	RollRadians  *float64 `json:"roll_radians,omitempty"`  // 侧倾角（弧度）

	BoundingBoxHeightFraction  float64 `json:"bbox_height_fraction"`   // 人脸高度占帧高度比例（0-1）
	BoundingBoxCenterYFraction float64 `json:"bbox_center_y_fraction"` // 人脸中心Y占帧高度比例（0-1）

	LeftEyeCenter  *Point2D `json:"left_eye_center,omitempty"`  // 左眼中心（角度缺失时使用）
	RightEyeCenter *Point2D `json:"right_eye_center,omitempty"` // 右眼中心（角度缺失时使用）
}

// PostureInterval 已定稿的姿态区间（追加后不可变）
// 不变式：Duration > 0，且区间按 StartTime 非递减顺序追加
type PostureInterval struct {
	Category  PostureCategory `json:"category"`
	StartTime time.Time       `json:"start_time"`
	Duration  time.Duration   `json:"duration"`
}

// WorkSession 完成的工作会话
type WorkSession struct {
	SessionID        string            `json:"session_id"`
	DeviceID         string            `json:"device_id"`
	StartTime        time.Time         `json:"start_time"`
	Duration         time.Duration     `json:"duration"`
	PostureIntervals []PostureInterval `json:"posture_intervals"`
}

// SessionStatistics 会话统计（由已定稿区间列表聚合得出）
type SessionStatistics struct {
	HealthScore            float64                           `json:"health_score"`              // 健康评分（0-100）
	PerCategoryDurations   map[PostureCategory]time.Duration `json:"per_category_durations"`    // 各分类累计时长
	PerCategoryPercentages map[PostureCategory]float64       `json:"per_category_percentages"`  // 各分类时长占比（0-100）
	TransitionCount        int                               `json:"transition_count"`          // 分类切换次数
	LongestHealthyStreak   time.Duration                     `json:"longest_healthy_streak"`    // 最长连续健康时长
}
