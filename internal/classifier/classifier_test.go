package classifier

import (
	"testing"

	"wisefido-posture/internal/models"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 {
	return &f
}

func TestClassify_NoGeometry(t *testing.T) {
	assert.Equal(t, models.PostureNotPresent, Classify(nil, DetailFull))
	assert.Equal(t, models.PostureNotPresent, Classify(nil, DetailPrimary))
}

func TestClassify_TooClose(t *testing.T) {
	geom := &models.FaceGeometry{
		BoundingBoxHeightFraction:  0.65,
		BoundingBoxCenterYFraction: 0.5,
	}

	assert.Equal(t, models.PostureTooClose, Classify(geom, DetailFull))
}

func TestClassify_PriorityOrder_TooCloseBeatsTilted(t *testing.T) {
	// 同时命中过近和侧倾：优先级顺序保证分类为过近
	geom := &models.FaceGeometry{
		RollRadians:                floatPtr(0.4),
		BoundingBoxHeightFraction:  0.7,
		BoundingBoxCenterYFraction: 0.5,
	}

	assert.Equal(t, models.PostureTooClose, Classify(geom, DetailFull))
}

func TestClassify_PriorityOrder_LookingDownBeatsTilted(t *testing.T) {
	geom := &models.FaceGeometry{
		PitchRadians:               floatPtr(-0.5),
		RollRadians:                floatPtr(0.4),
		BoundingBoxHeightFraction:  0.3,
		BoundingBoxCenterYFraction: 0.5,
	}

	assert.Equal(t, models.PostureLookingDown, Classify(geom, DetailFull))
}

func TestClassify_LookingDown_ByPitch(t *testing.T) {
	geom := &models.FaceGeometry{
		PitchRadians:               floatPtr(-0.35),
		BoundingBoxHeightFraction:  0.3,
		BoundingBoxCenterYFraction: 0.5,
	}

	assert.Equal(t, models.PostureLookingDown, Classify(geom, DetailFull))
}

func TestClassify_LookingDown_PositionFallback(t *testing.T) {
	// 俯仰角缺失：回退到人脸中心Y位置启发式
	geom := &models.FaceGeometry{
		BoundingBoxHeightFraction:  0.3,
		BoundingBoxCenterYFraction: 0.3,
	}

	assert.Equal(t, models.PostureLookingDown, Classify(geom, DetailFull))
}

func TestClassify_LookingDown_PitchPreferredOverPosition(t *testing.T) {
	// 俯仰角存在且正常：位置启发式不参与判定
	geom := &models.FaceGeometry{
		PitchRadians:               floatPtr(-0.1),
		BoundingBoxHeightFraction:  0.3,
		BoundingBoxCenterYFraction: 0.3,
	}

	assert.Equal(t, models.PostureExcellent, Classify(geom, DetailFull))
}

func TestClassify_Tilted_ByRoll(t *testing.T) {
	geom := &models.FaceGeometry{
		RollRadians:                floatPtr(-0.3),
		BoundingBoxHeightFraction:  0.3,
		BoundingBoxCenterYFraction: 0.5,
	}

	assert.Equal(t, models.PostureTilted, Classify(geom, DetailFull))
}

func TestClassify_Tilted_EyeFallback(t *testing.T) {
	// 侧倾角缺失：回退到双眼连线角度
	geom := &models.FaceGeometry{
		BoundingBoxHeightFraction:  0.3,
		BoundingBoxCenterYFraction: 0.5,
		LeftEyeCenter:              &models.Point2D{X: 0.4, Y: 0.4},
		RightEyeCenter:             &models.Point2D{X: 0.6, Y: 0.48},
	}

	// atan2(0.08, 0.2) ≈ 0.38 rad > 0.26
	assert.Equal(t, models.PostureTilted, Classify(geom, DetailFull))
}

func TestClassify_Tilted_EyeFallbackSkippedInPrimaryDetail(t *testing.T) {
	// 降质档位跳过眼部关键点分析
	geom := &models.FaceGeometry{
		BoundingBoxHeightFraction:  0.3,
		BoundingBoxCenterYFraction: 0.5,
		LeftEyeCenter:              &models.Point2D{X: 0.4, Y: 0.4},
		RightEyeCenter:             &models.Point2D{X: 0.6, Y: 0.48},
	}

	assert.Equal(t, models.PostureExcellent, Classify(geom, DetailPrimary))
}

func TestClassify_Excellent(t *testing.T) {
	geom := &models.FaceGeometry{
		PitchRadians:               floatPtr(-0.1),
		RollRadians:                floatPtr(0.05),
		BoundingBoxHeightFraction:  0.4,
		BoundingBoxCenterYFraction: 0.5,
	}

	assert.Equal(t, models.PostureExcellent, Classify(geom, DetailFull))
}

func TestClassify_TotalOnMissingOptionalFields(t *testing.T) {
	// 可选字段任意缺失都不会 panic，且总是返回恰好一个分类
	cases := []*models.FaceGeometry{
		{},
		{BoundingBoxHeightFraction: 0.4, BoundingBoxCenterYFraction: 0.5},
		{BoundingBoxHeightFraction: 0.4, BoundingBoxCenterYFraction: 0.5, LeftEyeCenter: &models.Point2D{X: 0.4, Y: 0.5}},
		{PitchRadians: floatPtr(0), BoundingBoxHeightFraction: 0.4, BoundingBoxCenterYFraction: 0.5},
		{RollRadians: floatPtr(0), BoundingBoxHeightFraction: 0.4, BoundingBoxCenterYFraction: 0.5},
	}

	valid := map[models.PostureCategory]bool{
		models.PostureExcellent:   true,
		models.PostureLookingDown: true,
		models.PostureTilted:      true,
		models.PostureTooClose:    true,
		models.PostureNotPresent:  true,
	}

	for _, geom := range cases {
		for _, detail := range []Detail{DetailFull, DetailPrimary} {
			category := Classify(geom, detail)
			assert.True(t, valid[category], "unexpected category: %s", category)
			// 确定性：同一输入分类结果不变
			assert.Equal(t, category, Classify(geom, detail))
		}
	}
}
