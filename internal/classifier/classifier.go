// Package classifier 提供人脸几何到姿态分类的纯函数分类器
//
// 分类规则按严格优先级顺序评估（第一个命中的规则生效）：
// 1. 无人脸 → NotPresent
// 2. 人脸占帧高度比例过大 → TooClose
// 3. 低头（俯仰角优先，缺失时回退到人脸中心Y位置）→ LookingDown
// 4. 侧倾（侧倾角优先，缺失时回退到双眼连线角度）→ Tilted
// 5. 其余 → Excellent
//
// 优先级顺序保证了同时命中多条规则的帧（例如既侧倾又过近）有
// 确定性的分类结果，排序对应严重程度：距离 > 低头 > 侧倾。
// 角度规则始终优先于位置/关键点启发式，几何信息越丰富精度越高。
package classifier

import (
	"math"

	"wisefido-posture/internal/models"
)

// Detail 分类精度档位
type Detail int

const (
	// DetailFull 完整分析（包含眼部关键点回退路径）
	DetailFull Detail = iota
	// DetailPrimary 仅主几何分析（资源压力下跳过眼部关键点分析）
	DetailPrimary
)

// 分类阈值
const (
	tooCloseHeightFraction = 0.6   // 人脸高度超过帧高度60% → 过近
	lookingDownPitch       = -0.3  // 俯仰角低于 -0.3 弧度（约-17°）→ 低头
	lookingDownCenterY     = 0.35  // 人脸中心Y低于0.35（画面上方为0）→ 低头
	tiltedRoll             = 0.25  // 侧倾角超过 0.25 弧度（约14°）→ 侧倾
	tiltedEyeAngle         = 0.26  // 双眼连线角度超过 0.26 弧度（约15°）→ 侧倾
)

// Classify 将单帧人脸几何观测分类为姿态分类
// 纯函数：确定性、无副作用、无内部状态
// geom 为 nil 表示该帧未检测到人脸
func Classify(geom *models.FaceGeometry, detail Detail) models.PostureCategory {
	// 规则1：无人脸
	if geom == nil {
		return models.PostureNotPresent
	}

	// 规则2：距离过近
	if geom.BoundingBoxHeightFraction > tooCloseHeightFraction {
		return models.PostureTooClose
	}

	// 规则3：低头
	if geom.PitchRadians != nil {
		if *geom.PitchRadians < lookingDownPitch {
			return models.PostureLookingDown
		}
	} else if geom.BoundingBoxCenterYFraction < lookingDownCenterY {
		// 俯仰角缺失，回退到位置启发式
		return models.PostureLookingDown
	}

	// 规则4：侧倾
	if geom.RollRadians != nil {
		if math.Abs(*geom.RollRadians) > tiltedRoll {
			return models.PostureTilted
		}
	} else if detail == DetailFull && geom.LeftEyeCenter != nil && geom.RightEyeCenter != nil {
		// 侧倾角缺失，回退到双眼连线角度（仅完整分析档位）
		angle := math.Atan2(
			geom.RightEyeCenter.Y-geom.LeftEyeCenter.Y,
			geom.RightEyeCenter.X-geom.LeftEyeCenter.X,
		)
		if math.Abs(angle) > tiltedEyeAngle {
			return models.PostureTilted
		}
	}

	// 规则5：姿态良好
	return models.PostureExcellent
}
