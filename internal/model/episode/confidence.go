package episode

import "strings"

// Confidence 观测结果的置信度等级
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank 置信度排序值，未知等级视为最低
func (c Confidence) Rank() int {
	switch Confidence(strings.ToLower(string(c))) {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// CharacterAnalysis 角色图片分析结果（一张图片一份）
// 字段含义与小说级别的角色外貌、服装保持一致
type CharacterAnalysis struct {
	Name       string     `json:"name"`
	Gender     string     `json:"gender,omitempty"`
	AgeGroup   string     `json:"age_group,omitempty"`
	HairStyle  string     `json:"hair_style,omitempty"`
	HairColor  string     `json:"hair_color,omitempty"`
	Face       string     `json:"face,omitempty"`
	Body       string     `json:"body,omitempty"`
	Top        string     `json:"top,omitempty"`
	Bottom     string     `json:"bottom,omitempty"`
	Accessory  string     `json:"accessory,omitempty"`
	Confidence Confidence `json:"confidence"`
	Notes      string     `json:"notes,omitempty"`
}
