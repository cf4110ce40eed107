package episodetools

import (
	"strings"

	"storyreel/internal/model/episode"
)

const (
	// DefaultWordsPerSecond 台词语速（词/秒）
	DefaultWordsPerSecond = 2.5
	// DefaultSecondsPerAction 每个动作节拍的时长（秒）
	DefaultSecondsPerAction = 2.0
	// MinSceneDuration 场景时长下限（秒），此阶段不设上限
	MinSceneDuration = 3.0
)

// DurationEstimator 场景时长估算器
type DurationEstimator struct {
	WordsPerSecond   float64
	SecondsPerAction float64
	Floor            float64
	Counter          WordCounter
}

// NewDurationEstimator 创建默认参数的时长估算器
func NewDurationEstimator() *DurationEstimator {
	return &DurationEstimator{
		WordsPerSecond:   DefaultWordsPerSecond,
		SecondsPerAction: DefaultSecondsPerAction,
		Floor:            MinSceneDuration,
		Counter:          FieldsWordCounter{},
	}
}

var defaultEstimator = NewDurationEstimator()

// EstimateSceneDuration 使用默认参数估算场景时长（秒）
func EstimateSceneDuration(scene *episode.Scene) float64 {
	return defaultEstimator.Estimate(scene)
}

// Estimate 估算场景时长
//
// 逻辑：
//  1. 台词时长 = 所有台词总词数 / 语速
//  2. 动作时长 = 动作节拍数 × 每节拍时长
//  3. 取 max(作者预估（>0 时）, 台词时长 + 动作时长)
//  4. 不低于 Floor（3 秒）
func (e *DurationEstimator) Estimate(scene *episode.Scene) float64 {
	if scene == nil {
		return e.Floor
	}
	duration := e.ContentDuration(scene.Dialogue, scene.Actions)
	if scene.EstimatedDuration > 0 && scene.EstimatedDuration > duration {
		duration = scene.EstimatedDuration
	}
	if duration < e.Floor {
		duration = e.Floor
	}
	return duration
}

// ContentDuration 台词与动作的内容时长，不做下限处理
func (e *DurationEstimator) ContentDuration(dialogue []episode.DialogueEntry, actions []string) float64 {
	total := 0.0
	for i := range dialogue {
		total += e.DialogueDuration(dialogue[i])
	}
	return total + float64(len(actions))*e.SecondsPerAction
}

// DialogueDuration 一轮对白的时长
func (e *DurationEstimator) DialogueDuration(entry episode.DialogueEntry) float64 {
	if e.WordsPerSecond <= 0 {
		return 0
	}
	words := 0
	for _, line := range entry.Lines {
		words += e.counter().CountWords(strings.TrimSpace(line))
	}
	return float64(words) / e.WordsPerSecond
}

func (e *DurationEstimator) counter() WordCounter {
	if e.Counter == nil {
		return FieldsWordCounter{}
	}
	return e.Counter
}
