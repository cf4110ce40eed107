package episodetools

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"storyreel/internal/model/episode"
)

const (
	// DefaultTargetDuration 默认目标片段时长（秒）
	DefaultTargetDuration = 10.0
	// AbsoluteMinSegmentDuration 片段时长下限的默认钳制值
	AbsoluteMinSegmentDuration = 3.0
	// AbsoluteMaxSegmentDuration 片段时长上限的默认钳制值
	AbsoluteMaxSegmentDuration = 15.0
	// MaxNarrativeBeatRunes 剧情节拍最大长度（字符）
	MaxNarrativeBeatRunes = 100

	durationEpsilon = 1e-9
)

// SegmentOptions 分段参数
// MinDuration / MaxDuration 为 0 时由 TargetDuration 推导；显式值优先
type SegmentOptions struct {
	TargetDuration float64 `json:"target_duration" mapstructure:"target_duration"`
	MinDuration    float64 `json:"min_duration" mapstructure:"min_duration"`
	MaxDuration    float64 `json:"max_duration" mapstructure:"max_duration"`
}

// Resolve 计算实际使用的目标、下限、上限
//
// 推导规则：
//   - target 默认 10 秒
//   - min = max(3, 0.3 × target)
//   - max = min(15, 1.5 × target)
func (o *SegmentOptions) Resolve() (target, minDur, maxDur float64, err error) {
	target = DefaultTargetDuration
	if o != nil && o.TargetDuration > 0 {
		target = o.TargetDuration
	}
	minDur = math.Max(AbsoluteMinSegmentDuration, 0.3*target)
	maxDur = math.Min(AbsoluteMaxSegmentDuration, 1.5*target)
	if o != nil && o.MinDuration > 0 {
		minDur = o.MinDuration
	}
	if o != nil && o.MaxDuration > 0 {
		maxDur = o.MaxDuration
	}
	if o != nil && (o.TargetDuration < 0 || o.MinDuration < 0 || o.MaxDuration < 0) {
		return 0, 0, 0, invalidInput("options", "durations must not be negative")
	}
	if minDur > maxDur {
		return 0, 0, 0, invalidInput("options", "min_duration %.2f exceeds max_duration %.2f", minDur, maxDur)
	}
	return target, minDur, maxDur, nil
}

// Segmenter 剧集分段引擎
// 纯计算：无 I/O、无并发，对同一剧集与参数结果确定
type Segmenter struct {
	estimator *DurationEstimator
}

// NewSegmenter 创建分段引擎，estimator 为 nil 时使用默认估算器
func NewSegmenter(estimator *DurationEstimator) *Segmenter {
	if estimator == nil {
		estimator = NewDurationEstimator()
	}
	return &Segmenter{estimator: estimator}
}

// SegmentEpisode 使用默认估算器对剧集分段
func SegmentEpisode(ep *episode.Episode, opts *SegmentOptions) (*episode.SegmentationResult, error) {
	return NewSegmenter(nil).Segment(ep, opts)
}

// Segment 将剧集的结构化剧本切分为有序的视频生成片段
//
// 逻辑（按场景原顺序）：
//  1. 估算场景总时长
//  2. 总时长 <= max：整场一个片段，时长钳制到 [min, max]
//  3. 否则按对白/动作条目贪心装箱拆分，条目不会被拆开，所有子片段引用同一场景ID
//  4. 生成衔接文本、视觉连续性备注、剧情节拍、起始时间
//
// Returns:
//   - *episode.SegmentationResult: 分段结果
//   - error: 剧本缺失、场景为空或参数非法时返回 *InvalidInputError
func (sg *Segmenter) Segment(ep *episode.Episode, opts *SegmentOptions) (*episode.SegmentationResult, error) {
	if ep == nil {
		return nil, invalidInput("episode", "episode is required")
	}
	if ep.Screenplay == nil {
		return nil, invalidInput("structured_screenplay", "episode %q has no structured screenplay", ep.ID)
	}
	if len(ep.Screenplay.Scenes) == 0 {
		return nil, invalidInput("scenes", "structured screenplay of episode %q has no scenes", ep.ID)
	}
	_, minDur, maxDur, err := opts.Resolve()
	if err != nil {
		return nil, err
	}

	result := &episode.SegmentationResult{
		EpisodeID: ep.ID,
		Segments:  make([]*episode.Segment, 0, len(ep.Screenplay.Scenes)),
	}

	var prev *episode.Segment
	var prevScene *episode.Scene
	elapsed := 0.0
	for i := range ep.Screenplay.Scenes {
		scene := &ep.Screenplay.Scenes[i]
		total := sg.estimator.Estimate(scene)

		var chunks []sceneChunk
		if total <= maxDur+durationEpsilon {
			chunks = []sceneChunk{{
				dialogue: scene.Dialogue,
				actions:  scene.Actions,
				duration: total,
			}}
		} else {
			chunks = sg.splitScene(scene, total, minDur, maxDur)
		}

		for _, chunk := range chunks {
			seg := sg.buildSegment(scene, chunk, minDur, maxDur)
			seg.SegmentNumber = len(result.Segments) + 1
			seg.StartTimestamp = roundDuration(elapsed)
			if prev != nil {
				seg.NarrativeTransition = buildTransition(prev, prevScene, seg, scene)
			}
			elapsed += seg.EstimatedDuration
			result.Segments = append(result.Segments, seg)
			prev = seg
			prevScene = scene
		}
	}

	result.SegmentCount = len(result.Segments)
	result.TotalDuration = roundDuration(elapsed)

	log.Debug().
		Str("episode_id", ep.ID).
		Int("scenes", len(ep.Screenplay.Scenes)).
		Int("segments", result.SegmentCount).
		Float64("total_duration", result.TotalDuration).
		Msg("剧集分段完成")

	return result, nil
}

// sceneChunk 场景拆分后的一段
type sceneChunk struct {
	dialogue []episode.DialogueEntry
	actions  []string
	duration float64
}

func (c *sceneChunk) empty() bool {
	return len(c.dialogue) == 0 && len(c.actions) == 0
}

// sceneUnit 拆分的最小单位：一轮对白或一个动作节拍
type sceneUnit struct {
	dialogue *episode.DialogueEntry
	action   string
	isAction bool
	duration float64
}

// splitScene 拆分超长场景
//
// 装箱策略（确定性贪心）：
//   - 动作与对白交替排列（动作0、对白0、动作1、对白1……，剩余部分顺序追加），各自顺序不变
//   - 条目时长按比例缩放，使总和等于场景总时长（作者预估可能大于内容时长）
//   - 依次装入当前块，超过 max 时封块
//   - 单个条目超过 max 时独占一块，溢出部分拆成不含条目的延续块
//   - 末块小于 min 且与前一块之和不超过 max 时并入前一块
func (sg *Segmenter) splitScene(scene *episode.Scene, total, minDur, maxDur float64) []sceneChunk {
	units := sg.interleaveUnits(scene)
	content := 0.0
	for _, u := range units {
		content += u.duration
	}
	if len(units) == 0 || content <= 0 {
		return evenTimeSlices(sceneChunk{}, total, maxDur)
	}

	scale := total / content
	var chunks []sceneChunk
	cur := sceneChunk{}
	flush := func() {
		if !cur.empty() || cur.duration > 0 {
			chunks = append(chunks, cur)
		}
		cur = sceneChunk{}
	}

	for _, u := range units {
		d := u.duration * scale
		if d > maxDur+durationEpsilon {
			flush()
			single := sceneChunk{}
			single.add(u)
			chunks = append(chunks, evenTimeSlices(single, d, maxDur)...)
			continue
		}
		if !cur.empty() && cur.duration+d > maxDur+durationEpsilon {
			flush()
		}
		cur.add(u)
		cur.duration += d
	}
	flush()

	if n := len(chunks); n >= 2 {
		last, prev := chunks[n-1], chunks[n-2]
		if last.duration < minDur && prev.duration+last.duration <= maxDur+durationEpsilon {
			prev.dialogue = append(prev.dialogue, last.dialogue...)
			prev.actions = append(prev.actions, last.actions...)
			prev.duration += last.duration
			chunks = append(chunks[:n-2], prev)
		}
	}
	return chunks
}

func (c *sceneChunk) add(u sceneUnit) {
	if u.isAction {
		c.actions = append(c.actions, u.action)
		return
	}
	c.dialogue = append(c.dialogue, *u.dialogue)
}

// evenTimeSlices 把时长 d 平均切成若干不超过 max 的时间片，条目只放在第一片
func evenTimeSlices(first sceneChunk, d, maxDur float64) []sceneChunk {
	n := int(math.Ceil(d/maxDur - durationEpsilon))
	if n < 1 {
		n = 1
	}
	slice := d / float64(n)
	out := make([]sceneChunk, n)
	first.duration = slice
	out[0] = first
	for i := 1; i < n; i++ {
		out[i] = sceneChunk{duration: slice}
	}
	return out
}

func (sg *Segmenter) interleaveUnits(scene *episode.Scene) []sceneUnit {
	units := make([]sceneUnit, 0, len(scene.Actions)+len(scene.Dialogue))
	n := len(scene.Actions)
	if len(scene.Dialogue) > n {
		n = len(scene.Dialogue)
	}
	for i := 0; i < n; i++ {
		if i < len(scene.Actions) {
			units = append(units, sceneUnit{
				action:   scene.Actions[i],
				isAction: true,
				duration: sg.estimator.SecondsPerAction,
			})
		}
		if i < len(scene.Dialogue) {
			units = append(units, sceneUnit{
				dialogue: &scene.Dialogue[i],
				duration: sg.estimator.DialogueDuration(scene.Dialogue[i]),
			})
		}
	}
	return units
}

func (sg *Segmenter) buildSegment(scene *episode.Scene, chunk sceneChunk, minDur, maxDur float64) *episode.Segment {
	return &episode.Segment{
		SceneIDs:              []string{scene.ID},
		EstimatedDuration:     clampDuration(roundDuration(chunk.duration), minDur, maxDur),
		NarrativeBeat:         buildNarrativeBeat(scene, chunk),
		VisualContinuityNotes: BuildVisualContinuityNotes(scene),
		Location:              scene.Location,
		Setting:               scene.Setting,
		TimeOfDay:             scene.TimeOfDay,
		Characters:            copyStrings(scene.Characters),
		Dialogue:              copyDialogue(chunk.dialogue),
		Actions:               copyStrings(chunk.actions),
		Status:                episode.SegmentStatusPlanned,
	}
}

// BuildVisualContinuityNotes 视觉连续性备注：地点、时间、角色（无角色时省略）
func BuildVisualContinuityNotes(scene *episode.Scene) string {
	lines := []string{
		"Location: " + displayLocation(scene.Location),
		"Time: " + strings.TrimSpace(fmt.Sprintf("%s %s", scene.Setting, strings.ToUpper(strings.TrimSpace(scene.TimeOfDay)))),
	}
	if len(scene.Characters) > 0 {
		lines = append(lines, "Characters: "+strings.Join(scene.Characters, ", "))
	}
	return strings.Join(lines, "\n")
}

func buildTransition(prev *episode.Segment, prevScene *episode.Scene, cur *episode.Segment, scene *episode.Scene) string {
	if prev.SceneID() == cur.SceneID() {
		return fmt.Sprintf("Action continues seamlessly from the previous segment in %s.", displayLocation(scene.Location))
	}
	timeDesc := strings.TrimSpace(fmt.Sprintf("%s %s", scene.Setting, strings.ToUpper(strings.TrimSpace(scene.TimeOfDay))))
	if timeDesc == "" {
		return fmt.Sprintf("Transitions from %s to %s.", displayLocation(prevScene.Location), displayLocation(scene.Location))
	}
	return fmt.Sprintf("Transitions from %s to %s (%s).", displayLocation(prevScene.Location), displayLocation(scene.Location), timeDesc)
}

// buildNarrativeBeat 优先使用本段第一个动作，其次场景第一个动作，最后场景描述
func buildNarrativeBeat(scene *episode.Scene, chunk sceneChunk) string {
	source := ""
	switch {
	case len(chunk.actions) > 0 && strings.TrimSpace(chunk.actions[0]) != "":
		source = chunk.actions[0]
	case len(scene.Actions) > 0 && strings.TrimSpace(scene.Actions[0]) != "":
		source = scene.Actions[0]
	default:
		source = scene.Description
	}
	return TruncateRunes(source, MaxNarrativeBeatRunes)
}

// TruncateRunes 按字符截断，超长时以 "..." 结尾，结果不超过 limit 个字符
func TruncateRunes(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return strings.TrimRight(string(r[:limit-3]), " ,;:") + "..."
}

func displayLocation(loc string) string {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return "UNSPECIFIED LOCATION"
	}
	return loc
}

func clampDuration(d, minDur, maxDur float64) float64 {
	if d < minDur {
		return minDur
	}
	if d > maxDur {
		return maxDur
	}
	return d
}

func roundDuration(d float64) float64 {
	return math.Round(d*100) / 100
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyDialogue(in []episode.DialogueEntry) []episode.DialogueEntry {
	out := make([]episode.DialogueEntry, len(in))
	for i, entry := range in {
		out[i] = episode.DialogueEntry{
			Character: entry.Character,
			Lines:     copyStrings(entry.Lines),
		}
	}
	return out
}
