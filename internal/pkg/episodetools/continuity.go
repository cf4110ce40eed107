package episodetools

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"storyreel/internal/model/episode"
)

// SegmentContext 当前片段的计划上下文（连续性校验的"后一方"）
type SegmentContext struct {
	SegmentNumber  int
	SceneID        string
	ContinuesScene bool // 与上一片段来自同一场景（拆分产生的延续）
	Location       string
	Setting        episode.Setting
	TimeOfDay      string
	Characters     []string
	// Planned 片段简介所暗示的视觉状态（部分），可由抽取器从简介中得到
	Planned episode.VisualStateSnapshot
	Brief   string
}

// ContextFromSegment 由片段构造校验上下文，prev 为上一片段（第一个片段传 nil）
func ContextFromSegment(seg, prev *episode.Segment) SegmentContext {
	ctx := SegmentContext{
		SegmentNumber: seg.SegmentNumber,
		SceneID:       seg.SceneID(),
		Location:      seg.Location,
		Setting:       seg.Setting,
		TimeOfDay:     seg.TimeOfDay,
		Characters:    copyStrings(seg.Characters),
		Brief:         BuildSegmentBrief(seg),
	}
	if prev != nil && prev.SceneID() == seg.SceneID() {
		ctx.ContinuesScene = true
	}
	return ctx
}

// BuildSegmentBrief 片段简介：剧情节拍 + 动作 + 对白
func BuildSegmentBrief(seg *episode.Segment) string {
	var b strings.Builder
	b.WriteString(seg.NarrativeBeat)
	for _, action := range seg.Actions {
		b.WriteString("\n")
		b.WriteString(action)
	}
	for _, d := range seg.Dialogue {
		b.WriteString("\n")
		b.WriteString(d.Character)
		b.WriteString(": ")
		b.WriteString(strings.Join(d.Lines, " "))
	}
	return strings.TrimSpace(b.String())
}

// ValidateOptions 连续性校验参数
type ValidateOptions struct {
	// AutoCorrect 为每个问题附上修正建议（取前序快照的值），并给出修正后的计划
	AutoCorrect bool `mapstructure:"auto_correct"`
}

// ContinuityValidator 跨片段连续性校验器
type ContinuityValidator struct{}

// NewContinuityValidator 创建连续性校验器
func NewContinuityValidator() *ContinuityValidator {
	return &ContinuityValidator{}
}

// ValidateContinuity 使用默认校验器校验
func ValidateContinuity(preceding episode.MaybeSnapshot, ctx SegmentContext, opts *ValidateOptions) *episode.ContinuityResult {
	return NewContinuityValidator().Validate(preceding, ctx, opts)
}

// Validate 比较前序快照与当前片段计划
//
// 规则：
//   - 没有前序快照：有效，满分，无问题
//   - 只比较双方都有值的属性；地点、时间、光线只在同场景延续时比较
//   - 分数 = 未遗留问题的已比较属性占比 × 100；带修正建议的问题视为已解决
//   - 存在 blocking 级问题时无效
func (v *ContinuityValidator) Validate(preceding episode.MaybeSnapshot, ctx SegmentContext, opts *ValidateOptions) *episode.ContinuityResult {
	prev, ok := preceding.Get()
	if !ok {
		return &episode.ContinuityResult{
			IsValid:      true,
			OverallScore: 100,
			Issues:       []episode.ContinuityIssue{},
		}
	}
	autoCorrect := opts != nil && opts.AutoCorrect

	c := &comparison{issues: []episode.ContinuityIssue{}}
	planned := ctx.Planned
	if ctx.Location != "" {
		planned.Location = ctx.Location
	}
	if ctx.TimeOfDay != "" {
		planned.TimeOfDay = ctx.TimeOfDay
	}

	if ctx.ContinuesScene {
		c.compare(episode.CategoryLocation, episode.SeverityBlocking, "", "location", prev.Location, planned.Location)
		c.compare(episode.CategoryTimeOfDay, episode.SeverityBlocking, "", "time of day", prev.TimeOfDay, planned.TimeOfDay)
		c.compare(episode.CategoryLighting, episode.SeverityWarning, "", "lighting", prev.Lighting, planned.Lighting)
	}
	c.compare(episode.CategoryCameraFraming, episode.SeverityInfo, "", "camera framing", prev.CameraFraming, planned.CameraFraming)
	c.compare(episode.CategoryMood, episode.SeverityInfo, "", "mood", prev.Mood, planned.Mood)

	clothingSeverity := episode.SeverityWarning
	if ctx.ContinuesScene {
		clothingSeverity = episode.SeverityBlocking
	}
	for _, id := range sortedCharacterIDs(prev.Characters) {
		if len(ctx.Characters) > 0 && !containsFold(ctx.Characters, id) {
			continue
		}
		want := prev.Characters[id]
		got, found := lookupCharacter(planned.Characters, id)
		if !found {
			continue
		}
		c.compare(episode.CategoryCharacterClothing, clothingSeverity, id, "clothing", want.Clothing, got.Clothing)
		c.compare(episode.CategoryCharacterProps, episode.SeverityWarning, id, "props", want.Props, got.Props)
		c.compare(episode.CategoryCharacterExpression, episode.SeverityInfo, id, "expression", want.Expression, got.Expression)
		c.compare(episode.CategoryCharacterPosition, episode.SeverityInfo, id, "position", want.Position, got.Position)
	}

	result := &episode.ContinuityResult{
		ComparedAttributes: c.compared,
		Issues:             c.issues,
	}
	if autoCorrect && len(c.issues) > 0 {
		corrections := episode.VisualStateSnapshot{}
		for i := range result.Issues {
			result.Issues[i].Correction = result.Issues[i].Expected
			applyCorrection(&corrections, result.Issues[i])
		}
		plan, _ := MergeSnapshots(
			SnapshotObservation{Snapshot: planned, Confidence: episode.ConfidenceMedium},
			SnapshotObservation{Snapshot: corrections, Confidence: episode.ConfidenceHigh},
		)
		result.CorrectedPlan = &plan
	}

	unresolved := 0
	for _, issue := range result.Issues {
		if !issue.Resolved() {
			unresolved++
		}
	}
	result.OverallScore = 100
	if c.compared > 0 {
		result.OverallScore = math.Round(float64(c.compared-unresolved)/float64(c.compared)*10000) / 100
	}
	result.IsValid = !result.HasBlocking()
	return result
}

type comparison struct {
	compared int
	issues   []episode.ContinuityIssue
}

func (c *comparison) compare(category episode.IssueCategory, severity episode.Severity, subject, label, expected, actual string) {
	expected, actual = strings.TrimSpace(expected), strings.TrimSpace(actual)
	if expected == "" || actual == "" {
		return
	}
	c.compared++
	if valuesAgree(expected, actual) {
		return
	}
	desc := fmt.Sprintf("%s changed from %q to %q", label, expected, actual)
	if subject != "" {
		desc = fmt.Sprintf("%s %s", subject, desc)
	}
	c.issues = append(c.issues, episode.ContinuityIssue{
		Category:    category,
		Severity:    severity,
		Description: desc,
		Subject:     subject,
		Expected:    expected,
		Actual:      actual,
	})
}

func applyCorrection(s *episode.VisualStateSnapshot, issue episode.ContinuityIssue) {
	value := issue.Correction
	switch issue.Category {
	case episode.CategoryLocation:
		s.Location = value
	case episode.CategoryTimeOfDay:
		s.TimeOfDay = value
	case episode.CategoryLighting:
		s.Lighting = value
	case episode.CategoryMood:
		s.Mood = value
	case episode.CategoryCameraFraming:
		s.CameraFraming = value
	default:
		if s.Characters == nil {
			s.Characters = make(map[string]episode.CharacterVisualState)
		}
		state := s.Characters[issue.Subject]
		switch issue.Category {
		case episode.CategoryCharacterClothing:
			state.Clothing = value
		case episode.CategoryCharacterExpression:
			state.Expression = value
		case episode.CategoryCharacterPosition:
			state.Position = value
		case episode.CategoryCharacterProps:
			state.Props = value
		}
		s.Characters[issue.Subject] = state
	}
}

// valuesAgree 归一化后相同或互相包含即视为一致
func valuesAgree(a, b string) bool {
	na, nb := normalizeValue(a), normalizeValue(b)
	if na == "" || nb == "" {
		return true
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

func normalizeValue(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

func sortedCharacterIDs(m map[string]episode.CharacterVisualState) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func lookupCharacter(m map[string]episode.CharacterVisualState, id string) (episode.CharacterVisualState, bool) {
	if state, ok := m[id]; ok {
		return state, true
	}
	for k, state := range m {
		if strings.EqualFold(k, id) {
			return state, true
		}
	}
	return episode.CharacterVisualState{}, false
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
