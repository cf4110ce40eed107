package episodetools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"storyreel/internal/model/episode"
)

// PromptGenerator 基于 LLM 的片段提示词生成器
// 实现了 SegmentGenerator 接口
type PromptGenerator struct {
	llm LLMProvider
}

// NewPromptGenerator 创建片段提示词生成器
func NewPromptGenerator(llm LLMProvider) *PromptGenerator {
	return &PromptGenerator{llm: llm}
}

// Generate 实现 SegmentGenerator
func (g *PromptGenerator) Generate(ctx context.Context, req *GenerationRequest) (string, error) {
	if g.llm == nil {
		return "", fmt.Errorf("llm provider is required")
	}
	if req == nil || req.Segment == nil {
		return "", fmt.Errorf("segment is required")
	}
	text, err := g.llm.Generate(ctx, BuildGenerationPrompt(req))
	if err != nil {
		return "", fmt.Errorf("generate segment %d: %w", req.Segment.SegmentNumber, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// BuildGenerationPrompt 构建片段视频提示词的生成指令
// 有修正计划时使用修正计划，否则使用前序快照
func BuildGenerationPrompt(req *GenerationRequest) string {
	seg := req.Segment
	var b strings.Builder
	fmt.Fprintf(&b, "Write a single video-generation prompt for a %.1f second clip (segment %d).\n", seg.EstimatedDuration, seg.SegmentNumber)
	if req.Style != "" {
		fmt.Fprintf(&b, "Visual style: %s\n", req.Style)
	}
	b.WriteString("\n")
	b.WriteString(seg.VisualContinuityNotes)
	b.WriteString("\n")
	if seg.NarrativeTransition != "" {
		fmt.Fprintf(&b, "Transition: %s\n", seg.NarrativeTransition)
	}
	fmt.Fprintf(&b, "Beat: %s\n", seg.NarrativeBeat)
	if brief := req.Context.Brief; brief != "" {
		fmt.Fprintf(&b, "\nContent:\n%s\n", brief)
	}

	state := req.Corrected
	if state == nil {
		if prev, ok := req.Preceding.Get(); ok {
			state = &prev
		}
	}
	if state != nil && !state.IsEmpty() {
		b.WriteString("\nKeep these visual details consistent with the previous clip:\n")
		b.WriteString(describeSnapshot(*state))
	}
	b.WriteString("\nDescribe camera framing, lighting, mood and each visible character's clothing, expression and position. Output only the prompt text.")
	return b.String()
}

func describeSnapshot(s episode.VisualStateSnapshot) string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, v))
		}
	}
	add("Camera framing", s.CameraFraming)
	add("Lighting", s.Lighting)
	add("Mood", s.Mood)
	add("Location", s.Location)
	add("Time of day", s.TimeOfDay)

	ids := make([]string, 0, len(s.Characters))
	for id := range s.Characters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := s.Characters[id]
		var parts []string
		for _, p := range [][2]string{{"clothing", c.Clothing}, {"expression", c.Expression}, {"position", c.Position}, {"props", c.Props}} {
			if strings.TrimSpace(p[1]) != "" {
				parts = append(parts, p[0]+" "+p[1])
			}
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("- %s: %s", id, strings.Join(parts, "; ")))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
