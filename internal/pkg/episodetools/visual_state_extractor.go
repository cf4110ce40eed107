package episodetools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"storyreel/internal/model/episode"
)

// ErrEmptyResponse 模型返回了空内容
var ErrEmptyResponse = errors.New("empty response from model")

// LLMVisualStateExtractor 基于 LLM 的视觉状态抽取器
// 实现了 VisualStateExtractor 接口
type LLMVisualStateExtractor struct {
	llm    LLMProvider
	schema string
}

// NewLLMVisualStateExtractor 创建视觉状态抽取器
// 提示词中嵌入 VisualStateSnapshot 的 JSON Schema，约束模型输出
func NewLLMVisualStateExtractor(llm LLMProvider) (*LLMVisualStateExtractor, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	schema, err := snapshotSchema()
	if err != nil {
		return nil, fmt.Errorf("reflect snapshot schema: %w", err)
	}
	return &LLMVisualStateExtractor{llm: llm, schema: schema}, nil
}

func snapshotSchema() (string, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&episode.VisualStateSnapshot{})
	b, err := schema.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Extract 实现 VisualStateExtractor
func (e *LLMVisualStateExtractor) Extract(ctx context.Context, text string, characterIDs []string) (episode.MaybeSnapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return episode.NoSnapshot(), nil
	}

	resp, err := e.llm.Generate(ctx, e.buildPrompt(text, characterIDs))
	if err != nil {
		return episode.NoSnapshot(), fmt.Errorf("extract visual state: %w", err)
	}
	snapshot, err := ParseVisualState(resp, characterIDs)
	if err != nil {
		return episode.NoSnapshot(), err
	}
	if snapshot.IsEmpty() {
		return episode.NoSnapshot(), nil
	}
	return episode.SomeSnapshot(snapshot), nil
}

func (e *LLMVisualStateExtractor) buildPrompt(text string, characterIDs []string) string {
	var b strings.Builder
	b.WriteString("You describe the visual state at the END of a short video clip so the next clip can stay consistent.\n")
	b.WriteString("Return a single JSON object that matches this JSON Schema. Omit any field the text does not support; do not guess.\n\n")
	b.WriteString(e.schema)
	b.WriteString("\n\n")
	if len(characterIDs) > 0 {
		b.WriteString("Use exactly these character identifiers as keys of \"characters\": ")
		b.WriteString(strings.Join(characterIDs, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString("Clip text:\n")
	b.WriteString(text)
	return b.String()
}

// ParseVisualState 解析模型返回的快照 JSON
// 不在已知角色列表中的角色会被丢弃（列表为空时全部保留），空角色状态也会被丢弃
func ParseVisualState(content string, characterIDs []string) (episode.VisualStateSnapshot, error) {
	content = CleanJSONContent(content)
	if content == "" {
		return episode.VisualStateSnapshot{}, ErrEmptyResponse
	}
	var snapshot episode.VisualStateSnapshot
	if err := json.Unmarshal([]byte(content), &snapshot); err != nil {
		return episode.VisualStateSnapshot{}, fmt.Errorf("parse visual state JSON: %w", err)
	}

	characters := make(map[string]episode.CharacterVisualState, len(snapshot.Characters))
	for id, state := range snapshot.Characters {
		if state.IsEmpty() {
			continue
		}
		key := id
		if len(characterIDs) > 0 {
			known, ok := matchCharacterID(characterIDs, id)
			if !ok {
				continue
			}
			key = known
		}
		characters[key] = state
	}
	snapshot.Characters = nil
	if len(characters) > 0 {
		snapshot.Characters = characters
	}
	return snapshot, nil
}

func matchCharacterID(ids []string, id string) (string, bool) {
	for _, known := range ids {
		if strings.EqualFold(strings.TrimSpace(known), strings.TrimSpace(id)) {
			return known, true
		}
	}
	return "", false
}
