package episodetools

import (
	"sort"
	"strings"

	"storyreel/internal/model/episode"
)

// MergedNotesMarker 多个来源合并后 Notes 字段的固定标记
const MergedNotesMarker = "Merged from multiple observations"

// Source 一份带置信度的部分观测
type Source[V any] struct {
	Fields     map[string]V
	Confidence episode.Confidence
	Notes      string
}

// Merged 合并结果
type Merged[V any] struct {
	Fields     map[string]V
	Confidence episode.Confidence
	Notes      string
	Sources    int
}

// Merge 按置信度逐字段合并多份部分观测
//
// 规则：
//   - 每个字段取定义了它的最高置信度来源的值；同置信度保留先出现的值
//   - 只有一个来源时原样透传（置信度与 Notes 不变）
//   - 两个及以上来源时，置信度固定为 medium，Notes 替换为 MergedNotesMarker
//   - 没有来源时返回空结果，置信度为 low
func Merge[V any](sources ...Source[V]) Merged[V] {
	out := Merged[V]{
		Fields:  make(map[string]V),
		Sources: len(sources),
	}
	switch len(sources) {
	case 0:
		out.Confidence = episode.ConfidenceLow
		return out
	case 1:
		for k, v := range sources[0].Fields {
			out.Fields[k] = v
		}
		out.Confidence = sources[0].Confidence
		out.Notes = sources[0].Notes
		return out
	}

	ranks := make(map[string]int)
	for _, src := range sources {
		rank := src.Confidence.Rank()
		for k, v := range src.Fields {
			if best, ok := ranks[k]; ok && rank <= best {
				continue
			}
			ranks[k] = rank
			out.Fields[k] = v
		}
	}
	out.Confidence = episode.ConfidenceMedium
	out.Notes = MergedNotesMarker
	return out
}

// ----- 角色图片分析结果合并 -----

type stringField[T any] struct {
	key string
	ptr func(*T) *string
}

var characterAnalysisFields = []stringField[episode.CharacterAnalysis]{
	{"name", func(a *episode.CharacterAnalysis) *string { return &a.Name }},
	{"gender", func(a *episode.CharacterAnalysis) *string { return &a.Gender }},
	{"age_group", func(a *episode.CharacterAnalysis) *string { return &a.AgeGroup }},
	{"hair_style", func(a *episode.CharacterAnalysis) *string { return &a.HairStyle }},
	{"hair_color", func(a *episode.CharacterAnalysis) *string { return &a.HairColor }},
	{"face", func(a *episode.CharacterAnalysis) *string { return &a.Face }},
	{"body", func(a *episode.CharacterAnalysis) *string { return &a.Body }},
	{"top", func(a *episode.CharacterAnalysis) *string { return &a.Top }},
	{"bottom", func(a *episode.CharacterAnalysis) *string { return &a.Bottom }},
	{"accessory", func(a *episode.CharacterAnalysis) *string { return &a.Accessory }},
}

// MergeCharacterAnalyses 合并同一角色的多张图片分析结果
func MergeCharacterAnalyses(analyses ...episode.CharacterAnalysis) episode.CharacterAnalysis {
	sources := make([]Source[string], 0, len(analyses))
	for i := range analyses {
		sources = append(sources, Source[string]{
			Fields:     flattenStringFields(&analyses[i], characterAnalysisFields),
			Confidence: analyses[i].Confidence,
			Notes:      analyses[i].Notes,
		})
	}
	merged := Merge(sources...)

	var out episode.CharacterAnalysis
	for _, f := range characterAnalysisFields {
		if v, ok := merged.Fields[f.key]; ok {
			*f.ptr(&out) = v
		}
	}
	out.Confidence = merged.Confidence
	out.Notes = merged.Notes
	return out
}

func flattenStringFields[T any](v *T, fields []stringField[T]) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if s := strings.TrimSpace(*f.ptr(v)); s != "" {
			out[f.key] = s
		}
	}
	return out
}

// ----- 视觉状态快照合并 -----

// SnapshotObservation 一份带置信度的视觉状态观测
type SnapshotObservation struct {
	Snapshot   episode.VisualStateSnapshot
	Confidence episode.Confidence
}

var snapshotFields = []stringField[episode.VisualStateSnapshot]{
	{"camera_framing", func(s *episode.VisualStateSnapshot) *string { return &s.CameraFraming }},
	{"lighting", func(s *episode.VisualStateSnapshot) *string { return &s.Lighting }},
	{"mood", func(s *episode.VisualStateSnapshot) *string { return &s.Mood }},
	{"location", func(s *episode.VisualStateSnapshot) *string { return &s.Location }},
	{"time_of_day", func(s *episode.VisualStateSnapshot) *string { return &s.TimeOfDay }},
}

var characterStateFields = []stringField[episode.CharacterVisualState]{
	{"clothing", func(c *episode.CharacterVisualState) *string { return &c.Clothing }},
	{"expression", func(c *episode.CharacterVisualState) *string { return &c.Expression }},
	{"position", func(c *episode.CharacterVisualState) *string { return &c.Position }},
	{"props", func(c *episode.CharacterVisualState) *string { return &c.Props }},
}

const characterKeyPrefix = "character:"

// FlattenSnapshot 把快照展开为字段表，角色字段的 key 为 character:<id>:<attr>
func FlattenSnapshot(s episode.VisualStateSnapshot) map[string]string {
	out := flattenStringFields(&s, snapshotFields)
	for id, state := range s.Characters {
		state := state
		for k, v := range flattenStringFields(&state, characterStateFields) {
			out[characterKeyPrefix+id+":"+k] = v
		}
	}
	return out
}

// UnflattenSnapshot FlattenSnapshot 的逆操作
func UnflattenSnapshot(fields map[string]string) episode.VisualStateSnapshot {
	var out episode.VisualStateSnapshot
	for _, f := range snapshotFields {
		if v, ok := fields[f.key]; ok {
			*f.ptr(&out) = v
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.HasPrefix(k, characterKeyPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		rest := strings.TrimPrefix(k, characterKeyPrefix)
		idx := strings.LastIndex(rest, ":")
		if idx <= 0 {
			continue
		}
		id, attr := rest[:idx], rest[idx+1:]
		if out.Characters == nil {
			out.Characters = make(map[string]episode.CharacterVisualState)
		}
		state := out.Characters[id]
		for _, f := range characterStateFields {
			if f.key == attr {
				*f.ptr(&state) = fields[k]
			}
		}
		out.Characters[id] = state
	}
	return out
}

// MergeSnapshots 按置信度合并多份视觉状态观测
func MergeSnapshots(observations ...SnapshotObservation) (episode.VisualStateSnapshot, episode.Confidence) {
	sources := make([]Source[string], 0, len(observations))
	for _, obs := range observations {
		sources = append(sources, Source[string]{
			Fields:     FlattenSnapshot(obs.Snapshot),
			Confidence: obs.Confidence,
			Notes:      obs.Snapshot.Notes,
		})
	}
	merged := Merge(sources...)
	out := UnflattenSnapshot(merged.Fields)
	out.Notes = merged.Notes
	return out, merged.Confidence
}
