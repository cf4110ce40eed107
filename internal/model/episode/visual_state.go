package episode

// VisualStateSnapshot 片段结束时的视觉状态快照
// 由外部文本/视觉模型抽取，所有字段均可缺省（部分快照）
type VisualStateSnapshot struct {
	CameraFraming string                          `bson:"camera_framing,omitempty" json:"camera_framing,omitempty" jsonschema:"description=Camera framing at the end of the clip such as close-up or wide shot"`
	Lighting      string                          `bson:"lighting,omitempty" json:"lighting,omitempty" jsonschema:"description=Lighting conditions"`
	Mood          string                          `bson:"mood,omitempty" json:"mood,omitempty" jsonschema:"description=Overall mood or atmosphere"`
	Location      string                          `bson:"location,omitempty" json:"location,omitempty" jsonschema:"description=Where the clip ends"`
	TimeOfDay     string                          `bson:"time_of_day,omitempty" json:"time_of_day,omitempty" jsonschema:"description=Time of day such as DAY or NIGHT"`
	Characters    map[string]CharacterVisualState `bson:"characters,omitempty" json:"characters,omitempty" jsonschema:"description=Visible state keyed by character identifier"`
	Notes         string                          `bson:"notes,omitempty" json:"notes,omitempty" jsonschema:"description=Free-text remarks"`
}

// CharacterVisualState 单个角色的可见状态
type CharacterVisualState struct {
	Clothing   string `bson:"clothing,omitempty" json:"clothing,omitempty" jsonschema:"description=Visible clothing"`
	Expression string `bson:"expression,omitempty" json:"expression,omitempty" jsonschema:"description=Facial expression"`
	Position   string `bson:"position,omitempty" json:"position,omitempty" jsonschema:"description=Position or pose in frame"`
	Props      string `bson:"props,omitempty" json:"props,omitempty" jsonschema:"description=Objects held or worn"`
}

// IsEmpty 是否没有任何字段
func (c CharacterVisualState) IsEmpty() bool {
	return c.Clothing == "" && c.Expression == "" && c.Position == "" && c.Props == ""
}

// IsEmpty 是否没有任何字段
func (s VisualStateSnapshot) IsEmpty() bool {
	if s.CameraFraming != "" || s.Lighting != "" || s.Mood != "" || s.Location != "" || s.TimeOfDay != "" {
		return false
	}
	for _, c := range s.Characters {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// MaybeSnapshot 可能缺失的视觉状态快照
// 第一个片段或上一次抽取失败时为 NoSnapshot()，"没有前序状态"是一个显式的值
type MaybeSnapshot struct {
	snapshot VisualStateSnapshot
	present  bool
}

// SomeSnapshot 包装一个存在的快照
func SomeSnapshot(s VisualStateSnapshot) MaybeSnapshot {
	return MaybeSnapshot{snapshot: s, present: true}
}

// NoSnapshot 返回缺失的快照
func NoSnapshot() MaybeSnapshot {
	return MaybeSnapshot{}
}

// SnapshotFromPtr 由可空指针构造（用于从持久化层读取）
func SnapshotFromPtr(s *VisualStateSnapshot) MaybeSnapshot {
	if s == nil {
		return NoSnapshot()
	}
	return SomeSnapshot(*s)
}

// Get 返回快照以及是否存在
func (m MaybeSnapshot) Get() (VisualStateSnapshot, bool) {
	return m.snapshot, m.present
}

// Present 是否存在
func (m MaybeSnapshot) Present() bool {
	return m.present
}

// Ptr 转为可空指针（用于持久化）
func (m MaybeSnapshot) Ptr() *VisualStateSnapshot {
	if !m.present {
		return nil
	}
	s := m.snapshot
	return &s
}
