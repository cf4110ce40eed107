package episode

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SegmentStatus 片段生成状态
type SegmentStatus string

const (
	SegmentStatusPlanned   SegmentStatus = "planned"   // 已分段，未生成
	SegmentStatusGenerated SegmentStatus = "generated" // 已生成并附加视觉状态
	SegmentStatusFailed    SegmentStatus = "failed"    // 生成失败
)

// Segment 视频生成片段（3-15 秒）
// 说明：由分段引擎创建；生成流水线在生成后附加 FinalVisualState，作为下一个片段连续性校验的输入
// 一个场景可以拆成多个片段，但一个片段永远只对应一个场景
type Segment struct {
	ID                    string               `bson:"id,omitempty" json:"id,omitempty"`                                     // 片段ID（持久化时分配）
	EpisodeID             string               `bson:"episode_id,omitempty" json:"episode_id,omitempty"`                     // 关联的剧集ID
	SegmentNumber         int                  `bson:"segment_number" json:"segment_number"`                                 // 片段序号（从1开始，连续）
	SceneIDs              []string             `bson:"scene_ids" json:"scene_ids"`                                           // 来源场景ID
	StartTimestamp        float64              `bson:"start_timestamp" json:"start_timestamp"`                               // 起始时间（秒，前序片段时长之和）
	EstimatedDuration     float64              `bson:"estimated_duration" json:"estimated_duration"`                         // 预估时长（秒）
	NarrativeBeat         string               `bson:"narrative_beat" json:"narrative_beat"`                                 // 剧情节拍
	NarrativeTransition   string               `bson:"narrative_transition,omitempty" json:"narrative_transition,omitempty"` // 与上一片段的衔接（第一个片段为空）
	VisualContinuityNotes string               `bson:"visual_continuity_notes" json:"visual_continuity_notes"`
	Location              string               `bson:"location" json:"location"`       // 继承自场景
	Setting               Setting              `bson:"int_ext" json:"int_ext"`         // 继承自场景
	TimeOfDay             string               `bson:"time_of_day" json:"time_of_day"` // 继承自场景
	Characters            []string             `bson:"characters" json:"characters"`
	Dialogue              []DialogueEntry      `bson:"dialogue" json:"dialogue"`
	Actions               []string             `bson:"action" json:"action"`
	FinalVisualState      *VisualStateSnapshot `bson:"final_visual_state,omitempty" json:"final_visual_state,omitempty"`
	Status                SegmentStatus        `bson:"status,omitempty" json:"status,omitempty"`
	ErrorMessage          string               `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt             time.Time            `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt             time.Time            `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// SceneID 返回片段的来源场景ID
func (s *Segment) SceneID() string {
	if len(s.SceneIDs) == 0 {
		return ""
	}
	return s.SceneIDs[0]
}

// Collection 返回集合名称
func (s *Segment) Collection() string {
	return "segments"
}

// EnsureIndexes 创建和维护索引
func (s *Segment) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(s.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "episode_id", Value: 1}, {Key: "segment_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_episode_segment_unique"),
		},
		{
			Keys:    bson.D{{Key: "scene_ids", Value: 1}},
			Options: options.Index().SetName("idx_scene_ids"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// SegmentationResult 分段结果
type SegmentationResult struct {
	EpisodeID     string     `json:"episode_id"`
	Segments      []*Segment `json:"segments"`
	TotalDuration float64    `json:"total_duration"`
	SegmentCount  int        `json:"segment_count"`
}
