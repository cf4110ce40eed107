package episode

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Episode 剧集实体
// 说明：结构化剧本以内嵌文档形式保存在剧集上，Screenplay 为 nil 表示剧本尚未生成
type Episode struct {
	ID         string      `bson:"id" json:"id" yaml:"id"`                                                          // 剧集ID（UUID）
	SeriesID   string      `bson:"series_id" json:"series_id" yaml:"series_id"`                                     // 关联的系列ID
	UserID     string      `bson:"user_id,omitempty" json:"user_id,omitempty" yaml:"user_id,omitempty"`             // 用户ID（冗余字段，方便查询）
	Number     int         `bson:"number" json:"number" yaml:"number"`                                              // 集数（从1开始）
	Title      string      `bson:"title" json:"title" yaml:"title"`                                                 // 剧集标题
	Screenplay *Screenplay `bson:"structured_screenplay" json:"structured_screenplay" yaml:"structured_screenplay"` // 结构化剧本
	CreatedAt  time.Time   `bson:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt  time.Time   `bson:"updated_at" json:"updated_at" yaml:"-"`
	DeletedAt  *time.Time  `bson:"deleted_at,omitempty" json:"deleted_at,omitempty" yaml:"-"`
}

// Screenplay 结构化剧本
type Screenplay struct {
	Title  string  `bson:"title,omitempty" json:"title,omitempty" yaml:"title,omitempty"`
	Scenes []Scene `bson:"scenes" json:"scenes" yaml:"scenes"` // 场景列表（按剧本顺序）
}

// Setting 内景/外景标记
type Setting string

const (
	SettingInterior         Setting = "INT"
	SettingExterior         Setting = "EXT"
	SettingInteriorExterior Setting = "INT/EXT"
)

// Scene 剧本场景（分段过程中只读）
type Scene struct {
	ID                string          `bson:"id" json:"id" yaml:"id"`                                                                               // 场景ID
	Number            int             `bson:"scene_number" json:"scene_number" yaml:"scene_number"`                                                 // 场景序号
	Location          string          `bson:"location" json:"location" yaml:"location"`                                                             // 地点
	Setting           Setting         `bson:"int_ext" json:"int_ext" yaml:"int_ext"`                                                                // 内景/外景
	TimeOfDay         string          `bson:"time_of_day" json:"time_of_day" yaml:"time_of_day"`                                                    // 时间段，如 DAY / NIGHT
	Description       string          `bson:"description" json:"description" yaml:"description"`                                                    // 场景描述
	Characters        []string        `bson:"characters" json:"characters" yaml:"characters"`                                                       // 出场角色
	Dialogue          []DialogueEntry `bson:"dialogue" json:"dialogue" yaml:"dialogue"`                                                             // 对白（按顺序）
	Actions           []string        `bson:"action" json:"action" yaml:"action"`                                                                   // 动作描写（按顺序）
	EstimatedDuration float64         `bson:"estimated_duration,omitempty" json:"estimated_duration,omitempty" yaml:"estimated_duration,omitempty"` // 作者预估时长（秒，0 表示未提供）
}

// DialogueEntry 一轮对白：一个角色 + 一行或多行台词
type DialogueEntry struct {
	Character string   `bson:"character" json:"character" yaml:"character"`
	Lines     []string `bson:"lines" json:"lines" yaml:"lines"`
}

// Collection 返回集合名称
func (e *Episode) Collection() string {
	return "episodes"
}

// EnsureIndexes 创建和维护索引
func (e *Episode) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(e.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "series_id", Value: 1}, {Key: "number", Value: 1}},
			Options: options.Index().SetName("idx_series_number"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
