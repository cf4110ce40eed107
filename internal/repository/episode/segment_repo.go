package episode

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storyreel/internal/model/episode"
	"storyreel/internal/pkg/id"
)

// SegmentRepository 片段仓库接口（供 service 层依赖）
type SegmentRepository interface {
	// ReplaceForEpisode 删除剧集已有片段并写入新的分段结果
	ReplaceForEpisode(ctx context.Context, episodeID string, segments []*episode.Segment) error
	FindByEpisodeID(ctx context.Context, episodeID string) ([]*episode.Segment, error)
	// AttachSnapshot 写入片段生成后的最终视觉状态
	AttachSnapshot(ctx context.Context, segmentID string, snapshot *episode.VisualStateSnapshot) error
	MarkFailed(ctx context.Context, segmentID string, message string) error
}

// SegmentRepo 片段仓库
type SegmentRepo struct {
	coll *mongo.Collection
}

// NewSegmentRepo 创建片段仓库
func NewSegmentRepo(db *mongo.Database) *SegmentRepo {
	var s episode.Segment
	return &SegmentRepo{coll: db.Collection(s.Collection())}
}

// ReplaceForEpisode 重新分段时整体替换
// 片段ID在这里分配，由剧集ID和片段序号派生，重新分段后保持稳定
func (r *SegmentRepo) ReplaceForEpisode(ctx context.Context, episodeID string, segments []*episode.Segment) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"episode_id": episodeID}); err != nil {
		return fmt.Errorf("delete old segments: %w", err)
	}
	if len(segments) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]any, 0, len(segments))
	for _, seg := range segments {
		if seg.ID == "" {
			seg.ID = id.Derive(episodeID, strconv.Itoa(seg.SegmentNumber))
		}
		seg.EpisodeID = episodeID
		if seg.Status == "" {
			seg.Status = episode.SegmentStatusPlanned
		}
		seg.CreatedAt = now
		seg.UpdatedAt = now
		docs = append(docs, seg)
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert segments: %w", err)
	}
	return nil
}

// FindByEpisodeID 查询剧集的片段（按 segment_number 排序）
func (r *SegmentRepo) FindByEpisodeID(ctx context.Context, episodeID string) ([]*episode.Segment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "segment_number", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"episode_id": episodeID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var segments []*episode.Segment
	if err := cur.All(ctx, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// AttachSnapshot 写入最终视觉状态，并把片段标记为已生成
func (r *SegmentRepo) AttachSnapshot(ctx context.Context, segmentID string, snapshot *episode.VisualStateSnapshot) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": segmentID},
		bson.M{
			"$set": bson.M{
				"final_visual_state": snapshot,
				"status":             episode.SegmentStatusGenerated,
				"updated_at":         time.Now(),
			},
			"$unset": bson.M{"error_message": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("segment %s: %w", segmentID, ErrNotFound)
	}
	return nil
}

// MarkFailed 标记片段生成失败
func (r *SegmentRepo) MarkFailed(ctx context.Context, segmentID string, message string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": segmentID},
		bson.M{"$set": bson.M{
			"status":        episode.SegmentStatusFailed,
			"error_message": message,
			"updated_at":    time.Now(),
		}},
	)
	return err
}
