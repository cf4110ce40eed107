package episode

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storyreel/internal/model/episode"
	"storyreel/internal/pkg/id"
)

// EpisodeRepository 剧集仓库接口（供 service 层依赖）
type EpisodeRepository interface {
	Create(ctx context.Context, ep *episode.Episode) error
	FindByID(ctx context.Context, id string) (*episode.Episode, error)
	UpdateScreenplay(ctx context.Context, episodeID string, screenplay *episode.Screenplay) error
}

// EpisodeRepo 剧集仓库
type EpisodeRepo struct {
	coll *mongo.Collection
}

// NewEpisodeRepo 创建剧集仓库
func NewEpisodeRepo(db *mongo.Database) *EpisodeRepo {
	var e episode.Episode
	return &EpisodeRepo{coll: db.Collection(e.Collection())}
}

// Create 创建剧集，ID 为空时自动分配
func (r *EpisodeRepo) Create(ctx context.Context, ep *episode.Episode) error {
	if ep.ID == "" {
		ep.ID = id.New()
	}
	now := time.Now()
	ep.CreatedAt = now
	ep.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, ep)
	return err
}

// FindByID 根据ID查询剧集
func (r *EpisodeRepo) FindByID(ctx context.Context, episodeID string) (*episode.Episode, error) {
	var ep episode.Episode
	err := r.coll.FindOne(ctx, bson.M{"id": episodeID, "deleted_at": nil}).Decode(&ep)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("episode %s: %w", episodeID, ErrNotFound)
		}
		return nil, err
	}
	return &ep, nil
}

// UpdateScreenplay 覆盖剧集的结构化剧本（不存在时插入）
func (r *EpisodeRepo) UpdateScreenplay(ctx context.Context, episodeID string, screenplay *episode.Screenplay) error {
	now := time.Now()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": episodeID},
		bson.M{
			"$set": bson.M{
				"structured_screenplay": screenplay,
				"updated_at":            now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
