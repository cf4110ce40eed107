package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"storyreel/internal/model/episode"
)

// EnsureIndexes 创建所有模型的索引，在启动时调用
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	return EnsureAllIndexes(ctx, db,
		&episode.Episode{},
		&episode.Segment{},
	)
}
