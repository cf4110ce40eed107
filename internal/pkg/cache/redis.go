package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storyreel/internal/config"
	"storyreel/internal/model/episode"
)

// RedisCache Redis 缓存封装
type RedisCache struct {
	client      *redis.Client
	snapshotTTL time.Duration
}

// NewRedisCache 创建 Redis 缓存客户端
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	ttl := cfg.SnapshotTTL
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisCache{client: client, snapshotTTL: ttl}, nil
}

// NewRedisCacheWithClient 使用已有客户端创建缓存
func NewRedisCacheWithClient(client *redis.Client, snapshotTTL time.Duration) *RedisCache {
	if snapshotTTL <= 0 {
		snapshotTTL = DefaultSnapshotTTL
	}
	return &RedisCache{client: client, snapshotTTL: snapshotTTL}
}

// Set 设置缓存
func (c *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get 获取缓存，未命中时返回 ErrCacheMiss
func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete 删除缓存
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// 常用 key 模式
const (
	SnapshotCacheKeyPrefix = "snapshot:"
	DefaultSnapshotTTL     = 24 * time.Hour
)

// SnapshotCacheKey 生成视觉状态快照缓存 key
func SnapshotCacheKey(episodeID string, segmentNumber int) string {
	return fmt.Sprintf("%s%s:%d", SnapshotCacheKeyPrefix, episodeID, segmentNumber)
}

// SaveSnapshot 缓存片段的最终视觉状态
func (c *RedisCache) SaveSnapshot(ctx context.Context, episodeID string, segmentNumber int, snapshot episode.VisualStateSnapshot) error {
	return c.Set(ctx, SnapshotCacheKey(episodeID, segmentNumber), snapshot, c.snapshotTTL)
}

// LoadSnapshot 读取缓存的视觉状态，未命中时返回 NoSnapshot 且 err 为 nil
func (c *RedisCache) LoadSnapshot(ctx context.Context, episodeID string, segmentNumber int) (episode.MaybeSnapshot, error) {
	var snapshot episode.VisualStateSnapshot
	err := c.Get(ctx, SnapshotCacheKey(episodeID, segmentNumber), &snapshot)
	if errors.Is(err, ErrCacheMiss) {
		return episode.NoSnapshot(), nil
	}
	if err != nil {
		return episode.NoSnapshot(), err
	}
	return episode.SomeSnapshot(snapshot), nil
}
