package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/pkg/cache"
	"storyreel/internal/pkg/episodetools"
	"storyreel/internal/pkg/mongodb"
)

// addSegmentFlags 分段参数，未指定时使用配置文件中的 segmentation 段
func addSegmentFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Float64("target", 0, "target segment duration in seconds")
	flags.Float64("min", 0, "minimum segment duration in seconds")
	flags.Float64("max", 0, "maximum segment duration in seconds")
}

func segmentOptions(cmd *cobra.Command, c *config.Config) *episodetools.SegmentOptions {
	opts := &episodetools.SegmentOptions{
		TargetDuration: c.Segmentation.TargetDuration,
		MinDuration:    c.Segmentation.MinDuration,
		MaxDuration:    c.Segmentation.MaxDuration,
	}
	flags := cmd.Flags()
	if flags.Changed("target") {
		opts.TargetDuration, _ = flags.GetFloat64("target")
	}
	if flags.Changed("min") {
		opts.MinDuration, _ = flags.GetFloat64("min")
	}
	if flags.Changed("max") {
		opts.MaxDuration, _ = flags.GetFloat64("max")
	}
	return opts
}

// newSegmenter 按配置选择台词计词方式
func newSegmenter(c *config.Config) *episodetools.Segmenter {
	estimator := episodetools.NewDurationEstimator()
	if c.Segmentation.WordCounter == "gse" {
		estimator.Counter = episodetools.NewGseWordCounter()
	}
	return episodetools.NewSegmenter(estimator)
}

func loadConfig() (*config.Config, error) {
	c := GetConfig()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// connectMongo 连接 MongoDB 并确保索引
func connectMongo(ctx context.Context, c *config.Config) (*mongodb.Client, error) {
	client, err := mongodb.New(ctx, &c.Mongo)
	if err != nil {
		return nil, err
	}
	if err := mongodb.EnsureIndexes(ctx, client.Database()); err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.Debug().Str("database", c.Mongo.Database).Msg("MongoDB 已连接")
	return client, nil
}

// connectRedis 连接 Redis，失败时返回 nil 并继续（快照缓存是可选的）
func connectRedis(c *config.Config) *cache.RedisCache {
	if c.Redis.Addr == "" {
		return nil
	}
	rc, err := cache.NewRedisCache(&c.Redis)
	if err != nil {
		log.Warn().Err(err).Str("addr", c.Redis.Addr).Msg("Redis 不可用，快照不做缓存")
		return nil
	}
	return rc
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputWriter 根据 --output 打开输出，空值为 stdout
func outputWriter(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
