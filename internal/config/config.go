package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	AI           AIConfig           `mapstructure:"ai"`
	Log          LogConfig          `mapstructure:"log"`
	Mongo        MongoConfig        `mapstructure:"mongo"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Continuity   ContinuityConfig   `mapstructure:"continuity"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
}

// AIConfig AI 服务配置
type AIConfig struct {
	// Driver 调用方式：eino（默认，经 eino ChatModel）/ arkruntime（直接使用 volcengine SDK）
	Driver   string          `mapstructure:"driver"`
	Provider string          `mapstructure:"provider"` // eino 下的 provider：openai / azure / ark
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"` // 视觉状态快照缓存时长
}

// SegmentationConfig 分段参数（秒），min/max 为 0 时由 target 推导
type SegmentationConfig struct {
	TargetDuration float64 `mapstructure:"target_duration"`
	MinDuration    float64 `mapstructure:"min_duration"`
	MaxDuration    float64 `mapstructure:"max_duration"`
	// WordCounter 台词计词方式：fields（按空白）/ gse（中文分词）
	WordCounter string `mapstructure:"word_counter"`
}

// ContinuityConfig 连续性校验配置
type ContinuityConfig struct {
	AutoCorrect bool `mapstructure:"auto_correct"`
	// PlanWithExtractor 用抽取器从下一片段简介中得到计划视觉状态
	PlanWithExtractor bool `mapstructure:"plan_with_extractor"`
}

// PipelineConfig 生成流水线配置
type PipelineConfig struct {
	Style            string `mapstructure:"style"`             // 画面风格描述
	BatchConcurrency int    `mapstructure:"batch_concurrency"` // batch 命令的剧集并发数
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Log.Format] {
		return errors.New("invalid log format, must be json/console")
	}

	s := c.Segmentation
	if s.TargetDuration < 0 || s.MinDuration < 0 || s.MaxDuration < 0 {
		return errors.New("segmentation durations must not be negative")
	}
	if s.MinDuration > 0 && s.MaxDuration > 0 && s.MinDuration > s.MaxDuration {
		return fmt.Errorf("segmentation min_duration %.2f exceeds max_duration %.2f", s.MinDuration, s.MaxDuration)
	}
	validCounters := map[string]bool{"": true, "fields": true, "gse": true}
	if !validCounters[s.WordCounter] {
		return errors.New("invalid segmentation word_counter, must be fields/gse")
	}

	validDrivers := map[string]bool{"": true, "eino": true, "arkruntime": true}
	if !validDrivers[c.AI.Driver] {
		return errors.New("invalid ai driver, must be eino/arkruntime")
	}

	if c.Pipeline.BatchConcurrency < 0 {
		return errors.New("pipeline batch_concurrency must not be negative")
	}
	return nil
}
