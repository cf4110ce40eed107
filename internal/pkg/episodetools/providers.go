package episodetools

import (
	"context"

	"storyreel/internal/model/episode"
)

// LLMProvider 定义了调用大模型的接口
// 具体的「如何调用大模型」由调用方通过实现此接口注入，方便单测和替换实现
type LLMProvider interface {
	// Generate 根据提示词生成文本
	//
	// Args:
	//   - ctx: 上下文
	//   - prompt: 提示词
	//
	// Returns:
	//   - text: 生成的文本
	//   - err: 错误信息
	Generate(ctx context.Context, prompt string) (string, error)
}

// VisualStateExtractor 视觉状态抽取接口
// 把生成的叙述/提示词文本转换为结构化的视觉状态快照；信息不足时返回部分快照
type VisualStateExtractor interface {
	// Extract 抽取视觉状态
	//
	// Args:
	//   - ctx: 上下文
	//   - text: 片段最终的叙述或提示词文本
	//   - characterIDs: 已知角色ID列表，快照中的角色状态以此为键
	//
	// Returns:
	//   - episode.MaybeSnapshot: 抽取结果（文本为空时为 NoSnapshot）
	//   - error: 外部调用或解析失败
	Extract(ctx context.Context, text string, characterIDs []string) (episode.MaybeSnapshot, error)
}

// SegmentGenerator 片段生成接口（外部文本/视觉生成服务）
type SegmentGenerator interface {
	// Generate 根据片段简介、风格和前序视觉状态生成最终的视频提示词
	Generate(ctx context.Context, req *GenerationRequest) (string, error)
}

// GenerationRequest 片段生成请求
type GenerationRequest struct {
	Segment   *episode.Segment
	Context   SegmentContext
	Style     string
	Preceding episode.MaybeSnapshot
	// Corrected 连续性校验给出的修正计划（可为空）
	Corrected *episode.VisualStateSnapshot
}
