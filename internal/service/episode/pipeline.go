package episode

import (
	"context"
	"fmt"
	"math"
	"sort"

	"storyreel/internal/model/episode"
	"storyreel/internal/pkg/episodetools"
	"storyreel/internal/pkg/logger"
)

// SnapshotStore 片段视觉状态的持久化（SegmentRepository 满足该接口）
type SnapshotStore interface {
	AttachSnapshot(ctx context.Context, segmentID string, snapshot *episode.VisualStateSnapshot) error
	MarkFailed(ctx context.Context, segmentID string, message string) error
}

// SnapshotCache 视觉状态快照缓存（cache.RedisCache 满足该接口）
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, episodeID string, segmentNumber int, snapshot episode.VisualStateSnapshot) error
	LoadSnapshot(ctx context.Context, episodeID string, segmentNumber int) (episode.MaybeSnapshot, error)
}

// PipelineOptions 流水线参数
type PipelineOptions struct {
	Style       string // 画面风格，透传给生成服务
	AutoCorrect bool   // 连续性问题自动修正
	// PlanWithExtractor 生成前先对片段简介做一次抽取，得到简介所暗示的视觉计划
	PlanWithExtractor bool
}

// Pipeline 片段生成流水线
// 按片段顺序执行：上下文 -> 连续性校验 -> 生成 -> 视觉状态抽取 -> 持久化
// 上一片段的快照显式地传给下一片段，任何一步失败时下一片段以 NoSnapshot 继续
type Pipeline struct {
	generator episodetools.SegmentGenerator
	extractor episodetools.VisualStateExtractor
	validator *episodetools.ContinuityValidator
	store     SnapshotStore
	cache     SnapshotCache
	opts      PipelineOptions
}

// NewPipeline 创建流水线，store 和 cache 可以为 nil
func NewPipeline(
	generator episodetools.SegmentGenerator,
	extractor episodetools.VisualStateExtractor,
	store SnapshotStore,
	cache SnapshotCache,
	opts PipelineOptions,
) *Pipeline {
	return &Pipeline{
		generator: generator,
		extractor: extractor,
		validator: episodetools.NewContinuityValidator(),
		store:     store,
		cache:     cache,
		opts:      opts,
	}
}

// SegmentOutcome 单个片段的执行结果
type SegmentOutcome struct {
	SegmentNumber    int                          `json:"segment_number"`
	SegmentID        string                       `json:"segment_id,omitempty"`
	Prompt           string                       `json:"prompt,omitempty"`
	Continuity       *episode.ContinuityResult    `json:"continuity"`
	Snapshot         *episode.VisualStateSnapshot `json:"snapshot,omitempty"`
	PlanError        string                       `json:"plan_error,omitempty"`
	GenerationError  string                       `json:"generation_error,omitempty"`
	ExtractionError  string                       `json:"extraction_error,omitempty"`
	PersistenceError string                       `json:"persistence_error,omitempty"`
}

// Failed 生成失败
func (o *SegmentOutcome) Failed() bool {
	return o.GenerationError != ""
}

// PipelineReport 流水线执行报告
type PipelineReport struct {
	EpisodeID        string            `json:"episode_id"`
	Outcomes         []*SegmentOutcome `json:"outcomes"`
	Generated        int               `json:"generated"`
	Failed           int               `json:"failed"`
	WithSnapshot     int               `json:"with_snapshot"`
	ContinuityIssues int               `json:"continuity_issues"`
	BlockingIssues   int               `json:"blocking_issues"`
	AverageScore     float64           `json:"average_score"`
}

// Run 从第一个片段开始执行（没有前序快照）
func (p *Pipeline) Run(ctx context.Context, episodeID string, segments []*episode.Segment) (*PipelineReport, error) {
	return p.RunFrom(ctx, episodeID, segments, episode.NoSnapshot(), nil)
}

// ResumeFrom 从指定序号续跑
// 前序快照优先取缓存中 fromNumber-1 的快照，缓存不可用或未命中时取该片段已持久化的 FinalVisualState
func (p *Pipeline) ResumeFrom(ctx context.Context, episodeID string, segments []*episode.Segment, fromNumber int) (*PipelineReport, error) {
	var predecessor *episode.Segment
	rest := make([]*episode.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg == nil {
			continue
		}
		switch {
		case seg.SegmentNumber >= fromNumber:
			rest = append(rest, seg)
		case seg.SegmentNumber == fromNumber-1:
			predecessor = seg
		}
	}

	preceding := episode.NoSnapshot()
	if p.cache != nil && fromNumber > 1 {
		cached, err := p.cache.LoadSnapshot(ctx, episodeID, fromNumber-1)
		if err != nil {
			lg := logger.ForEpisode(episodeID)
			lg.Warn().Err(err).Int("segment_number", fromNumber-1).Msg("读取缓存快照失败，改用已持久化的快照")
		} else {
			preceding = cached
		}
	}
	if !preceding.Present() && predecessor != nil {
		preceding = episode.SnapshotFromPtr(predecessor.FinalVisualState)
	}
	return p.RunFrom(ctx, episodeID, rest, preceding, predecessor)
}

// RunFrom 以给定的前序快照依次执行片段
//
// Args:
//   - segments: 片段列表，执行前按 SegmentNumber 排序（不修改调用方的切片顺序）
//   - initial: 第一个片段的前序快照
//   - initialPrev: 第一个片段的上一片段，用于判断是否延续同一场景；从头执行时为 nil
//
// Returns:
//   - *PipelineReport: 每个片段的结果与汇总；单个片段失败不会中断流水线
//   - error: 参数非法或 ctx 被取消（此时返回已完成部分的报告）
func (p *Pipeline) RunFrom(ctx context.Context, episodeID string, segments []*episode.Segment, initial episode.MaybeSnapshot, initialPrev *episode.Segment) (*PipelineReport, error) {
	if p.generator == nil || p.extractor == nil {
		return nil, fmt.Errorf("pipeline requires a generator and an extractor")
	}
	ordered := make([]*episode.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg == nil {
			return nil, fmt.Errorf("pipeline: nil segment")
		}
		ordered = append(ordered, seg)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SegmentNumber < ordered[j].SegmentNumber
	})

	lg := logger.ForEpisode(episodeID)
	report := &PipelineReport{
		EpisodeID: episodeID,
		Outcomes:  make([]*SegmentOutcome, 0, len(ordered)),
	}

	preceding := initial
	prev := initialPrev
	for _, seg := range ordered {
		if err := ctx.Err(); err != nil {
			report.summarize()
			return report, err
		}
		outcome, next := p.runSegment(ctx, episodeID, seg, prev, preceding)
		report.Outcomes = append(report.Outcomes, outcome)
		preceding = next
		prev = seg

		ev := lg.Info()
		if outcome.Failed() || outcome.ExtractionError != "" {
			ev = lg.Warn()
		}
		ev.Int("segment_number", seg.SegmentNumber).
			Bool("generated", !outcome.Failed()).
			Bool("has_snapshot", next.Present()).
			Float64("continuity_score", outcome.Continuity.OverallScore).
			Int("issues", len(outcome.Continuity.Issues)).
			Msg("片段处理完成")
	}

	report.summarize()
	return report, nil
}

// runSegment 处理单个片段，返回结果和下一个片段的前序快照
func (p *Pipeline) runSegment(ctx context.Context, episodeID string, seg, prev *episode.Segment, preceding episode.MaybeSnapshot) (*SegmentOutcome, episode.MaybeSnapshot) {
	outcome := &SegmentOutcome{
		SegmentNumber: seg.SegmentNumber,
		SegmentID:     seg.ID,
	}

	segCtx := episodetools.ContextFromSegment(seg, prev)
	if p.opts.PlanWithExtractor {
		planned, err := p.extractor.Extract(ctx, segCtx.Brief, seg.Characters)
		if err != nil {
			outcome.PlanError = err.Error()
		} else if s, ok := planned.Get(); ok {
			segCtx.Planned = s
		}
	}

	outcome.Continuity = p.validator.Validate(preceding, segCtx, &episodetools.ValidateOptions{AutoCorrect: p.opts.AutoCorrect})

	prompt, err := p.generator.Generate(ctx, &episodetools.GenerationRequest{
		Segment:   seg,
		Context:   segCtx,
		Style:     p.opts.Style,
		Preceding: preceding,
		Corrected: outcome.Continuity.CorrectedPlan,
	})
	if err != nil {
		outcome.GenerationError = err.Error()
		if seg.ID != "" && p.store != nil {
			if perr := p.store.MarkFailed(ctx, seg.ID, outcome.GenerationError); perr != nil {
				outcome.PersistenceError = perr.Error()
			}
		}
		return outcome, episode.NoSnapshot()
	}
	outcome.Prompt = prompt

	extracted, err := p.extractor.Extract(ctx, prompt, seg.Characters)
	if err != nil {
		outcome.ExtractionError = err.Error()
		extracted = episode.NoSnapshot()
	}
	seg.FinalVisualState = extracted.Ptr()
	seg.Status = episode.SegmentStatusGenerated
	outcome.Snapshot = extracted.Ptr()

	if perr := p.persist(ctx, episodeID, seg, extracted); perr != nil {
		outcome.PersistenceError = perr.Error()
	}
	return outcome, extracted
}

func (p *Pipeline) persist(ctx context.Context, episodeID string, seg *episode.Segment, snapshot episode.MaybeSnapshot) error {
	if seg.ID != "" && p.store != nil {
		if err := p.store.AttachSnapshot(ctx, seg.ID, snapshot.Ptr()); err != nil {
			return fmt.Errorf("attach snapshot: %w", err)
		}
	}
	if s, ok := snapshot.Get(); ok && p.cache != nil {
		if err := p.cache.SaveSnapshot(ctx, episodeID, seg.SegmentNumber, s); err != nil {
			return fmt.Errorf("cache snapshot: %w", err)
		}
	}
	return nil
}

func (r *PipelineReport) summarize() {
	r.Generated, r.Failed, r.WithSnapshot = 0, 0, 0
	r.ContinuityIssues, r.BlockingIssues = 0, 0
	total := 0.0
	for _, o := range r.Outcomes {
		if o.Failed() {
			r.Failed++
		} else {
			r.Generated++
		}
		if o.Snapshot != nil {
			r.WithSnapshot++
		}
		for _, issue := range o.Continuity.Issues {
			r.ContinuityIssues++
			if issue.Severity == episode.SeverityBlocking {
				r.BlockingIssues++
			}
		}
		total += o.Continuity.OverallScore
	}
	r.AverageScore = 0
	if len(r.Outcomes) > 0 {
		r.AverageScore = math.Round(total/float64(len(r.Outcomes))*100) / 100
	}
}
