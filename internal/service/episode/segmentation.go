package episode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"storyreel/internal/model/episode"
	"storyreel/internal/pkg/episodetools"
	episoderepo "storyreel/internal/repository/episode"
)

// SegmentationService 分段服务接口
type SegmentationService interface {
	// SegmentEpisode 从剧本库加载剧集，分段并写回片段
	SegmentEpisode(ctx context.Context, episodeID string, opts *episodetools.SegmentOptions) (*episode.SegmentationResult, error)

	// ImportAndSegment 保存外部导入的剧集剧本，分段并写回片段
	ImportAndSegment(ctx context.Context, ep *episode.Episode, opts *episodetools.SegmentOptions) (*episode.SegmentationResult, error)

	// GetSegments 获取剧集已保存的片段（按序号排序）
	GetSegments(ctx context.Context, episodeID string) ([]*episode.Segment, error)
}

// segmentationService 分段服务实现
type segmentationService struct {
	episodeRepo episoderepo.EpisodeRepository
	segmentRepo episoderepo.SegmentRepository
	segmenter   *episodetools.Segmenter
}

// NewSegmentationService 创建分段服务，segmenter 为 nil 时使用默认估算器
func NewSegmentationService(
	episodeRepo episoderepo.EpisodeRepository,
	segmentRepo episoderepo.SegmentRepository,
	segmenter *episodetools.Segmenter,
) SegmentationService {
	if segmenter == nil {
		segmenter = episodetools.NewSegmenter(nil)
	}
	return &segmentationService{
		episodeRepo: episodeRepo,
		segmentRepo: segmentRepo,
		segmenter:   segmenter,
	}
}

func (s *segmentationService) SegmentEpisode(ctx context.Context, episodeID string, opts *episodetools.SegmentOptions) (*episode.SegmentationResult, error) {
	ep, err := s.episodeRepo.FindByID(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("load episode: %w", err)
	}
	return s.segmentAndSave(ctx, ep, opts)
}

func (s *segmentationService) ImportAndSegment(ctx context.Context, ep *episode.Episode, opts *episodetools.SegmentOptions) (*episode.SegmentationResult, error) {
	if ep == nil || ep.ID == "" {
		return nil, fmt.Errorf("import episode: id is required")
	}
	// 先分段再落库，输入非法时不写入任何数据
	result, err := s.segmenter.Segment(ep, opts)
	if err != nil {
		return nil, err
	}
	if err := s.episodeRepo.UpdateScreenplay(ctx, ep.ID, ep.Screenplay); err != nil {
		return nil, fmt.Errorf("save screenplay: %w", err)
	}
	if err := s.segmentRepo.ReplaceForEpisode(ctx, ep.ID, result.Segments); err != nil {
		return nil, fmt.Errorf("save segments: %w", err)
	}
	return result, nil
}

func (s *segmentationService) segmentAndSave(ctx context.Context, ep *episode.Episode, opts *episodetools.SegmentOptions) (*episode.SegmentationResult, error) {
	result, err := s.segmenter.Segment(ep, opts)
	if err != nil {
		return nil, err
	}
	if err := s.segmentRepo.ReplaceForEpisode(ctx, ep.ID, result.Segments); err != nil {
		return nil, fmt.Errorf("save segments: %w", err)
	}

	log.Info().
		Str("episode_id", ep.ID).
		Int("segment_count", result.SegmentCount).
		Float64("total_duration", result.TotalDuration).
		Msg("分段结果已保存")
	return result, nil
}

func (s *segmentationService) GetSegments(ctx context.Context, episodeID string) ([]*episode.Segment, error) {
	segments, err := s.segmentRepo.FindByEpisodeID(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	if segments == nil {
		segments = []*episode.Segment{}
	}
	return segments, nil
}
