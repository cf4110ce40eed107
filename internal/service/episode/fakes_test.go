package episode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storyreel/internal/model/episode"
	"storyreel/internal/pkg/episodetools"
	episoderepo "storyreel/internal/repository/episode"
)

type fakeEpisodeRepo struct {
	episodes map[string]*episode.Episode
	saveErr  error
}

func (r *fakeEpisodeRepo) Create(_ context.Context, ep *episode.Episode) error {
	r.episodes[ep.ID] = ep
	return nil
}

func (r *fakeEpisodeRepo) FindByID(_ context.Context, id string) (*episode.Episode, error) {
	ep, ok := r.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, episoderepo.ErrNotFound)
	}
	return ep, nil
}

func (r *fakeEpisodeRepo) UpdateScreenplay(_ context.Context, id string, sp *episode.Screenplay) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	ep, ok := r.episodes[id]
	if !ok {
		ep = &episode.Episode{ID: id}
		r.episodes[id] = ep
	}
	ep.Screenplay = sp
	return nil
}

type fakeSegmentRepo struct {
	mu        sync.Mutex
	segments  map[string][]*episode.Segment
	attached  map[string]*episode.VisualStateSnapshot
	failed    map[string]string
	replaceEr error
	attachErr error
}

func newFakeSegmentRepo() *fakeSegmentRepo {
	return &fakeSegmentRepo{
		segments: make(map[string][]*episode.Segment),
		attached: make(map[string]*episode.VisualStateSnapshot),
		failed:   make(map[string]string),
	}
}

func (r *fakeSegmentRepo) ReplaceForEpisode(_ context.Context, episodeID string, segments []*episode.Segment) error {
	if r.replaceEr != nil {
		return r.replaceEr
	}
	for _, seg := range segments {
		seg.ID = fmt.Sprintf("%s-%d", episodeID, seg.SegmentNumber)
		seg.EpisodeID = episodeID
	}
	r.segments[episodeID] = segments
	return nil
}

func (r *fakeSegmentRepo) FindByEpisodeID(_ context.Context, episodeID string) ([]*episode.Segment, error) {
	return r.segments[episodeID], nil
}

func (r *fakeSegmentRepo) AttachSnapshot(_ context.Context, segmentID string, snapshot *episode.VisualStateSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attachErr != nil {
		return r.attachErr
	}
	r.attached[segmentID] = snapshot
	return nil
}

func (r *fakeSegmentRepo) MarkFailed(_ context.Context, segmentID string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[segmentID] = message
	return nil
}

// fakeGenerator 按片段序号返回提示词，failOn 中的序号返回错误
type fakeGenerator struct {
	failOn   map[int]bool
	requests []*episodetools.GenerationRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req *episodetools.GenerationRequest) (string, error) {
	g.requests = append(g.requests, req)
	if g.failOn[req.Segment.SegmentNumber] {
		return "", errors.New("generation service unavailable")
	}
	return fmt.Sprintf("prompt for segment %d", req.Segment.SegmentNumber), nil
}

// fakeExtractor 以文本为 key 返回预设快照
type fakeExtractor struct {
	snapshots map[string]episode.VisualStateSnapshot
	failOn    map[string]bool
	texts     []string
}

func (e *fakeExtractor) Extract(_ context.Context, text string, _ []string) (episode.MaybeSnapshot, error) {
	e.texts = append(e.texts, text)
	if e.failOn[text] {
		return episode.NoSnapshot(), errors.New("extraction failed")
	}
	if s, ok := e.snapshots[text]; ok {
		return episode.SomeSnapshot(s), nil
	}
	return episode.NoSnapshot(), nil
}

type fakeCache struct {
	saved map[string]episode.VisualStateSnapshot
}

func newFakeCache() *fakeCache {
	return &fakeCache{saved: make(map[string]episode.VisualStateSnapshot)}
}

func (c *fakeCache) key(episodeID string, n int) string {
	return fmt.Sprintf("%s:%d", episodeID, n)
}

func (c *fakeCache) SaveSnapshot(_ context.Context, episodeID string, n int, s episode.VisualStateSnapshot) error {
	c.saved[c.key(episodeID, n)] = s
	return nil
}

func (c *fakeCache) LoadSnapshot(_ context.Context, episodeID string, n int) (episode.MaybeSnapshot, error) {
	if s, ok := c.saved[c.key(episodeID, n)]; ok {
		return episode.SomeSnapshot(s), nil
	}
	return episode.NoSnapshot(), nil
}
