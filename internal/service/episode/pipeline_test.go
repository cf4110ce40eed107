package episode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"storyreel/internal/model/episode"
	"storyreel/internal/pkg/episodetools"
)

func pipelineSegments() []*episode.Segment {
	result, err := episodetools.SegmentEpisode(&episode.Episode{
		ID: "ep-1",
		Screenplay: &episode.Screenplay{Scenes: []episode.Scene{
			{ID: "s1", Location: "OFFICE", TimeOfDay: "NIGHT", Characters: []string{"MAYA"}, Actions: []string{"Maya enters."}},
			{ID: "s2", Location: "OFFICE", TimeOfDay: "NIGHT", Characters: []string{"MAYA"}, Actions: []string{"Maya sits."}},
			{ID: "s3", Location: "STREET", TimeOfDay: "NIGHT", Characters: []string{"MAYA"}, Actions: []string{"Maya runs."}},
		}},
	}, nil)
	if err != nil {
		panic(err)
	}
	for _, seg := range result.Segments {
		seg.ID = "seg-" + string(rune('0'+seg.SegmentNumber))
	}
	return result.Segments
}

func TestPipeline(t *testing.T) {
	Convey("Pipeline", t, func() {
		ctx := context.Background()
		segments := pipelineSegments()
		red := episode.VisualStateSnapshot{
			Lighting:   "neon glow",
			Characters: map[string]episode.CharacterVisualState{"MAYA": {Clothing: "red coat"}},
		}
		generator := &fakeGenerator{failOn: map[int]bool{}}
		extractor := &fakeExtractor{
			snapshots: map[string]episode.VisualStateSnapshot{
				"prompt for segment 1": red,
				"prompt for segment 2": red,
				"prompt for segment 3": {Lighting: "street lamps"},
			},
			failOn: map[string]bool{},
		}
		store := newFakeSegmentRepo()
		cache := newFakeCache()

		Convey("快照按顺序传给下一片段", func() {
			p := NewPipeline(generator, extractor, store, cache, PipelineOptions{Style: "noir"})
			report, err := p.Run(ctx, "ep-1", segments)
			So(err, ShouldBeNil)
			So(report.Outcomes, ShouldHaveLength, 3)
			So(report.Generated, ShouldEqual, 3)
			So(report.Failed, ShouldEqual, 0)
			So(report.WithSnapshot, ShouldEqual, 3)

			So(generator.requests[0].Preceding.Present(), ShouldBeFalse)
			prev, ok := generator.requests[1].Preceding.Get()
			So(ok, ShouldBeTrue)
			So(prev.Lighting, ShouldEqual, "neon glow")
			So(generator.requests[1].Style, ShouldEqual, "noir")

			So(report.Outcomes[0].Continuity.IsValid, ShouldBeTrue)
			So(report.Outcomes[0].Continuity.OverallScore, ShouldEqual, 100.0)

			So(store.attached["seg-1"].Lighting, ShouldEqual, "neon glow")
			So(segments[0].FinalVisualState, ShouldNotBeNil)
			So(segments[0].Status, ShouldEqual, episode.SegmentStatusGenerated)
			So(cache.saved["ep-1:3"].Lighting, ShouldEqual, "street lamps")
		})

		Convey("生成失败不中断，下一片段以 NoSnapshot 继续", func() {
			generator.failOn[2] = true
			p := NewPipeline(generator, extractor, store, cache, PipelineOptions{})
			report, err := p.Run(ctx, "ep-1", segments)
			So(err, ShouldBeNil)
			So(report.Failed, ShouldEqual, 1)
			So(report.Generated, ShouldEqual, 2)
			So(report.Outcomes[1].GenerationError, ShouldContainSubstring, "unavailable")
			So(store.failed, ShouldContainKey, "seg-2")
			So(generator.requests[2].Preceding.Present(), ShouldBeFalse)
			So(report.Outcomes[2].Snapshot, ShouldNotBeNil)
		})

		Convey("抽取失败时记录错误，下一片段没有前序快照", func() {
			extractor.failOn["prompt for segment 1"] = true
			p := NewPipeline(generator, extractor, store, nil, PipelineOptions{})
			report, err := p.Run(ctx, "ep-1", segments)
			So(err, ShouldBeNil)
			So(report.Outcomes[0].ExtractionError, ShouldNotBeEmpty)
			So(report.Outcomes[0].Snapshot, ShouldBeNil)
			So(generator.requests[1].Preceding.Present(), ShouldBeFalse)
			So(store.attached, ShouldContainKey, "seg-1")
			So(store.attached["seg-1"], ShouldBeNil)
			So(report.WithSnapshot, ShouldEqual, 2)
		})

		Convey("持久化失败只记录在结果中", func() {
			store.attachErr = errors.New("write conflict")
			p := NewPipeline(generator, extractor, store, cache, PipelineOptions{})
			report, err := p.Run(ctx, "ep-1", segments)
			So(err, ShouldBeNil)
			So(report.Outcomes[0].PersistenceError, ShouldContainSubstring, "write conflict")
			So(report.Generated, ShouldEqual, 3)
			prev, ok := generator.requests[1].Preceding.Get()
			So(ok, ShouldBeTrue)
			So(prev.Lighting, ShouldEqual, "neon glow")
		})

		Convey("规划抽取与自动修正", func() {
			brief := episodetools.ContextFromSegment(segments[1], segments[0]).Brief
			extractor.snapshots[brief] = episode.VisualStateSnapshot{
				Characters: map[string]episode.CharacterVisualState{"MAYA": {Clothing: "blue dress"}},
			}
			p := NewPipeline(generator, extractor, store, cache, PipelineOptions{AutoCorrect: true, PlanWithExtractor: true})
			report, err := p.Run(ctx, "ep-1", segments)
			So(err, ShouldBeNil)

			second := report.Outcomes[1].Continuity
			So(second.Issues, ShouldHaveLength, 1)
			So(second.Issues[0].Category, ShouldEqual, episode.CategoryCharacterClothing)
			So(second.Issues[0].Correction, ShouldEqual, "red coat")
			So(second.CorrectedPlan, ShouldNotBeNil)
			So(generator.requests[1].Corrected.Characters["MAYA"].Clothing, ShouldEqual, "red coat")
			So(report.ContinuityIssues, ShouldEqual, 1)
			So(report.AverageScore, ShouldEqual, 100.0)
		})

		Convey("乱序输入按序号执行", func() {
			shuffled := []*episode.Segment{segments[2], segments[0], segments[1]}
			p := NewPipeline(generator, extractor, nil, nil, PipelineOptions{})
			report, err := p.Run(ctx, "ep-1", shuffled)
			So(err, ShouldBeNil)
			So(report.Outcomes[0].SegmentNumber, ShouldEqual, 1)
			So(report.Outcomes[2].SegmentNumber, ShouldEqual, 3)
			So(shuffled[0].SegmentNumber, ShouldEqual, 3)
		})

		Convey("从缓存快照续跑", func() {
			cache.saved["ep-1:1"] = red
			p := NewPipeline(generator, extractor, store, cache, PipelineOptions{})
			report, err := p.ResumeFrom(ctx, "ep-1", segments, 2)
			So(err, ShouldBeNil)
			So(report.Outcomes, ShouldHaveLength, 2)
			So(report.Outcomes[0].SegmentNumber, ShouldEqual, 2)
			prev, ok := generator.requests[0].Preceding.Get()
			So(ok, ShouldBeTrue)
			So(prev.Characters["MAYA"].Clothing, ShouldEqual, "red coat")
		})

		Convey("缓存未命中时使用已持久化的快照", func() {
			actions := make([]string, 10)
			for i := range actions {
				actions[i] = fmt.Sprintf("Maya climbs step %d.", i+1)
			}
			result, err := episodetools.SegmentEpisode(&episode.Episode{
				ID: "ep-2",
				Screenplay: &episode.Screenplay{Scenes: []episode.Scene{
					{ID: "s1", Location: "CAVE", TimeOfDay: "NIGHT", Characters: []string{"MAYA"}, Actions: actions},
				}},
			}, nil)
			So(err, ShouldBeNil)
			split := result.Segments
			So(split, ShouldHaveLength, 2)
			So(split[1].SceneID(), ShouldEqual, split[0].SceneID())
			split[0].ID, split[1].ID = "split-1", "split-2"
			split[0].FinalVisualState = &episode.VisualStateSnapshot{Location: "BEACH", TimeOfDay: "DAY"}

			assertResumed := func(report *PipelineReport) {
				So(report.Outcomes, ShouldHaveLength, 1)
				prev, ok := generator.requests[0].Preceding.Get()
				So(ok, ShouldBeTrue)
				So(prev.Location, ShouldEqual, "BEACH")
				So(generator.requests[0].Context.ContinuesScene, ShouldBeTrue)

				continuity := report.Outcomes[0].Continuity
				So(continuity.ComparedAttributes, ShouldEqual, 2)
				So(continuity.Issues, ShouldHaveLength, 2)
				So(continuity.IsValid, ShouldBeFalse)
			}

			Convey("缓存为空", func() {
				p := NewPipeline(generator, extractor, store, cache, PipelineOptions{})
				report, err := p.ResumeFrom(ctx, "ep-2", split, 2)
				So(err, ShouldBeNil)
				assertResumed(report)
			})

			Convey("没有缓存", func() {
				p := NewPipeline(generator, extractor, store, nil, PipelineOptions{})
				report, err := p.ResumeFrom(ctx, "ep-2", split, 2)
				So(err, ShouldBeNil)
				assertResumed(report)
			})

			Convey("与完整执行的校验结果一致", func() {
				extractor.snapshots["prompt for segment 1"] = episode.VisualStateSnapshot{Location: "BEACH", TimeOfDay: "DAY"}
				p := NewPipeline(generator, extractor, nil, nil, PipelineOptions{})
				full, err := p.Run(ctx, "ep-2", split)
				So(err, ShouldBeNil)
				So(full.Outcomes[1].Continuity.ComparedAttributes, ShouldEqual, 2)
				So(full.Outcomes[1].Continuity.Issues, ShouldHaveLength, 2)
			})

			Convey("缓存命中时优先使用缓存", func() {
				cache.saved["ep-2:1"] = episode.VisualStateSnapshot{Location: "CAVE", TimeOfDay: "NIGHT"}
				p := NewPipeline(generator, extractor, store, cache, PipelineOptions{})
				report, err := p.ResumeFrom(ctx, "ep-2", split, 2)
				So(err, ShouldBeNil)
				prev, _ := generator.requests[0].Preceding.Get()
				So(prev.Location, ShouldEqual, "CAVE")
				So(report.Outcomes[0].Continuity.IsValid, ShouldBeTrue)
			})
		})

		Convey("ctx 取消时返回已完成部分", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			p := NewPipeline(generator, extractor, nil, nil, PipelineOptions{})
			report, err := p.Run(cancelled, "ep-1", segments)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(report.Outcomes, ShouldBeEmpty)
		})

		Convey("缺少依赖或片段为空指针时报错", func() {
			_, err := NewPipeline(nil, extractor, nil, nil, PipelineOptions{}).Run(ctx, "ep-1", segments)
			So(err, ShouldNotBeNil)
			_, err = NewPipeline(generator, extractor, nil, nil, PipelineOptions{}).Run(ctx, "ep-1", []*episode.Segment{nil})
			So(err, ShouldNotBeNil)
		})
	})
}
