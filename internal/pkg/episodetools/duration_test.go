package episodetools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"storyreel/internal/model/episode"
)

func TestEstimateSceneDuration(t *testing.T) {
	Convey("EstimateSceneDuration", t, func() {
		Convey("空场景取 3 秒下限", func() {
			So(EstimateSceneDuration(&episode.Scene{}), ShouldEqual, 3.0)
			So(EstimateSceneDuration(nil), ShouldEqual, 3.0)
		})

		Convey("内容时长 = 词数 / 2.5 + 动作数 × 2", func() {
			scene := &episode.Scene{
				Actions: []string{"He runs.", "He jumps.", "He falls."},
				Dialogue: []episode.DialogueEntry{
					{Character: "A", Lines: []string{"one two three four five", "six seven eight nine ten"}},
				},
			}
			So(EstimateSceneDuration(scene), ShouldAlmostEqual, 10.0, 1e-9)
		})

		Convey("作者预估大于内容时长时取作者预估", func() {
			scene := &episode.Scene{EstimatedDuration: 12, Actions: []string{"Look."}}
			So(EstimateSceneDuration(scene), ShouldEqual, 12.0)
		})

		Convey("作者预估小于内容时长时取内容时长", func() {
			scene := &episode.Scene{EstimatedDuration: 1, Actions: []string{"a", "b", "c"}}
			So(EstimateSceneDuration(scene), ShouldEqual, 6.0)
		})

		Convey("作者预估低于下限时仍取下限", func() {
			So(EstimateSceneDuration(&episode.Scene{EstimatedDuration: 1.5}), ShouldEqual, 3.0)
		})

		Convey("长场景不设上限", func() {
			scene := &episode.Scene{EstimatedDuration: 95}
			So(EstimateSceneDuration(scene), ShouldEqual, 95.0)
		})
	})
}

func TestDurationEstimator(t *testing.T) {
	Convey("自定义估算参数", t, func() {
		e := NewDurationEstimator()
		e.WordsPerSecond = 2
		e.SecondsPerAction = 1
		scene := &episode.Scene{
			Actions:  []string{"a", "b", "c", "d"},
			Dialogue: []episode.DialogueEntry{{Character: "A", Lines: []string{"w w w w w w w w"}}},
		}
		So(e.Estimate(scene), ShouldEqual, 8.0)
		So(e.DialogueDuration(scene.Dialogue[0]), ShouldEqual, 4.0)
		So(e.ContentDuration(nil, []string{"x"}), ShouldEqual, 1.0)

		Convey("语速为 0 时台词不计时", func() {
			e.WordsPerSecond = 0
			So(e.DialogueDuration(scene.Dialogue[0]), ShouldEqual, 0.0)
		})

		Convey("Counter 为空时按空白切分", func() {
			e.Counter = nil
			So(e.DialogueDuration(scene.Dialogue[0]), ShouldEqual, 4.0)
		})
	})
}
