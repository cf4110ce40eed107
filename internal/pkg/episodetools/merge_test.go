package episodetools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"storyreel/internal/model/episode"
)

func TestMerge(t *testing.T) {
	Convey("Merge", t, func() {
		Convey("没有来源时返回空结果，置信度 low", func() {
			out := Merge[string]()
			So(out.Fields, ShouldBeEmpty)
			So(out.Confidence, ShouldEqual, episode.ConfidenceLow)
			So(out.Sources, ShouldEqual, 0)
		})

		Convey("单个来源原样透传", func() {
			out := Merge(Source[string]{
				Fields:     map[string]string{"hair_color": "black"},
				Confidence: episode.ConfidenceHigh,
				Notes:      "front view",
			})
			So(out.Fields, ShouldResemble, map[string]string{"hair_color": "black"})
			So(out.Confidence, ShouldEqual, episode.ConfidenceHigh)
			So(out.Notes, ShouldEqual, "front view")
		})

		Convey("多个来源时逐字段取最高置信度，结果为 medium 并带合并标记", func() {
			low := Source[string]{
				Fields:     map[string]string{"top": "red coat", "hair_color": "brown"},
				Confidence: episode.ConfidenceLow,
			}
			high := Source[string]{
				Fields:     map[string]string{"top": "blue jacket"},
				Confidence: episode.ConfidenceHigh,
			}
			out := Merge(low, high)
			So(out.Fields["top"], ShouldEqual, "blue jacket")
			So(out.Fields["hair_color"], ShouldEqual, "brown")
			So(out.Confidence, ShouldEqual, episode.ConfidenceMedium)
			So(out.Notes, ShouldEqual, MergedNotesMarker)
			So(out.Sources, ShouldEqual, 2)

			Convey("胜出值与来源顺序无关", func() {
				reversed := Merge(high, low)
				So(reversed.Fields, ShouldResemble, out.Fields)
			})
		})

		Convey("同置信度保留先出现的值", func() {
			a := Source[int]{Fields: map[string]int{"n": 1}, Confidence: episode.ConfidenceMedium}
			b := Source[int]{Fields: map[string]int{"n": 2}, Confidence: episode.ConfidenceMedium}
			So(Merge(a, b).Fields["n"], ShouldEqual, 1)
			So(Merge(b, a).Fields["n"], ShouldEqual, 2)
		})

		Convey("置信度大小写不敏感，未知值最低", func() {
			a := Source[string]{Fields: map[string]string{"k": "unknown"}, Confidence: "certain"}
			b := Source[string]{Fields: map[string]string{"k": "upper"}, Confidence: "LOW"}
			So(Merge(a, b).Fields["k"], ShouldEqual, "upper")
		})
	})
}

func TestMergeCharacterAnalyses(t *testing.T) {
	Convey("MergeCharacterAnalyses", t, func() {
		front := episode.CharacterAnalysis{
			Name:       "MAYA",
			HairColor:  "black",
			Top:        "grey hoodie",
			Confidence: episode.ConfidenceHigh,
			Notes:      "front",
		}
		side := episode.CharacterAnalysis{
			Name:       "Maya",
			HairColor:  "dark brown",
			Bottom:     "jeans",
			Accessory:  "silver watch",
			Confidence: episode.ConfidenceLow,
			Notes:      "side",
		}

		Convey("多张图片合并", func() {
			out := MergeCharacterAnalyses(side, front)
			So(out.Name, ShouldEqual, "MAYA")
			So(out.HairColor, ShouldEqual, "black")
			So(out.Top, ShouldEqual, "grey hoodie")
			So(out.Bottom, ShouldEqual, "jeans")
			So(out.Accessory, ShouldEqual, "silver watch")
			So(out.Confidence, ShouldEqual, episode.ConfidenceMedium)
			So(out.Notes, ShouldEqual, MergedNotesMarker)
		})

		Convey("单张图片透传", func() {
			out := MergeCharacterAnalyses(front)
			So(out, ShouldResemble, front)
		})

		Convey("没有图片时置信度 low", func() {
			out := MergeCharacterAnalyses()
			So(out.Confidence, ShouldEqual, episode.ConfidenceLow)
			So(out.Name, ShouldEqual, "")
		})
	})
}

func TestMergeSnapshots(t *testing.T) {
	Convey("快照展开与还原", t, func() {
		s := episode.VisualStateSnapshot{
			Lighting: "neon",
			Mood:     "tense",
			Characters: map[string]episode.CharacterVisualState{
				"MAYA": {Clothing: "red coat", Position: "by the door"},
			},
		}
		flat := FlattenSnapshot(s)
		So(flat["lighting"], ShouldEqual, "neon")
		So(flat["character:MAYA:clothing"], ShouldEqual, "red coat")
		So(flat, ShouldNotContainKey, "camera_framing")
		So(UnflattenSnapshot(flat), ShouldResemble, s)
	})

	Convey("MergeSnapshots", t, func() {
		planned := episode.VisualStateSnapshot{
			Lighting: "daylight",
			Mood:     "calm",
			Characters: map[string]episode.CharacterVisualState{
				"MAYA": {Clothing: "blue dress", Expression: "smiling"},
			},
		}
		preceding := episode.VisualStateSnapshot{
			Lighting: "neon",
			Characters: map[string]episode.CharacterVisualState{
				"MAYA": {Clothing: "red coat"},
			},
		}
		out, conf := MergeSnapshots(
			SnapshotObservation{Snapshot: planned, Confidence: episode.ConfidenceMedium},
			SnapshotObservation{Snapshot: preceding, Confidence: episode.ConfidenceHigh},
		)
		So(conf, ShouldEqual, episode.ConfidenceMedium)
		So(out.Lighting, ShouldEqual, "neon")
		So(out.Mood, ShouldEqual, "calm")
		So(out.Characters["MAYA"].Clothing, ShouldEqual, "red coat")
		So(out.Characters["MAYA"].Expression, ShouldEqual, "smiling")
		So(out.Notes, ShouldEqual, MergedNotesMarker)
	})
}
