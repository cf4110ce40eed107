package episodetools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLLMVisualStateExtractor(t *testing.T) {
	Convey("LLMVisualStateExtractor", t, func() {
		ctx := context.Background()

		Convey("llm 为空时创建失败", func() {
			_, err := NewLLMVisualStateExtractor(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("文本为空时不调用模型，返回 NoSnapshot", func() {
			llm := &fakeLLM{}
			extractor, err := NewLLMVisualStateExtractor(llm)
			So(err, ShouldBeNil)

			snap, err := extractor.Extract(ctx, "   ", []string{"MAYA"})
			So(err, ShouldBeNil)
			So(snap.Present(), ShouldBeFalse)
			So(llm.calls(), ShouldEqual, 0)
		})

		Convey("解析模型返回的部分快照，丢弃未知角色", func() {
			llm := &fakeLLM{responses: []string{"```json\n" + `{
  "lighting": "neon glow",
  "characters": {
    "maya": {"clothing": "red coat", "expression": "angry"},
    "STRANGER": {"clothing": "hat"},
    "LEO": {}
  }
}` + "\n```"}}
			extractor, err := NewLLMVisualStateExtractor(llm)
			So(err, ShouldBeNil)

			snap, err := extractor.Extract(ctx, "Maya glares under the neon sign.", []string{"MAYA", "LEO"})
			So(err, ShouldBeNil)
			s, ok := snap.Get()
			So(ok, ShouldBeTrue)
			So(s.Lighting, ShouldEqual, "neon glow")
			So(s.Characters, ShouldHaveLength, 1)
			So(s.Characters["MAYA"].Clothing, ShouldEqual, "red coat")

			Convey("提示词中包含 schema、角色列表和原文", func() {
				So(llm.prompts, ShouldHaveLength, 1)
				prompt := llm.prompts[0]
				So(prompt, ShouldContainSubstring, `"camera_framing"`)
				So(prompt, ShouldContainSubstring, "MAYA, LEO")
				So(prompt, ShouldContainSubstring, "Maya glares under the neon sign.")
			})
		})

		Convey("模型返回空对象时为 NoSnapshot", func() {
			extractor, _ := NewLLMVisualStateExtractor(&fakeLLM{responses: []string{"{}"}})
			snap, err := extractor.Extract(ctx, "Nothing visual.", nil)
			So(err, ShouldBeNil)
			So(snap.Present(), ShouldBeFalse)
		})

		Convey("模型调用失败时返回包装后的错误", func() {
			boom := errors.New("rate limited")
			extractor, _ := NewLLMVisualStateExtractor(&fakeLLM{err: boom})
			snap, err := extractor.Extract(ctx, "Some text.", nil)
			So(errors.Is(err, boom), ShouldBeTrue)
			So(snap.Present(), ShouldBeFalse)
		})

		Convey("返回非 JSON 时报错", func() {
			extractor, _ := NewLLMVisualStateExtractor(&fakeLLM{responses: []string{"no idea"}})
			_, err := extractor.Extract(ctx, "Some text.", nil)
			So(err, ShouldNotBeNil)
		})

		Convey("返回空内容时为 ErrEmptyResponse", func() {
			extractor, _ := NewLLMVisualStateExtractor(&fakeLLM{responses: []string{""}})
			_, err := extractor.Extract(ctx, "Some text.", nil)
			So(errors.Is(err, ErrEmptyResponse), ShouldBeTrue)
		})
	})
}

func TestParseVisualState(t *testing.T) {
	Convey("ParseVisualState", t, func() {
		Convey("角色列表为空时保留全部角色", func() {
			s, err := ParseVisualState(`{"characters": {"A": {"props": "cup"}}}`, nil)
			So(err, ShouldBeNil)
			So(s.Characters["A"].Props, ShouldEqual, "cup")
		})

		Convey("没有有效角色时 Characters 为 nil", func() {
			s, err := ParseVisualState(`{"mood": "calm", "characters": {"B": {}}}`, []string{"A"})
			So(err, ShouldBeNil)
			So(s.Characters, ShouldBeNil)
			So(s.Mood, ShouldEqual, "calm")
		})
	})
}
