package cmd

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"

	"storyreel/internal/config"
)

func TestSetDefaults(t *testing.T) {
	Convey("默认配置", t, func() {
		viper.Reset()
		defer viper.Reset()
		setDefaults()

		var c config.Config
		So(viper.Unmarshal(&c), ShouldBeNil)

		Convey("连续性校验默认启用自动修正和规划抽取", func() {
			So(c.Continuity.AutoCorrect, ShouldBeTrue)
			So(c.Continuity.PlanWithExtractor, ShouldBeTrue)
		})

		Convey("默认配置可以通过校验", func() {
			So(c.Validate(), ShouldBeNil)
		})
	})
}
