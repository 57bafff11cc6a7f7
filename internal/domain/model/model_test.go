package model_test

import (
	"testing"

	model "github.com/pubtrivia/tally/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseFraction(t *testing.T) {
	convey.Convey("Given textual fraction scores", t, func() {
		convey.Convey("When parsing a well-formed fraction", func() {
			f, err := model.ParseFraction("7/10")

			convey.Convey("Then numerator and denominator are extracted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.Numerator, convey.ShouldEqual, 7)
				convey.So(f.Denominator, convey.ShouldEqual, 10)
				convey.So(f.Ratio(), convey.ShouldAlmostEqual, 0.7)
			})
		})

		convey.Convey("When the slash carries whitespace", func() {
			f, err := model.ParseFraction("  3 / 5 ")

			convey.Convey("Then parsing still succeeds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.Numerator, convey.ShouldEqual, 3)
				convey.So(f.Denominator, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When the numerator is negative", func() {
			f, err := model.ParseFraction("-1/10")

			convey.Convey("Then the sign is preserved", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.Numerator, convey.ShouldEqual, -1)
			})
		})

		convey.Convey("When the input is malformed", func() {
			for _, input := range []string{"", "7", "7/0", "7/-1", "a/b", "7/10/2", "7.5/10"} {
				_, err := model.ParseFraction(input)
				convey.So(err, convey.ShouldWrap, model.ErrMalformedFraction)
			}
		})
	})
}
