package retrain_test

import (
	"testing"

	"github.com/okian/valetudo/internal/domain/retrain"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecide(t *testing.T) {
	Convey("Given a gate with a threshold of 10", t, func() {
		g := retrain.New(retrain.WithThreshold(10))

		Convey("Then the force flag always wins", func() {
			d := g.Decide(0, true, true)
			So(d.Retrain, ShouldBeTrue)
			So(d.Reason, ShouldContainSubstring, "force")
		})

		Convey("Then a missing artifact forces a first train", func() {
			d := g.Decide(0, false, false)
			So(d.Retrain, ShouldBeTrue)
			So(d.Reason, ShouldContainSubstring, "artifact")
		})

		Convey("Then counts above the threshold retrain", func() {
			d := g.Decide(11, true, false)
			So(d.Retrain, ShouldBeTrue)
			So(d.Reason, ShouldContainSubstring, "11 new contests")
		})

		Convey("Then counts at or below the threshold do not", func() {
			So(g.Decide(10, true, false).Retrain, ShouldBeFalse)
			So(g.Decide(0, true, false).Retrain, ShouldBeFalse)
		})
	})

	Convey("Given the degenerate default threshold of zero", t, func() {
		g := retrain.New()

		Convey("Then any new data triggers retraining", func() {
			So(g.Decide(1, true, false).Retrain, ShouldBeTrue)
			So(g.Decide(0, true, false).Retrain, ShouldBeFalse)
		})
	})

	Convey("Given a negative threshold option", t, func() {
		g := retrain.New(retrain.WithThreshold(-5))

		Convey("Then it is ignored and the default stands", func() {
			So(g.Threshold(), ShouldEqual, 0)
		})
	})
}
