package rating_test

import (
	"testing"

	"github.com/okian/valetudo/internal/domain/model"
	"github.com/okian/valetudo/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpectedScore(t *testing.T) {
	Convey("Given a rating engine", t, func() {
		e := rating.New()

		Convey("When both sides hold the same rating", func() {
			So(e.Expected(1500, 1500), ShouldAlmostEqual, 0.5, 1e-12)
		})

		Convey("When one side is rated higher", func() {
			So(e.Expected(1700, 1500), ShouldBeGreaterThan, 0.5)
			So(e.Expected(1500, 1700), ShouldBeLessThan, 0.5)
		})

		Convey("Then the two expectations always sum to one", func() {
			So(e.Expected(1612, 1488)+e.Expected(1488, 1612), ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("Then a 400-point gap yields roughly 10:1 odds", func() {
			So(e.Expected(1900, 1500), ShouldAlmostEqual, 10.0/11.0, 1e-12)
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a rating engine with defaults", t, func() {
		e := rating.New()

		Convey("When the favorite wins", func() {
			redAfter, blueAfter := e.Apply(model.OutcomeRedWin, 1700, 1500)

			Convey("Then the winner gains less than half the K-factor", func() {
				So(redAfter, ShouldBeGreaterThan, 1700)
				So(redAfter-1700, ShouldBeLessThan, e.KFactor()/2)
				So(blueAfter, ShouldBeLessThan, 1500)
			})

			Convey("And the deltas sum to zero", func() {
				So((redAfter-1700)+(blueAfter-1500), ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When the underdog wins", func() {
			redAfter, blueAfter := e.Apply(model.OutcomeBlueWin, 1700, 1500)

			Convey("Then the upset moves more than half the K-factor", func() {
				So(blueAfter-1500, ShouldBeGreaterThan, e.KFactor()/2)
				So((redAfter-1700)+(blueAfter-1500), ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When unequal ratings draw", func() {
			redAfter, blueAfter := e.Apply(model.OutcomeDraw, 1700, 1500)

			Convey("Then the higher-rated side loses ground and the sum is conserved", func() {
				So(redAfter, ShouldBeLessThan, 1700)
				So(blueAfter, ShouldBeGreaterThan, 1500)
				So((redAfter-1700)+(blueAfter-1500), ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When equal ratings draw", func() {
			redAfter, blueAfter := e.Apply(model.OutcomeDraw, 1600, 1600)

			Convey("Then nothing moves", func() {
				So(redAfter, ShouldAlmostEqual, 1600, 1e-12)
				So(blueAfter, ShouldAlmostEqual, 1600, 1e-12)
			})
		})

		Convey("When the contest is ruled a no contest", func() {
			redAfter, blueAfter := e.Apply(model.OutcomeNoContest, 1712.5, 1433.25)

			Convey("Then both ratings are returned untouched", func() {
				So(redAfter, ShouldEqual, 1712.5)
				So(blueAfter, ShouldEqual, 1433.25)
			})
		})

		Convey("When the same inputs are applied twice", func() {
			r1, b1 := e.Apply(model.OutcomeRedWin, 1534.7, 1621.2)
			r2, b2 := e.Apply(model.OutcomeRedWin, 1534.7, 1621.2)

			Convey("Then the outputs are bit-identical", func() {
				So(r1, ShouldEqual, r2)
				So(b1, ShouldEqual, b2)
			})
		})
	})

	Convey("Given a configured engine", t, func() {
		e := rating.New(rating.WithKFactor(16), rating.WithInitialRating(1000))

		Convey("Then the options take effect", func() {
			So(e.KFactor(), ShouldEqual, 16)
			So(e.InitialRating(), ShouldEqual, 1000)

			redAfter, _ := e.Apply(model.OutcomeRedWin, 1000, 1000)
			So(redAfter-1000, ShouldAlmostEqual, 8, 1e-9)
		})

		Convey("And invalid option values fall back to defaults", func() {
			bad := rating.New(rating.WithKFactor(-3), rating.WithInitialRating(0))
			So(bad.KFactor(), ShouldEqual, rating.DefaultKFactor)
			So(bad.InitialRating(), ShouldEqual, rating.DefaultInitialRating)
		})
	})
}

func TestSnapshot(t *testing.T) {
	Convey("Given a rating engine", t, func() {
		e := rating.New()

		Convey("When taking a snapshot of a win", func() {
			snap := e.Snapshot(model.OutcomeRedWin, 1500, 1700)

			Convey("Then before values are preserved and after values match Apply", func() {
				redAfter, blueAfter := e.Apply(model.OutcomeRedWin, 1500, 1700)
				So(snap.RedBefore, ShouldEqual, 1500)
				So(snap.BlueBefore, ShouldEqual, 1700)
				So(snap.RedAfter, ShouldEqual, redAfter)
				So(snap.BlueAfter, ShouldEqual, blueAfter)
			})
		})
	})
}
