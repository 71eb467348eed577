package model_test

import (
	"testing"
	"time"

	"github.com/okian/valetudo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestContestOrdering(t *testing.T) {
	Convey("Given contests on different dates", t, func() {
		earlier := model.Contest{Key: model.Key("ev1", 1), EventID: "ev1", BoutOrdinal: 1, Date: time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC)}
		later := model.Contest{Key: model.Key("ev2", 1), EventID: "ev2", BoutOrdinal: 1, Date: time.Date(2023, 2, 4, 0, 0, 0, 0, time.UTC)}

		Convey("Then dates decide the order", func() {
			So(model.Less(earlier, later), ShouldBeTrue)
			So(model.Less(later, earlier), ShouldBeFalse)
		})
	})

	Convey("Given contests on the same date", t, func() {
		date := time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC)
		a := model.Contest{EventID: "ev1", BoutOrdinal: 3, Date: date}
		b := model.Contest{EventID: "ev1", BoutOrdinal: 7, Date: date}
		c := model.Contest{EventID: "ev2", BoutOrdinal: 1, Date: date}

		Convey("Then the event id and bout ordinal break ties deterministically", func() {
			So(model.Less(a, b), ShouldBeTrue)
			So(model.Less(b, c), ShouldBeTrue)
			So(model.Less(c, a), ShouldBeFalse)
		})
	})
}

func TestContestAfterCheckpoint(t *testing.T) {
	Convey("Given a checkpoint at a known position", t, func() {
		cp := model.Checkpoint{
			EventID:     "ev5",
			BoutOrdinal: 4,
			Date:        time.Date(2023, 6, 10, 0, 0, 0, 0, time.UTC),
		}

		Convey("Then a later-dated contest is after it", func() {
			c := model.Contest{EventID: "ev6", BoutOrdinal: 1, Date: cp.Date.AddDate(0, 0, 7)}
			So(c.After(cp), ShouldBeTrue)
		})

		Convey("Then an earlier-dated contest is not after it", func() {
			c := model.Contest{EventID: "ev4", BoutOrdinal: 1, Date: cp.Date.AddDate(0, 0, -7)}
			So(c.After(cp), ShouldBeFalse)
		})

		Convey("Then same-date ordering falls back to the secondary key", func() {
			sameEventLater := model.Contest{EventID: "ev5", BoutOrdinal: 5, Date: cp.Date}
			sameEventEarlier := model.Contest{EventID: "ev5", BoutOrdinal: 3, Date: cp.Date}
			So(sameEventLater.After(cp), ShouldBeTrue)
			So(sameEventEarlier.After(cp), ShouldBeFalse)
		})

		Convey("And everything is after the zero checkpoint", func() {
			c := model.Contest{EventID: "ev0", BoutOrdinal: 1, Date: time.Date(1994, 3, 11, 0, 0, 0, 0, time.UTC)}
			So(c.After(model.Checkpoint{}), ShouldBeTrue)
		})
	})
}

func TestContestHelpers(t *testing.T) {
	Convey("Given a finished contest", t, func() {
		c := model.Contest{
			RedID:     "a",
			BlueID:    "b",
			Outcome:   model.OutcomeRedWin,
			Method:    "KO/TKO",
			Round:     2,
			ClockTime: 90 * time.Second,
		}

		Convey("Then the winner, finish and duration helpers agree", func() {
			So(c.WinnerID(), ShouldEqual, "a")
			So(c.IsFinish(), ShouldBeTrue)
			So(c.IsKnockout(), ShouldBeTrue)
			So(c.Duration(), ShouldEqual, 5*time.Minute+90*time.Second)
		})
	})

	Convey("Given a decision win", t, func() {
		c := model.Contest{Outcome: model.OutcomeBlueWin, Method: "Decision - Unanimous", Round: 3, ClockTime: 5 * time.Minute}

		Convey("Then it is not a finish", func() {
			So(c.IsFinish(), ShouldBeFalse)
			So(c.IsKnockout(), ShouldBeFalse)
			So(c.Duration(), ShouldEqual, 15*time.Minute)
		})
	})

	Convey("Given a draw and a no contest", t, func() {
		d := model.Contest{Outcome: model.OutcomeDraw, Method: "Decision - Split"}
		nc := model.Contest{Outcome: model.OutcomeNoContest, Method: "Overturned"}

		Convey("Then neither has a winner nor counts as a finish", func() {
			So(d.WinnerID(), ShouldEqual, "")
			So(nc.WinnerID(), ShouldEqual, "")
			So(d.IsFinish(), ShouldBeFalse)
			So(nc.IsFinish(), ShouldBeFalse)
		})
	})

	Convey("Given outcome validation", t, func() {
		So(model.OutcomeRedWin.Valid(), ShouldBeTrue)
		So(model.OutcomeNoContest.Valid(), ShouldBeTrue)
		So(model.Outcome("upset").Valid(), ShouldBeFalse)
	})
}

func TestCompetitorAge(t *testing.T) {
	Convey("Given a competitor with a known date of birth", t, func() {
		c := model.Competitor{DOB: time.Date(1990, 7, 1, 0, 0, 0, 0, time.UTC)}

		Convey("Then age at a contest date is computed in years", func() {
			age := c.AgeAt(time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC))
			So(age, ShouldAlmostEqual, 30, 0.05)
		})
	})

	Convey("Given an unknown date of birth", t, func() {
		c := model.Competitor{}

		Convey("Then age defaults to zero", func() {
			So(c.AgeAt(time.Now()), ShouldEqual, 0)
		})
	})
}
