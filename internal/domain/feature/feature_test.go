package feature_test

import (
	"testing"
	"time"

	"github.com/okian/valetudo/internal/domain/feature"
	"github.com/okian/valetudo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func winBout(key string, at time.Time, oppRating float64) model.Bout {
	return model.Bout{
		Key:                  model.ContestKey(key),
		Date:                 at,
		Won:                  true,
		Method:               "KO/TKO",
		Round:                1,
		Duration:             4 * time.Minute,
		OpponentRatingBefore: oppRating,
		Stats: model.StatLine{
			Knockdowns:          1,
			SigStrikesLanded:    20,
			SigStrikesAttempted: 40,
			TakedownsLanded:     1,
			TakedownsAttempted:  2,
			SubmissionAttempts:  1,
			ControlTime:         time.Minute,
		},
	}
}

func lossBout(key string, at time.Time, oppRating float64) model.Bout {
	b := winBout(key, at, oppRating)
	b.Won = false
	b.Method = "Decision - Unanimous"
	b.Round = 3
	b.Duration = 15 * time.Minute
	return b
}

func TestDebutDefaults(t *testing.T) {
	Convey("Given a debut competitor facing an established one", t, func() {
		b := feature.New(feature.WithNeutralRating(1500))
		c := model.Contest{
			Key:     model.Key("ev9", 1),
			Date:    date(2024, 3, 9),
			RedID:   "debutant",
			BlueID:  "veteran",
			Outcome: model.OutcomeBlueWin,
			Method:  "Decision - Unanimous",
		}
		red := model.Competitor{ID: "debutant", HeightCM: 180, ReachIn: 72}
		blue := model.Competitor{ID: "veteran", HeightCM: 175, ReachIn: 70}
		snap := model.RatingSnapshot{RedBefore: 1500, BlueBefore: 1700}
		bluePrior := []model.Bout{winBout("old#1", date(2023, 5, 1), 1480)}

		fv := b.Build(c, red, blue, snap, nil, bluePrior)

		Convey("Then the debut side gets the defined neutral aggregate", func() {
			So(fv.Red.Bouts, ShouldEqual, 0)
			So(fv.Red.WinRate, ShouldEqual, 0)
			So(fv.Red.AvgOpponentRating, ShouldEqual, 1500)
			So(fv.Red.DaysSinceLastBout, ShouldEqual, 0)
		})

		Convey("And the established side aggregates normally", func() {
			So(fv.Blue.Bouts, ShouldEqual, 1)
			So(fv.Blue.WinRate, ShouldEqual, 1)
			So(fv.Blue.AvgOpponentRating, ShouldEqual, 1480)
		})

		Convey("And the differentials use pre-contest values", func() {
			So(fv.RatingDiff, ShouldEqual, -200)
			So(fv.HeightDiffCM, ShouldEqual, 5)
			So(fv.ReachDiffIn, ShouldEqual, 2)
			So(fv.Label, ShouldEqual, model.OutcomeBlueWin)
		})
	})
}

func TestNoLookahead(t *testing.T) {
	Convey("Given a contest with both earlier and later bouts present", t, func() {
		b := feature.New()
		c := model.Contest{
			Key:     model.Key("ev5", 2),
			Date:    date(2023, 6, 10),
			RedID:   "a",
			BlueID:  "z",
			Outcome: model.OutcomeRedWin,
			Method:  "Submission",
		}
		snap := model.RatingSnapshot{RedBefore: 1550, BlueBefore: 1520}
		earlier := []model.Bout{
			winBout("ev1#1", date(2022, 1, 1), 1500),
			lossBout("ev3#4", date(2022, 9, 17), 1600),
		}
		later := append(append([]model.Bout{}, earlier...),
			winBout("ev7#1", date(2023, 9, 2), 1650),
			winBout("ev8#3", date(2024, 1, 20), 1700),
		)
		itself := append(append([]model.Bout{}, earlier...),
			winBout(string(c.Key), c.Date, 1520),
		)

		clean := b.Build(c, model.Competitor{}, model.Competitor{}, snap, earlier, nil)

		Convey("Then later-dated bouts never change the vector", func() {
			polluted := b.Build(c, model.Competitor{}, model.Competitor{}, snap, later, nil)
			So(polluted, ShouldResemble, clean)
		})

		Convey("And the contest itself is excluded from its own window", func() {
			selfIncluded := b.Build(c, model.Competitor{}, model.Competitor{}, snap, itself, nil)
			So(selfIncluded, ShouldResemble, clean)
		})

		Convey("And same-date earlier bouts from the ordered query are kept", func() {
			sameDay := append(append([]model.Bout{}, earlier...),
				winBout("ev5#1", c.Date, 1510))
			fv := b.Build(c, model.Competitor{}, model.Competitor{}, snap, sameDay, nil)
			So(fv.Red.Bouts, ShouldEqual, 3)
		})
	})
}

func TestWindowTruncation(t *testing.T) {
	Convey("Given more prior bouts than the window size", t, func() {
		b := feature.New(feature.WithWindowSize(3))
		c := model.Contest{Key: model.Key("evX", 1), Date: date(2024, 1, 1), Outcome: model.OutcomeRedWin}
		snap := model.RatingSnapshot{RedBefore: 1600, BlueBefore: 1600}

		prior := []model.Bout{
			lossBout("e1#1", date(2020, 1, 1), 1400),
			lossBout("e2#1", date(2021, 1, 1), 1400),
			winBout("e3#1", date(2022, 1, 1), 1500),
			winBout("e4#1", date(2023, 1, 1), 1600),
			winBout("e5#1", date(2023, 7, 1), 1700),
		}

		fv := b.Build(c, model.Competitor{}, model.Competitor{}, snap, prior, nil)

		Convey("Then only the most recent N bouts enter the window", func() {
			So(fv.Red.Bouts, ShouldEqual, 3)
			So(fv.Red.WinRate, ShouldEqual, 1)
			So(fv.Red.AvgOpponentRating, ShouldEqual, 1600)
		})

		Convey("But streak, recency and cadence see the full history", func() {
			So(fv.Red.WinStreak, ShouldEqual, 3)
			So(fv.Red.DaysSinceLastBout, ShouldAlmostEqual, 184, 0.5)
			So(fv.Red.BoutsLastYear, ShouldEqual, 2)
		})
	})

	Convey("Given fewer prior bouts than the window size", t, func() {
		b := feature.New(feature.WithWindowSize(5))
		c := model.Contest{Key: model.Key("evY", 1), Date: date(2024, 1, 1), Outcome: model.OutcomeDraw}
		snap := model.RatingSnapshot{RedBefore: 1500, BlueBefore: 1500}
		prior := []model.Bout{
			winBout("e1#1", date(2023, 1, 1), 1500),
			lossBout("e2#1", date(2023, 6, 1), 1550),
		}

		fv := b.Build(c, model.Competitor{}, model.Competitor{}, snap, prior, nil)

		Convey("Then the aggregate covers however many exist", func() {
			So(fv.Red.Bouts, ShouldEqual, 2)
			So(fv.Red.WinRate, ShouldEqual, 0.5)
			So(fv.Red.WinStreak, ShouldEqual, 0)
		})
	})
}

func TestAggregateStatistics(t *testing.T) {
	Convey("Given a window with known statistics", t, func() {
		b := feature.New()
		c := model.Contest{Key: model.Key("evZ", 1), Date: date(2024, 1, 1), Outcome: model.OutcomeRedWin}
		snap := model.RatingSnapshot{RedBefore: 1500, BlueBefore: 1500}
		prior := []model.Bout{
			winBout("e1#1", date(2023, 1, 1), 1500),  // first-round KO, 4 min
			lossBout("e2#1", date(2023, 6, 1), 1550), // decision loss, 15 min
		}

		fv := b.Build(c, model.Competitor{}, model.Competitor{}, snap, prior, nil)

		Convey("Then accuracy, finish and control ratios match", func() {
			So(fv.Red.SigStrikeAccuracy, ShouldAlmostEqual, 0.5, 1e-9)
			So(fv.Red.TakedownAccuracy, ShouldAlmostEqual, 0.5, 1e-9)
			So(fv.Red.FinishRate, ShouldAlmostEqual, 0.5, 1e-9)
			So(fv.Red.FirstRoundFinishes, ShouldEqual, 1)
			So(fv.Red.KnockdownsScored, ShouldEqual, 2)
			So(fv.Red.SubAttemptsPerBout, ShouldAlmostEqual, 1, 1e-9)
			So(fv.Red.ControlShare, ShouldAlmostEqual, float64(2*60)/float64(19*60), 1e-9)
		})
	})
}
