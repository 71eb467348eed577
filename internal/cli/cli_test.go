package cli

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/valetudo/internal/app"
	"github.com/okian/valetudo/internal/domain/model"
)

func TestRootCommandTree(t *testing.T) {
	Convey("Given the root command", t, func() {
		root := NewRootCommand()

		Convey("Then every subcommand is registered", func() {
			names := make(map[string]bool)
			for _, c := range root.Commands() {
				names[c.Name()] = true
			}
			for _, want := range []string{"run", "serve", "top", "seed", "export", "mark-trained"} {
				So(names[want], ShouldBeTrue)
			}
		})
	})
}

func TestParseMode(t *testing.T) {
	Convey("Given the mode flag parser", t, func() {
		Convey("Then the two run modes parse", func() {
			m, err := parseMode("update")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, service.ModeUpdate)

			m, err = parseMode("rebuild")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, service.ModeRebuild)
		})

		Convey("Then anything else is rejected", func() {
			_, err := parseMode("replay")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestWriteFeatureCSV(t *testing.T) {
	Convey("Given a small feature table", t, func() {
		table := []model.FeatureVector{
			{
				ContestKey: model.Key("evt-0001", 1),
				Label:      model.OutcomeRedWin,
				RatingDiff: 12.5,
				Red:        model.WindowAggregate{Bouts: 3, WinRate: 2.0 / 3.0, AvgOpponentRating: 1512},
				Blue:       model.WindowAggregate{AvgOpponentRating: 1500},
			},
			{
				ContestKey: model.Key("evt-0001", 2),
				Label:      model.OutcomeNoContest,
			},
		}
		path := filepath.Join(t.TempDir(), "nested", "features.csv")

		Convey("When writing the CSV export", func() {
			So(writeFeatureCSV(path, table), ShouldBeNil)

			f, err := os.Open(path)
			So(err, ShouldBeNil)
			defer f.Close()

			rows, err := csv.NewReader(f).ReadAll()
			So(err, ShouldBeNil)

			Convey("Then the header and one row per vector come back", func() {
				So(len(rows), ShouldEqual, 3)
				So(rows[0], ShouldResemble, featureCSVHeader)
				for _, row := range rows[1:] {
					So(len(row), ShouldEqual, len(featureCSVHeader))
				}
			})

			Convey("Then labels and keys survive verbatim", func() {
				So(rows[1][0], ShouldEqual, "evt-0001#1")
				So(rows[1][1], ShouldEqual, "red_win")
				So(rows[2][1], ShouldEqual, "no_contest")
			})
		})
	})
}
