package fixture_test

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/valetudo/internal/adapters/fetch"
	"github.com/okian/valetudo/internal/domain/model"
	"github.com/okian/valetudo/internal/fixture"
)

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		g := fixture.New(fixture.WithSeed(7), fixture.WithEvents(4), fixture.WithBoutsPerEvent(5))

		Convey("Then the same seed yields the same history", func() {
			again := fixture.New(fixture.WithSeed(7), fixture.WithEvents(4), fixture.WithBoutsPerEvent(5))
			So(again.Candidates(), ShouldResemble, g.Candidates())
		})

		Convey("Then a different seed yields a different history", func() {
			other := fixture.New(fixture.WithSeed(8), fixture.WithEvents(4), fixture.WithBoutsPerEvent(5))
			So(other.Candidates(), ShouldNotResemble, g.Candidates())
		})

		Convey("Then every candidate decodes cleanly with a unique key", func() {
			candidates := g.Candidates()
			So(len(candidates), ShouldEqual, 20)

			keys := make(map[model.ContestKey]struct{})
			for _, cand := range candidates {
				contest, sides, err := cand.Decode()
				So(err, ShouldBeNil)
				So(contest.Outcome.Valid(), ShouldBeTrue)
				So(sides[0].ID, ShouldNotEqual, sides[1].ID)
				keys[contest.Key] = struct{}{}
			}
			So(len(keys), ShouldEqual, len(candidates))
		})
	})

	Convey("Given a written snapshot file", t, func() {
		g := fixture.New(fixture.WithSeed(3), fixture.WithEvents(2), fixture.WithBoutsPerEvent(3))
		path := filepath.Join(t.TempDir(), "events.json")
		So(g.WriteSnapshot(path), ShouldBeNil)

		Convey("Then the snapshot fetcher reads the same candidates back", func() {
			f := &fetch.SnapshotFetcher{Path: path}
			got, err := f.Fetch(context.Background())
			So(err, ShouldBeNil)
			So(got, ShouldResemble, g.Candidates())
		})
	})
}
