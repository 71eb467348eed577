package detect_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/valetudo/internal/adapters/fetch"
	"github.com/okian/valetudo/internal/domain/detect"
	"github.com/okian/valetudo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type knownMap struct {
	keys map[model.ContestKey]bool
	err  error
}

func (k *knownMap) HasContest(_ context.Context, key model.ContestKey) (bool, error) {
	if k.err != nil {
		return false, k.err
	}
	return k.keys[key], nil
}

func candidate(eventID string, ordinal int, date, red, blue string) fetch.Candidate {
	return fetch.Candidate{
		EventID:     eventID,
		EventName:   eventID,
		EventDate:   date,
		BoutOrdinal: ordinal,
		Winner:      red,
		Method:      "Decision - Unanimous",
		Round:       "3",
		Time:        "5:00",
		Red:         fetch.Corner{Name: red},
		Blue:        fetch.Corner{Name: blue},
	}
}

func TestDetect(t *testing.T) {
	Convey("Given a detector over a store with one known contest", t, func() {
		known := &knownMap{keys: map[model.ContestKey]bool{
			model.Key("ev1", 1): true,
		}}
		d := detect.New(known)

		Convey("When a batch mixes new, duplicate and malformed records", func() {
			batch, err := d.Detect(context.Background(), []fetch.Candidate{
				candidate("ev1", 1, "January 7, 2023", "Alice Ruiz", "Bea Santos"),   // stored already
				candidate("ev2", 2, "February 4, 2023", "Cara Diaz", "Dana Holm"),    // new, later
				candidate("ev2", 1, "February 4, 2023", "Eva Marsh", "Fay Osei"),     // new, earlier ordinal
				candidate("ev2", 1, "February 4, 2023", "Eva Marsh", "Fay Osei"),     // repeated in batch
				candidate("", 0, "February 4, 2023", "", ""),                         // malformed
				candidate("ev3", 1, "not a date", "Gia Prado", "Hana Quist"),         // malformed date
				candidate("ev0", 1, "November 12, 2022", "Iris Soto", "Jade Timur"),  // new, earliest
			})

			Convey("Then counts and ordering are exact", func() {
				So(err, ShouldBeNil)
				So(batch.Malformed, ShouldEqual, 2)
				So(batch.Duplicates, ShouldEqual, 2)
				So(batch.New, ShouldHaveLength, 3)
				So(batch.New[0].Key, ShouldEqual, model.Key("ev0", 1))
				So(batch.New[1].Key, ShouldEqual, model.Key("ev2", 1))
				So(batch.New[2].Key, ShouldEqual, model.Key("ev2", 2))
			})

			Convey("And competitor profiles are collected once per id", func() {
				So(batch.Competitors, ShouldContainKey, "eva-marsh")
				So(batch.Competitors, ShouldContainKey, "iris-soto")
				So(batch.Competitors, ShouldNotContainKey, "alice-ruiz")
				So(len(batch.Competitors), ShouldEqual, 6)
			})
		})

		Convey("When every record is a duplicate", func() {
			batch, err := d.Detect(context.Background(), []fetch.Candidate{
				candidate("ev1", 1, "January 7, 2023", "Alice Ruiz", "Bea Santos"),
			})

			Convey("Then the batch is empty but not an error", func() {
				So(err, ShouldBeNil)
				So(batch.New, ShouldBeEmpty)
				So(batch.Duplicates, ShouldEqual, 1)
			})
		})

		Convey("When the candidate set is empty", func() {
			batch, err := d.Detect(context.Background(), nil)
			So(err, ShouldBeNil)
			So(batch.New, ShouldBeEmpty)
		})

		Convey("When the store lookup fails", func() {
			boom := errors.New("disk gone")
			d := detect.New(&knownMap{err: boom})
			_, err := d.Detect(context.Background(), []fetch.Candidate{
				candidate("ev2", 1, "February 4, 2023", "Eva Marsh", "Fay Osei"),
			})

			Convey("Then the batch aborts with the wrapped failure", func() {
				So(err, ShouldWrap, boom)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := d.Detect(ctx, []fetch.Candidate{
				candidate("ev2", 1, "February 4, 2023", "Eva Marsh", "Fay Osei"),
			})
			So(err, ShouldWrap, context.Canceled)
		})
	})
}
