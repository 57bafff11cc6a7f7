package repository_test

import (
	"context"
	"testing"
	"time"

	repository "github.com/pubtrivia/tally/internal/adapters/repository"
	model "github.com/pubtrivia/tally/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestMemStore_MergeSemantics(t *testing.T) {
	Convey("Given an empty in-memory store", t, func() {
		store := repository.NewMemStore()
		defer func() { _ = store.Close() }()
		ctx := context.Background()

		Convey("When merging a delta into a missing record", func() {
			batch := store.Batch()
			batch.MergeStanding("jade", repository.StandingMutation{
				Alias:       strPtr("jade"),
				DisplayName: strPtr("Jade"),
				PointsDelta: intPtr(10),
			})
			So(batch.Commit(ctx), ShouldBeNil)

			Convey("Then the record is created from the zero base", func() {
				rec, err := store.Standing(ctx, "jade")
				So(err, ShouldBeNil)
				So(rec.Points, ShouldEqual, 10)
				So(rec.Firsts, ShouldEqual, 0)
				So(rec.Alias, ShouldEqual, "jade")
			})
		})

		Convey("When merging touches only some fields", func() {
			batch := store.Batch()
			batch.MergeStanding("jade", repository.StandingMutation{
				Alias:       strPtr("jade"),
				DisplayName: strPtr("Jade"),
				Points:      intPtr(5),
				Firsts:      intPtr(2),
				Lasts:       intPtr(1),
			})
			So(batch.Commit(ctx), ShouldBeNil)

			second := store.Batch()
			second.MergeStanding("jade", repository.StandingMutation{
				PointsDelta: intPtr(3),
			})
			So(second.Commit(ctx), ShouldBeNil)

			Convey("Then untouched fields are preserved", func() {
				rec, err := store.Standing(ctx, "jade")
				So(err, ShouldBeNil)
				So(rec.Points, ShouldEqual, 8)
				So(rec.Firsts, ShouldEqual, 2)
				So(rec.Lasts, ShouldEqual, 1)
				So(rec.DisplayName, ShouldEqual, "Jade")
			})
		})

		Convey("When looking up a missing document", func() {
			_, err := store.Standing(ctx, "ghost")

			Convey("Then ErrNotFound is returned", func() {
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})
	})
}

func TestMemStore_BatchAtomicity(t *testing.T) {
	Convey("Given a store with a daily entry and a standing", t, func() {
		store := repository.NewMemStore()
		defer func() { _ = store.Close() }()
		ctx := context.Background()

		seed := store.Batch()
		seed.PutDailyEntry(model.DailyEntry{Alias: "jade", DisplayName: "Jade", Numerator: 7, Denominator: 10, Ratio: 0.7})
		seed.MergeStanding("bob", repository.StandingMutation{Alias: strPtr("bob"), Points: intPtr(4)})
		So(seed.Commit(ctx), ShouldBeNil)

		Convey("When one batch mutates all three collections", func() {
			batch := store.Batch()
			batch.MergeStanding("jade", repository.StandingMutation{Alias: strPtr("jade"), PointsDelta: intPtr(10)})
			batch.PutProfile(model.UserProfile{Alias: "jade", DisplayName: "Jade", UpdatedAt: time.Now()})
			batch.DeleteDailyEntry("jade")
			So(batch.Commit(ctx), ShouldBeNil)

			Convey("Then every mutation is visible afterwards", func() {
				entries, err := store.DailyEntries(ctx)
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)

				rec, err := store.Standing(ctx, "jade")
				So(err, ShouldBeNil)
				So(rec.Points, ShouldEqual, 10)

				profile, err := store.Profile(ctx, "jade")
				So(err, ShouldBeNil)
				So(profile.DisplayName, ShouldEqual, "Jade")
			})
		})

		Convey("When a standing is deleted", func() {
			batch := store.Batch()
			batch.DeleteStanding("bob")
			batch.DeleteProfile("bob")
			So(batch.Commit(ctx), ShouldBeNil)

			Convey("Then it is gone", func() {
				_, err := store.Standing(ctx, "bob")
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})

		Convey("When counting", func() {
			daily, standings := store.Counts(ctx)
			So(daily, ShouldEqual, 1)
			So(standings, ShouldEqual, 1)
		})
	})
}

func TestMemStore_Watch(t *testing.T) {
	Convey("Given a store with a change-feed subscriber", t, func() {
		store := repository.NewMemStore(repository.WithWatchBufferSize(4))
		defer func() { _ = store.Close() }()
		ctx := context.Background()

		sub, err := store.Watch(ctx, repository.CollectionStandings)
		So(err, ShouldBeNil)

		Convey("When a commit touches the watched collection", func() {
			batch := store.Batch()
			batch.MergeStanding("jade", repository.StandingMutation{Alias: strPtr("jade"), Points: intPtr(7)})
			So(batch.Commit(ctx), ShouldBeNil)

			Convey("Then a snapshot is delivered", func() {
				select {
				case snap := <-sub.C:
					So(snap.Collection, ShouldEqual, repository.CollectionStandings)
					So(snap.Standings, ShouldHaveLength, 1)
					So(snap.Standings[0].Points, ShouldEqual, 7)
				case <-time.After(time.Second):
					t.Fatal("no snapshot delivered")
				}
			})
		})

		Convey("When a commit touches a different collection", func() {
			batch := store.Batch()
			batch.PutDailyEntry(model.DailyEntry{Alias: "jade", Ratio: 0.5, Numerator: 1, Denominator: 2})
			So(batch.Commit(ctx), ShouldBeNil)

			Convey("Then nothing is delivered", func() {
				select {
				case <-sub.C:
					t.Fatal("unexpected snapshot")
				case <-time.After(50 * time.Millisecond):
				}
			})
		})

		Convey("When the subscription is canceled", func() {
			sub.Cancel()

			Convey("Then the channel closes and delivery stops", func() {
				_, open := <-sub.C
				So(open, ShouldBeFalse)
			})
		})

		Convey("When watching an unknown collection", func() {
			_, err := store.Watch(ctx, "nope")
			So(err, ShouldWrap, repository.ErrUnknownCollection)
		})
	})
}
