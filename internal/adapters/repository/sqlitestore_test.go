package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	repository "github.com/pubtrivia/tally/internal/adapters/repository"
	model "github.com/pubtrivia/tally/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_MergeSemantics(t *testing.T) {
	Convey("Given an empty sqlite store", t, func() {
		store := newTestSQLiteStore(t)
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
				So(rec.Alias, ShouldEqual, "jade")
				So(rec.Firsts, ShouldEqual, 0)
			})
		})

		Convey("When a later merge touches only points", func() {
			seed := store.Batch()
			seed.MergeStanding("jade", repository.StandingMutation{
				Alias:       strPtr("jade"),
				DisplayName: strPtr("Jade"),
				Points:      intPtr(5),
				Firsts:      intPtr(2),
			})
			So(seed.Commit(ctx), ShouldBeNil)

			batch := store.Batch()
			batch.MergeStanding("jade", repository.StandingMutation{PointsDelta: intPtr(3)})
			So(batch.Commit(ctx), ShouldBeNil)

			Convey("Then the other fields survive", func() {
				rec, err := store.Standing(ctx, "jade")
				So(err, ShouldBeNil)
				So(rec.Points, ShouldEqual, 8)
				So(rec.Firsts, ShouldEqual, 2)
				So(rec.DisplayName, ShouldEqual, "Jade")
			})
		})

		Convey("When looking up a missing document", func() {
			_, err := store.Standing(ctx, "ghost")
			So(err, ShouldWrap, repository.ErrNotFound)
		})
	})
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	Convey("Given a sqlite store", t, func() {
		store := newTestSQLiteStore(t)
		ctx := context.Background()

		Convey("When writing all three collections in one batch", func() {
			now := time.Now().Truncate(time.Millisecond)
			batch := store.Batch()
			batch.PutDailyEntry(model.DailyEntry{Alias: "jade", DisplayName: "Jade", Numerator: 7, Denominator: 10, Ratio: 0.7})
			batch.MergeStanding("jade", repository.StandingMutation{Alias: strPtr("jade"), Points: intPtr(12)})
			batch.PutProfile(model.UserProfile{Alias: "jade", DisplayName: "Jade", UpdatedAt: now})
			So(batch.Commit(ctx), ShouldBeNil)

			Convey("Then everything reads back", func() {
				entries, err := store.DailyEntries(ctx)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Ratio, ShouldAlmostEqual, 0.7)

				standings, err := store.Standings(ctx)
				So(err, ShouldBeNil)
				So(standings, ShouldHaveLength, 1)

				profile, err := store.Profile(ctx, "jade")
				So(err, ShouldBeNil)
				So(profile.UpdatedAt.UnixMilli(), ShouldEqual, now.UnixMilli())

				daily, recs := store.Counts(ctx)
				So(daily, ShouldEqual, 1)
				So(recs, ShouldEqual, 1)
			})

			Convey("And when the entry is resubmitted it overwrites", func() {
				batch := store.Batch()
				batch.PutDailyEntry(model.DailyEntry{Alias: "jade", DisplayName: "Jade", Numerator: 9, Denominator: 10, Ratio: 0.9})
				So(batch.Commit(ctx), ShouldBeNil)

				entries, err := store.DailyEntries(ctx)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Numerator, ShouldEqual, 9)
			})
		})

		Convey("When a batch commit touches a watched collection", func() {
			sub, err := store.Watch(ctx, repository.CollectionToday)
			So(err, ShouldBeNil)
			defer sub.Cancel()

			batch := store.Batch()
			batch.PutDailyEntry(model.DailyEntry{Alias: "bob", DisplayName: "Bob", Numerator: 5, Denominator: 10, Ratio: 0.5})
			So(batch.Commit(ctx), ShouldBeNil)

			Convey("Then a committed snapshot is delivered", func() {
				select {
				case snap := <-sub.C:
					So(snap.Collection, ShouldEqual, repository.CollectionToday)
					So(snap.Entries, ShouldHaveLength, 1)
				case <-time.After(time.Second):
					t.Fatal("no snapshot delivered")
				}
			})
		})
	})
}
