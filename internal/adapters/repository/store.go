// Package repository defines the document store contract and errors.
package repository

import (
	"context"

	"github.com/pubtrivia/tally/internal/domain/model"
)

// Collection names, mirroring the logical tables of the scoreboard.
const (
	CollectionToday     = "today"
	CollectionStandings = "points"
	CollectionProfiles  = "users"
)

// Snapshot is the state of one collection delivered to change-feed
// subscribers after every commit that touched it.
type Snapshot struct {
	Collection string
	Entries    []model.DailyEntry     // populated for CollectionToday
	Standings  []model.StandingRecord // populated for CollectionStandings
	Profiles   []model.UserProfile    // populated for CollectionProfiles
}

// StandingMutation is a merge write against one standing record: nil fields
// are left untouched, absolute fields overwrite, delta fields increment.
// Applying a mutation to a missing record starts from the zero record, so
// merge semantics create on first write.
type StandingMutation struct {
	Alias       *string
	DisplayName *string
	Points      *int
	PointsDelta *int
	Firsts      *int
	FirstsDelta *int
	Lasts       *int
	LastsDelta  *int
}

// Apply folds the mutation into rec. Shared by every backend so merge
// semantics cannot drift between them.
func (m StandingMutation) Apply(rec *model.StandingRecord) {
	if m.Alias != nil {
		rec.Alias = *m.Alias
	}
	if m.DisplayName != nil {
		rec.DisplayName = *m.DisplayName
	}
	if m.Points != nil {
		rec.Points = *m.Points
	}
	if m.PointsDelta != nil {
		rec.Points += *m.PointsDelta
	}
	if m.Firsts != nil {
		rec.Firsts = *m.Firsts
	}
	if m.FirstsDelta != nil {
		rec.Firsts += *m.FirstsDelta
	}
	if m.Lasts != nil {
		rec.Lasts = *m.Lasts
	}
	if m.LastsDelta != nil {
		rec.Lasts += *m.LastsDelta
	}
	// Counters never go negative, whatever the caller asked for.
	if rec.Points < 0 {
		rec.Points = 0
	}
	if rec.Firsts < 0 {
		rec.Firsts = 0
	}
	if rec.Lasts < 0 {
		rec.Lasts = 0
	}
}

// IsZero reports whether the mutation touches nothing.
func (m StandingMutation) IsZero() bool {
	return m.Alias == nil && m.DisplayName == nil &&
		m.Points == nil && m.PointsDelta == nil &&
		m.Firsts == nil && m.FirstsDelta == nil &&
		m.Lasts == nil && m.LastsDelta == nil
}

// WriteBatch accumulates mutations that commit together or not at all.
// Operations are applied in the order they were queued.
type WriteBatch interface {
	MergeStanding(id string, m StandingMutation)
	DeleteStanding(id string)
	PutProfile(p model.UserProfile)
	DeleteProfile(alias string)
	PutDailyEntry(e model.DailyEntry)
	DeleteDailyEntry(alias string)

	// Commit applies every queued mutation atomically and notifies
	// change-feed subscribers of the touched collections.
	Commit(ctx context.Context) error
}

// Store provides read/write access to the scoreboard's three collections.
type Store interface {
	// DailyEntries returns every live daily entry, unordered.
	DailyEntries(ctx context.Context) ([]model.DailyEntry, error)

	// Standing returns one record by document id.
	// Returns ErrNotFound when the id is unknown.
	Standing(ctx context.Context, id string) (model.StandingRecord, error)

	// Standings returns every standing record, unordered.
	Standings(ctx context.Context) ([]model.StandingRecord, error)

	// Profile returns the denormalized mirror for an alias.
	// Returns ErrNotFound when absent.
	Profile(ctx context.Context, alias string) (model.UserProfile, error)

	// Batch starts an empty atomic write batch.
	Batch() WriteBatch

	// Watch subscribes to a collection's change feed. The returned
	// subscription delivers a snapshot after every commit touching the
	// collection until Cancel is called or ctx ends.
	Watch(ctx context.Context, collection string) (*Subscription, error)

	// Counts reports the number of live daily entries and standing records.
	Counts(ctx context.Context) (daily, standings int)

	// Close releases backend resources and terminates subscriptions.
	Close() error
}
