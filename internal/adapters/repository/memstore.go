package repository

import (
	"context"
	"sync"
	"time"

	"github.com/pubtrivia/tally/internal/domain/model"
	"github.com/pubtrivia/tally/pkg/metrics"
)

// MemStore is the in-memory document store. Reads take a shared lock; a
// batch commit takes the exclusive lock for its whole application, so a
// commit is atomic with respect to every reader and every other commit.
type MemStore struct {
	mu        sync.RWMutex
	today     map[string]model.DailyEntry     // keyed by alias
	standings map[string]model.StandingRecord // keyed by document id
	profiles  map[string]model.UserProfile    // keyed by alias
	closed    bool

	hub *feedHub
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemStore{
		today:     make(map[string]model.DailyEntry),
		standings: make(map[string]model.StandingRecord),
		profiles:  make(map[string]model.UserProfile),
		hub:       newFeedHub(cfg.watchBufferSize),
	}
}

// DailyEntries returns every live daily entry, unordered.
func (s *MemStore) DailyEntries(ctx context.Context) ([]model.DailyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]model.DailyEntry, 0, len(s.today))
	for _, e := range s.today {
		out = append(out, e)
	}
	return out, nil
}

// Standing returns one record by document id.
func (s *MemStore) Standing(ctx context.Context, id string) (model.StandingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.StandingRecord{}, ErrStoreClosed
	}
	rec, ok := s.standings[id]
	if !ok {
		return model.StandingRecord{}, ErrNotFound
	}
	return rec, nil
}

// Standings returns every standing record, unordered.
func (s *MemStore) Standings(ctx context.Context) ([]model.StandingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]model.StandingRecord, 0, len(s.standings))
	for _, rec := range s.standings {
		out = append(out, rec)
	}
	return out, nil
}

// Profile returns the denormalized mirror for an alias.
func (s *MemStore) Profile(ctx context.Context, alias string) (model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.UserProfile{}, ErrStoreClosed
	}
	p, ok := s.profiles[alias]
	if !ok {
		return model.UserProfile{}, ErrNotFound
	}
	return p, nil
}

// Batch starts an empty atomic write batch.
func (s *MemStore) Batch() WriteBatch {
	return &memBatch{store: s}
}

// Watch subscribes to a collection's change feed.
func (s *MemStore) Watch(ctx context.Context, collection string) (*Subscription, error) {
	return s.hub.subscribe(ctx, collection)
}

// Counts reports the number of live daily entries and standing records.
func (s *MemStore) Counts(ctx context.Context) (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.today), len(s.standings)
}

// Close terminates subscriptions and rejects further operations.
func (s *MemStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.close()
	return nil
}

// memBatch queues mutations and applies them in order under one lock.
type memBatch struct {
	store *MemStore
	ops   []func(*MemStore)

	touchedToday     bool
	touchedStandings bool
	touchedProfiles  bool
}

func (b *memBatch) MergeStanding(id string, m StandingMutation) {
	b.touchedStandings = true
	b.ops = append(b.ops, func(s *MemStore) {
		rec := s.standings[id]
		rec.ID = id
		m.Apply(&rec)
		s.standings[id] = rec
	})
}

func (b *memBatch) DeleteStanding(id string) {
	b.touchedStandings = true
	b.ops = append(b.ops, func(s *MemStore) {
		delete(s.standings, id)
	})
}

func (b *memBatch) PutProfile(p model.UserProfile) {
	b.touchedProfiles = true
	b.ops = append(b.ops, func(s *MemStore) {
		s.profiles[p.Alias] = p
	})
}

func (b *memBatch) DeleteProfile(alias string) {
	b.touchedProfiles = true
	b.ops = append(b.ops, func(s *MemStore) {
		delete(s.profiles, alias)
	})
}

func (b *memBatch) PutDailyEntry(e model.DailyEntry) {
	b.touchedToday = true
	b.ops = append(b.ops, func(s *MemStore) {
		s.today[e.Alias] = e
	})
}

func (b *memBatch) DeleteDailyEntry(alias string) {
	b.touchedToday = true
	b.ops = append(b.ops, func(s *MemStore) {
		delete(s.today, alias)
	})
}

// Commit applies the queued mutations atomically and publishes snapshots of
// the touched collections.
func (b *memBatch) Commit(ctx context.Context) error {
	start := time.Now()

	b.store.mu.Lock()
	if b.store.closed {
		b.store.mu.Unlock()
		metrics.RecordStoreError()
		return ErrStoreClosed
	}
	for _, op := range b.ops {
		op(b.store)
	}
	snaps := b.snapshotsLocked()
	daily, standings := len(b.store.today), len(b.store.standings)
	b.store.mu.Unlock()

	for _, snap := range snaps {
		b.store.hub.publish(snap)
	}

	metrics.RecordStoreCommit(time.Since(start).Seconds())
	metrics.UpdateDailyEntries(daily)
	metrics.UpdateStandingRecords(standings)
	return nil
}

// snapshotsLocked captures the touched collections while the write lock is
// still held, so every published snapshot is a committed state.
func (b *memBatch) snapshotsLocked() []Snapshot {
	var snaps []Snapshot
	if b.touchedToday {
		entries := make([]model.DailyEntry, 0, len(b.store.today))
		for _, e := range b.store.today {
			entries = append(entries, e)
		}
		snaps = append(snaps, Snapshot{Collection: CollectionToday, Entries: entries})
	}
	if b.touchedStandings {
		recs := make([]model.StandingRecord, 0, len(b.store.standings))
		for _, rec := range b.store.standings {
			recs = append(recs, rec)
		}
		snaps = append(snaps, Snapshot{Collection: CollectionStandings, Standings: recs})
	}
	if b.touchedProfiles {
		profiles := make([]model.UserProfile, 0, len(b.store.profiles))
		for _, p := range b.store.profiles {
			profiles = append(profiles, p)
		}
		snaps = append(snaps, Snapshot{Collection: CollectionProfiles, Profiles: profiles})
	}
	return snaps
}
