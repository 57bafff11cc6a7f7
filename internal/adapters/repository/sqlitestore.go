package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/pubtrivia/tally/internal/domain/model"
	"github.com/pubtrivia/tally/pkg/metrics"
)

// SQLiteStore is the durable document store. Every batch commits inside one
// SQL transaction, which also closes the settlement read window: mutations
// queued against rows read earlier see the transaction's serialized view.
type SQLiteStore struct {
	db  *sql.DB
	hub *feedHub
}

const sqliteSchema = `
-- Daily entries, one live row per alias
CREATE TABLE IF NOT EXISTS today (
    alias        TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    numerator    INTEGER NOT NULL,
    denominator  INTEGER NOT NULL CHECK (denominator > 0),
    ratio        REAL NOT NULL
);

-- Cumulative standings, keyed by document id (normally the alias)
CREATE TABLE IF NOT EXISTS points (
    id           TEXT PRIMARY KEY,
    alias        TEXT NOT NULL DEFAULT '',
    display_name TEXT NOT NULL DEFAULT '',
    points       INTEGER NOT NULL DEFAULT 0,
    firsts       INTEGER NOT NULL DEFAULT 0,
    lasts        INTEGER NOT NULL DEFAULT 0
);

-- Denormalized alias/display-name mirror
CREATE TABLE IF NOT EXISTS users (
    alias        TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    updated_at   INTEGER NOT NULL DEFAULT 0
);
`

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent batches.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, hub: newFeedHub(cfg.watchBufferSize)}, nil
}

// DailyEntries returns every live daily entry, unordered.
func (s *SQLiteStore) DailyEntries(ctx context.Context) ([]model.DailyEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT alias, display_name, numerator, denominator, ratio FROM today`)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("query daily entries: %w", err)
	}
	defer rows.Close()
	return scanDailyEntries(rows)
}

func scanDailyEntries(rows *sql.Rows) ([]model.DailyEntry, error) {
	var out []model.DailyEntry
	for rows.Next() {
		var e model.DailyEntry
		if err := rows.Scan(&e.Alias, &e.DisplayName, &e.Numerator, &e.Denominator, &e.Ratio); err != nil {
			return nil, fmt.Errorf("scan daily entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily entries: %w", err)
	}
	return out, nil
}

// Standing returns one record by document id.
func (s *SQLiteStore) Standing(ctx context.Context, id string) (model.StandingRecord, error) {
	var rec model.StandingRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, alias, display_name, points, firsts, lasts FROM points WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Alias, &rec.DisplayName, &rec.Points, &rec.Firsts, &rec.Lasts)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StandingRecord{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError()
		return model.StandingRecord{}, fmt.Errorf("query standing %q: %w", id, err)
	}
	return rec, nil
}

// Standings returns every standing record, unordered.
func (s *SQLiteStore) Standings(ctx context.Context) ([]model.StandingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, alias, display_name, points, firsts, lasts FROM points`)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()
	return scanStandings(rows)
}

func scanStandings(rows *sql.Rows) ([]model.StandingRecord, error) {
	var out []model.StandingRecord
	for rows.Next() {
		var rec model.StandingRecord
		if err := rows.Scan(&rec.ID, &rec.Alias, &rec.DisplayName, &rec.Points, &rec.Firsts, &rec.Lasts); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate standings: %w", err)
	}
	return out, nil
}

// Profile returns the denormalized mirror for an alias.
func (s *SQLiteStore) Profile(ctx context.Context, alias string) (model.UserProfile, error) {
	var p model.UserProfile
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT alias, display_name, updated_at FROM users WHERE alias = ?`, alias).
		Scan(&p.Alias, &p.DisplayName, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError()
		return model.UserProfile{}, fmt.Errorf("query profile %q: %w", alias, err)
	}
	p.UpdatedAt = time.UnixMilli(updatedAt)
	return p, nil
}

// Batch starts an empty atomic write batch.
func (s *SQLiteStore) Batch() WriteBatch {
	return &sqliteBatch{store: s}
}

// Watch subscribes to a collection's change feed.
func (s *SQLiteStore) Watch(ctx context.Context, collection string) (*Subscription, error) {
	return s.hub.subscribe(ctx, collection)
}

// Counts reports the number of live daily entries and standing records.
func (s *SQLiteStore) Counts(ctx context.Context) (int, int) {
	var daily, standings int
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM today`).Scan(&daily)
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points`).Scan(&standings)
	return daily, standings
}

// Close terminates subscriptions and closes the database.
func (s *SQLiteStore) Close() error {
	s.hub.close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite store: %w", err)
	}
	return nil
}

// sqliteBatch queues mutations and applies them inside one transaction.
type sqliteBatch struct {
	store *SQLiteStore
	ops   []func(ctx context.Context, tx *sql.Tx) error

	touchedToday     bool
	touchedStandings bool
	touchedProfiles  bool
}

func (b *sqliteBatch) MergeStanding(id string, m StandingMutation) {
	b.touchedStandings = true
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx) error {
		var rec model.StandingRecord
		err := tx.QueryRowContext(ctx,
			`SELECT id, alias, display_name, points, firsts, lasts FROM points WHERE id = ?`, id).
			Scan(&rec.ID, &rec.Alias, &rec.DisplayName, &rec.Points, &rec.Firsts, &rec.Lasts)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read standing %q: %w", id, err)
		}
		rec.ID = id
		m.Apply(&rec)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO points (id, alias, display_name, points, firsts, lasts)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				alias = excluded.alias,
				display_name = excluded.display_name,
				points = excluded.points,
				firsts = excluded.firsts,
				lasts = excluded.lasts`,
			rec.ID, rec.Alias, rec.DisplayName, rec.Points, rec.Firsts, rec.Lasts)
		if err != nil {
			return fmt.Errorf("merge standing %q: %w", id, err)
		}
		return nil
	})
}

func (b *sqliteBatch) DeleteStanding(id string) {
	b.touchedStandings = true
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete standing %q: %w", id, err)
		}
		return nil
	})
}

func (b *sqliteBatch) PutProfile(p model.UserProfile) {
	b.touchedProfiles = true
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (alias, display_name, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(alias) DO UPDATE SET
				display_name = excluded.display_name,
				updated_at = excluded.updated_at`,
			p.Alias, p.DisplayName, p.UpdatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("put profile %q: %w", p.Alias, err)
		}
		return nil
	})
}

func (b *sqliteBatch) DeleteProfile(alias string) {
	b.touchedProfiles = true
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE alias = ?`, alias); err != nil {
			return fmt.Errorf("delete profile %q: %w", alias, err)
		}
		return nil
	})
}

func (b *sqliteBatch) PutDailyEntry(e model.DailyEntry) {
	b.touchedToday = true
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO today (alias, display_name, numerator, denominator, ratio)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(alias) DO UPDATE SET
				display_name = excluded.display_name,
				numerator = excluded.numerator,
				denominator = excluded.denominator,
				ratio = excluded.ratio`,
			e.Alias, e.DisplayName, e.Numerator, e.Denominator, e.Ratio)
		if err != nil {
			return fmt.Errorf("put daily entry %q: %w", e.Alias, err)
		}
		return nil
	})
}

func (b *sqliteBatch) DeleteDailyEntry(alias string) {
	b.touchedToday = true
	b.ops = append(b.ops, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM today WHERE alias = ?`, alias); err != nil {
			return fmt.Errorf("delete daily entry %q: %w", alias, err)
		}
		return nil
	})
}

// Commit applies the queued mutations in one transaction and publishes
// snapshots of the touched collections.
func (b *sqliteBatch) Commit(ctx context.Context) error {
	start := time.Now()

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("begin batch: %w", err)
	}
	for _, op := range b.ops {
		if err := op(ctx, tx); err != nil {
			_ = tx.Rollback()
			metrics.RecordStoreError()
			return err
		}
	}

	snaps, err := b.snapshotsTx(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		metrics.RecordStoreError()
		return err
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("commit batch: %w", err)
	}

	for _, snap := range snaps {
		b.store.hub.publish(snap)
	}

	daily, standings := b.store.Counts(ctx)
	metrics.RecordStoreCommit(time.Since(start).Seconds())
	metrics.UpdateDailyEntries(daily)
	metrics.UpdateStandingRecords(standings)
	return nil
}

// snapshotsTx reads the touched collections through the transaction so the
// published state is exactly what committed.
func (b *sqliteBatch) snapshotsTx(ctx context.Context, tx *sql.Tx) ([]Snapshot, error) {
	var snaps []Snapshot
	if b.touchedToday {
		rows, err := tx.QueryContext(ctx,
			`SELECT alias, display_name, numerator, denominator, ratio FROM today`)
		if err != nil {
			return nil, fmt.Errorf("snapshot daily entries: %w", err)
		}
		entries, err := scanDailyEntries(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, Snapshot{Collection: CollectionToday, Entries: entries})
	}
	if b.touchedStandings {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, alias, display_name, points, firsts, lasts FROM points`)
		if err != nil {
			return nil, fmt.Errorf("snapshot standings: %w", err)
		}
		recs, err := scanStandings(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, Snapshot{Collection: CollectionStandings, Standings: recs})
	}
	if b.touchedProfiles {
		rows, err := tx.QueryContext(ctx, `SELECT alias, display_name, updated_at FROM users`)
		if err != nil {
			return nil, fmt.Errorf("snapshot profiles: %w", err)
		}
		var profiles []model.UserProfile
		for rows.Next() {
			var p model.UserProfile
			var updatedAt int64
			if err := rows.Scan(&p.Alias, &p.DisplayName, &updatedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan profile: %w", err)
			}
			p.UpdatedAt = time.UnixMilli(updatedAt)
			profiles = append(profiles, p)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate profiles: %w", err)
		}
		snaps = append(snaps, Snapshot{Collection: CollectionProfiles, Profiles: profiles})
	}
	return snaps, nil
}
