// Package service provides the scoring engine behind the HTTP API: daily
// submissions, rank-based settlement, and standings maintenance.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pubtrivia/tally/internal/adapters/auth"
	"github.com/pubtrivia/tally/internal/adapters/repository"
	"github.com/pubtrivia/tally/internal/domain/bracket"
	"github.com/pubtrivia/tally/internal/domain/identity"
	"github.com/pubtrivia/tally/internal/domain/model"
	"github.com/pubtrivia/tally/internal/domain/ranking"
	"github.com/pubtrivia/tally/pkg/logger"
	"github.com/pubtrivia/tally/pkg/metrics"
)

// Mutation modes shared by AdjustPoints and AdjustFinishes.
const (
	ModeSet = "set"
	ModeInc = "inc"
)

// Service implements the scoreboard operations on top of the document store.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	granter *auth.Granter

	bracketSize int
	started     bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects the document store backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithGranter injects the admin-capability granter.
func WithGranter(granter *auth.Granter) Option {
	return func(s *Service) {
		if granter != nil {
			s.granter = granter
		}
	}
}

// WithBracketSize sets the seeded field size of the bracket projection.
func WithBracketSize(size int) Option {
	return func(s *Service) {
		if size > 1 {
			s.bracketSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		bracketSize: 32,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes defaulted components. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.granter == nil {
		s.granter = auth.NewGranter(nil, "google.com")
	}
	s.started = true
	s.logger.Info(ctx, "scoreboard service started")
	return nil
}

// Stop releases the store and terminates change feeds.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "scoreboard service stopped")
}

// requireAdmin fails fast before any read or mutation is attempted.
func (s *Service) requireAdmin(ctx context.Context, caller auth.Identity) error {
	if caller.Subject == "" {
		return ErrUnauthenticated
	}
	if !s.granter.IsAdmin(ctx, caller) {
		return fmt.Errorf("%w: admins only", ErrPermissionDenied)
	}
	return nil
}

// SubmitRequest is a participant's daily submission.
type SubmitRequest struct {
	Alias       string
	DisplayName string
	Score       string // textual "N/D" fraction
}

// SubmitEntry upserts the caller's daily entry. Open to any caller; a
// resubmission under the same alias overwrites the prior entry. The
// display name is title-cased before it is stored.
func (s *Service) SubmitEntry(ctx context.Context, req SubmitRequest) error {
	alias := identity.NormalizeAlias(req.Alias)
	name := identity.TitleCase(strings.TrimSpace(req.DisplayName))
	if alias == "" || name == "" {
		metrics.RecordSubmissionRejected()
		return fmt.Errorf("%w: alias and display name required", ErrInvalidArgument)
	}
	frac, err := model.ParseFraction(req.Score)
	if err != nil {
		metrics.RecordSubmissionRejected()
		return fmt.Errorf("%w: score must be \"N/D\" with D > 0", ErrInvalidArgument)
	}

	batch := s.store.Batch()
	batch.PutDailyEntry(model.DailyEntry{
		Alias:       alias,
		DisplayName: name,
		Numerator:   frac.Numerator,
		Denominator: frac.Denominator,
		Ratio:       frac.Ratio(),
	})
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("submit entry: %w", err)
	}

	metrics.RecordSubmission()
	s.logger.Debug(ctx, "entry submitted",
		logger.String("alias", alias),
		logger.Float64("ratio", frac.Ratio()),
	)
	return nil
}

// FinishDayResult reports what a settlement did.
type FinishDayResult struct {
	Awarded     int `json:"awarded"`
	FirstsAdded int `json:"firstsAdded"`
	LastsAdded  int `json:"lastsAdded"`
}

// FinishDay settles the current day: ranks all daily entries, credits
// points and first/last finishes to cumulative standings, refreshes the
// profile mirrors, and clears the day — all in one atomic batch.
//
// An empty day is a defined zero-effect success. Submissions racing the
// read snapshot either survive into the next day or miss this settlement;
// the window is documented, not silently fixed.
func (s *Service) FinishDay(ctx context.Context, caller auth.Identity) (FinishDayResult, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return FinishDayResult{}, err
	}

	start := time.Now()
	entries, err := s.store.DailyEntries(ctx)
	if err != nil {
		return FinishDayResult{}, fmt.Errorf("finish day: %w", err)
	}
	if len(entries) == 0 {
		return FinishDayResult{}, nil
	}

	res := ranking.Compute(entries)
	batch := s.store.Batch()
	now := time.Now()
	awarded := 0
	one := 1

	for i := range res.Ranked {
		r := res.Ranked[i]
		alias := identity.NormalizeAlias(r.Entry.Alias)
		if alias == "" {
			// Malformed row: keeps its rank slot but never touches
			// persistent state.
			continue
		}
		name := strings.TrimSpace(r.Entry.DisplayName)
		if name == "" {
			name = alias
		}

		m := repository.StandingMutation{
			Alias:       &alias,
			DisplayName: &name,
			PointsDelta: &r.Points,
		}
		if r.First {
			m.FirstsDelta = &one
		}
		if r.Last {
			m.LastsDelta = &one
		}
		batch.MergeStanding(alias, m)
		batch.PutProfile(model.UserProfile{Alias: alias, DisplayName: name, UpdatedAt: now})
		if r.Points > 0 {
			awarded++
		}
	}
	for _, e := range entries {
		batch.DeleteDailyEntry(e.Alias)
	}

	if err := batch.Commit(ctx); err != nil {
		return FinishDayResult{}, fmt.Errorf("finish day: %w", err)
	}

	result := FinishDayResult{
		Awarded:     awarded,
		FirstsAdded: res.FirstsAdded,
		LastsAdded:  res.LastsAdded,
	}
	metrics.RecordSettlement(result.Awarded, time.Since(start).Seconds())
	s.logger.Info(ctx, "day settled",
		logger.Int("entries", len(entries)),
		logger.Int("awarded", result.Awarded),
		logger.Int("firstsAdded", result.FirstsAdded),
		logger.Int("lastsAdded", result.LastsAdded),
	)
	return result, nil
}

// ResetResult reports how many records a reset touched.
type ResetResult struct {
	Reset int `json:"reset"`
}

// ResetAllPoints zeroes points on every standing record. Firsts, lasts and
// identity fields are untouched; no record is deleted.
func (s *Service) ResetAllPoints(ctx context.Context, caller auth.Identity) (ResetResult, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return ResetResult{}, err
	}

	records, err := s.store.Standings(ctx)
	if err != nil {
		return ResetResult{}, fmt.Errorf("reset points: %w", err)
	}

	zero := 0
	batch := s.store.Batch()
	for _, rec := range records {
		batch.MergeStanding(rec.ID, repository.StandingMutation{Points: &zero})
	}
	if err := batch.Commit(ctx); err != nil {
		return ResetResult{}, fmt.Errorf("reset points: %w", err)
	}

	metrics.RecordAdminOp("reset_all_points")
	s.logger.Info(ctx, "all points reset", logger.Int("records", len(records)))
	return ResetResult{Reset: len(records)}, nil
}

// AdjustPointsRequest edits one record's points.
type AdjustPointsRequest struct {
	DocID       string
	Mode        string // ModeSet assigns, ModeInc adds; empty defaults to set
	Value       int
	DisplayName string // optional, updated on the same write
	Alias       string // optional, updated on the same write
}

// AdjustPoints sets or increments a record's points, creating the record
// from a zero base when incrementing a missing one.
func (s *Service) AdjustPoints(ctx context.Context, caller auth.Identity, req AdjustPointsRequest) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}

	docID := strings.TrimSpace(req.DocID)
	if docID == "" {
		return fmt.Errorf("%w: docId required", ErrInvalidArgument)
	}
	mode, err := normalizeMode(req.Mode)
	if err != nil {
		return err
	}

	m := repository.StandingMutation{}
	if mode == ModeSet {
		m.Points = &req.Value
	} else {
		m.PointsDelta = &req.Value
	}
	name := strings.TrimSpace(req.DisplayName)
	if name != "" {
		m.DisplayName = &name
	}
	alias := identity.NormalizeAlias(req.Alias)
	if alias != "" {
		m.Alias = &alias
	}

	batch := s.store.Batch()
	batch.MergeStanding(docID, m)
	if alias != "" {
		profileName := name
		if profileName == "" {
			if rec, err := s.store.Standing(ctx, docID); err == nil {
				profileName = rec.DisplayName
			}
		}
		batch.PutProfile(model.UserProfile{Alias: alias, DisplayName: profileName, UpdatedAt: time.Now()})
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("adjust points: %w", err)
	}

	metrics.RecordAdminOp("adjust_points")
	return nil
}

// AdjustFinishesRequest edits one record's first/last counters. Each counter
// is optional and independently settable or incrementable.
type AdjustFinishesRequest struct {
	DocID       string
	Mode        string // ModeSet or ModeInc; empty defaults to set
	Firsts      *int
	Lasts       *int
	DisplayName string // optional
}

// AdjustFinishes mirrors AdjustPoints for the finish counters. Set mode
// clamps each provided value to >= 0; at least one counter must be given.
func (s *Service) AdjustFinishes(ctx context.Context, caller auth.Identity, req AdjustFinishesRequest) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}

	docID := strings.TrimSpace(req.DocID)
	if docID == "" {
		return fmt.Errorf("%w: docId required", ErrInvalidArgument)
	}
	mode, err := normalizeMode(req.Mode)
	if err != nil {
		return err
	}
	if req.Firsts == nil && req.Lasts == nil {
		return fmt.Errorf("%w: provide firsts or lasts", ErrInvalidArgument)
	}

	m := repository.StandingMutation{}
	if req.Firsts != nil {
		v := *req.Firsts
		if mode == ModeSet {
			if v < 0 {
				v = 0
			}
			m.Firsts = &v
		} else {
			m.FirstsDelta = &v
		}
	}
	if req.Lasts != nil {
		v := *req.Lasts
		if mode == ModeSet {
			if v < 0 {
				v = 0
			}
			m.Lasts = &v
		} else {
			m.LastsDelta = &v
		}
	}
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		m.DisplayName = &name
	}

	batch := s.store.Batch()
	batch.MergeStanding(docID, m)
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("adjust finishes: %w", err)
	}

	metrics.RecordAdminOp("adjust_finishes")
	return nil
}

// SetAliasFields rewrites a record's identity-presentation fields without
// touching counters.
func (s *Service) SetAliasFields(ctx context.Context, caller auth.Identity, docID, alias, displayName string) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}

	docID = strings.TrimSpace(docID)
	alias = identity.NormalizeAlias(alias)
	if docID == "" || alias == "" {
		return fmt.Errorf("%w: docId and alias required", ErrInvalidArgument)
	}
	name := strings.TrimSpace(displayName)

	batch := s.store.Batch()
	batch.MergeStanding(docID, repository.StandingMutation{Alias: &alias, DisplayName: &name})
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("set alias fields: %w", err)
	}

	metrics.RecordAdminOp("set_alias_fields")
	return nil
}

// DeleteResult reports the outcome of a record deletion.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	Alias   string `json:"alias,omitempty"`
}

// DeleteRecord removes a standing record and, when it carries an alias, the
// matching profile mirror. A missing id is a found=false result, not an
// error.
func (s *Service) DeleteRecord(ctx context.Context, caller auth.Identity, docID string) (DeleteResult, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return DeleteResult{}, err
	}

	docID = strings.TrimSpace(docID)
	if docID == "" {
		return DeleteResult{}, fmt.Errorf("%w: docId required", ErrInvalidArgument)
	}

	rec, err := s.store.Standing(ctx, docID)
	if err != nil {
		if errorsIsNotFound(err) {
			return DeleteResult{Deleted: false}, nil
		}
		return DeleteResult{}, fmt.Errorf("delete record: %w", err)
	}

	batch := s.store.Batch()
	batch.DeleteStanding(docID)
	alias := identity.NormalizeAlias(rec.Alias)
	if alias != "" {
		batch.DeleteProfile(alias)
	}
	if err := batch.Commit(ctx); err != nil {
		return DeleteResult{}, fmt.Errorf("delete record: %w", err)
	}

	metrics.RecordAdminOp("delete_record")
	return DeleteResult{Deleted: true, Alias: alias}, nil
}

// MergeResult reports an alias merge.
type MergeResult struct {
	MovedFrom string `json:"movedFrom"`
	To        string `json:"to"`
}

// MergeAlias combines two identities: the source record's points, firsts and
// lasts are summed into the destination, the source is deleted, and the
// profile mirror is refreshed. A missing source still ensures the
// destination exists. When both ids normalize to the same record the
// counters are left alone and only the display name is refreshed.
func (s *Service) MergeAlias(ctx context.Context, caller auth.Identity, oldID, newAlias, newDisplayName string) (MergeResult, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return MergeResult{}, err
	}

	oldID = identity.NormalizeAlias(oldID)
	newAlias = identity.NormalizeAlias(newAlias)
	newDisplayName = strings.TrimSpace(newDisplayName)
	if oldID == "" || newAlias == "" {
		return MergeResult{}, fmt.Errorf("%w: oldId and newAlias required", ErrInvalidArgument)
	}

	src, srcErr := s.store.Standing(ctx, oldID)
	if srcErr != nil && !errorsIsNotFound(srcErr) {
		return MergeResult{}, fmt.Errorf("merge alias: %w", srcErr)
	}
	dst, dstErr := s.store.Standing(ctx, newAlias)
	if dstErr != nil && !errorsIsNotFound(dstErr) {
		return MergeResult{}, fmt.Errorf("merge alias: %w", dstErr)
	}
	srcExists := srcErr == nil
	dstExists := dstErr == nil

	name := newDisplayName
	if name == "" && dstExists {
		name = dst.DisplayName
	}
	if name == "" && srcExists {
		name = src.DisplayName
	}
	if name == "" {
		name = newAlias
	}

	batch := s.store.Batch()
	m := repository.StandingMutation{Alias: &newAlias, DisplayName: &name}
	if srcExists && oldID != newAlias {
		// Summing src into dst only makes sense across two distinct
		// records; a self-merge would double every counter.
		points := src.Points + dst.Points
		firsts := src.Firsts + dst.Firsts
		lasts := src.Lasts + dst.Lasts
		m.Points = &points
		m.Firsts = &firsts
		m.Lasts = &lasts
	}
	batch.MergeStanding(newAlias, m)
	if srcExists && oldID != newAlias {
		batch.DeleteStanding(oldID)
	}

	profileName := newDisplayName
	if profileName == "" {
		profileName = newAlias
	}
	batch.PutProfile(model.UserProfile{Alias: newAlias, DisplayName: profileName, UpdatedAt: time.Now()})

	if err := batch.Commit(ctx); err != nil {
		return MergeResult{}, fmt.Errorf("merge alias: %w", err)
	}

	metrics.RecordAdminOp("merge_alias")
	s.logger.Info(ctx, "alias merged",
		logger.String("from", oldID),
		logger.String("to", newAlias),
	)
	return MergeResult{MovedFrom: oldID, To: newAlias}, nil
}

// GrantAdmin performs the one-time admin grant for an authenticated,
// allow-listed caller using the required identity provider.
func (s *Service) GrantAdmin(ctx context.Context, caller auth.Identity) error {
	if caller.Subject == "" {
		return fmt.Errorf("%w: sign in first", ErrUnauthenticated)
	}
	if err := s.granter.Grant(ctx, caller); err != nil {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	s.logger.Info(ctx, "admin granted", logger.String("subject", caller.Subject))
	return nil
}

// Today returns the current daily entries in display order.
func (s *Service) Today(ctx context.Context) ([]model.DailyEntry, error) {
	entries, err := s.store.DailyEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("today: %w", err)
	}
	return ranking.Sorted(entries), nil
}

// Standings returns cumulative records ordered by points desc, name asc.
func (s *Service) Standings(ctx context.Context) ([]model.StandingRecord, error) {
	records, err := s.store.Standings(ctx)
	if err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Points != records[j].Points {
			return records[i].Points > records[j].Points
		}
		return resolvedNameLower(records[i]) < resolvedNameLower(records[j])
	})
	return records, nil
}

// HallOfFame returns records with at least one first-place finish, most
// firsts first.
func (s *Service) HallOfFame(ctx context.Context) ([]model.StandingRecord, error) {
	return s.hall(ctx, func(rec model.StandingRecord) int { return rec.Firsts })
}

// HallOfShame returns records with at least one last-place finish, most
// lasts first.
func (s *Service) HallOfShame(ctx context.Context) ([]model.StandingRecord, error) {
	return s.hall(ctx, func(rec model.StandingRecord) int { return rec.Lasts })
}

func (s *Service) hall(ctx context.Context, key func(model.StandingRecord) int) ([]model.StandingRecord, error) {
	records, err := s.store.Standings(ctx)
	if err != nil {
		return nil, fmt.Errorf("hall: %w", err)
	}
	out := records[:0]
	for _, rec := range records {
		if key(rec) > 0 {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if key(out[i]) != key(out[j]) {
			return key(out[i]) > key(out[j])
		}
		return resolvedNameLower(out[i]) < resolvedNameLower(out[j])
	})
	return out, nil
}

// Bracket projects the current standings onto the playoff bracket.
func (s *Service) Bracket(ctx context.Context) (bracket.Bracket, error) {
	records, err := s.store.Standings(ctx)
	if err != nil {
		return bracket.Bracket{}, fmt.Errorf("bracket: %w", err)
	}
	b, err := bracket.Project(records, s.bracketSize)
	if err != nil {
		return bracket.Bracket{}, fmt.Errorf("bracket: %w", err)
	}
	return b, nil
}

// Watch subscribes to a collection's change feed.
func (s *Service) Watch(ctx context.Context, collection string) (*repository.Subscription, error) {
	sub, err := s.store.Watch(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	return sub, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"bracketSize": s.bracketSize,
	}
	if s.started {
		daily, standings := s.store.Counts(context.Background())
		stats["dailyEntries"] = daily
		stats["standingRecords"] = standings
		metrics.UpdateDailyEntries(daily)
		metrics.UpdateStandingRecords(standings)
	}
	return stats
}

func normalizeMode(mode string) (string, error) {
	switch strings.TrimSpace(mode) {
	case "", ModeSet:
		return ModeSet, nil
	case ModeInc:
		return ModeInc, nil
	default:
		return "", fmt.Errorf("%w: mode must be %q or %q", ErrInvalidArgument, ModeSet, ModeInc)
	}
}

func resolvedNameLower(rec model.StandingRecord) string {
	return strings.ToLower(identity.ResolveDisplayName(rec.Alias, rec.DisplayName))
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
