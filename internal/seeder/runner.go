package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/pubtrivia/tally/internal/adapters/auth"
	"github.com/pubtrivia/tally/pkg/logger"
)

const tokenTTL = time.Hour

// entryRequest mirrors the wire schema for POST /entries.
type entryRequest struct {
	Alias       string `json:"alias"`
	DisplayName string `json:"displayName"`
	Score       string `json:"score"`
}

// finishDayResponse mirrors the settlement result.
type finishDayResponse struct {
	Awarded     int `json:"awarded"`
	FirstsAdded int `json:"firstsAdded"`
	LastsAdded  int `json:"lastsAdded"`
}

// standingRow is the slice of the standings payload the summary needs.
type standingRow struct {
	ID     string `json:"id"`
	Name   string `json:"displayName"`
	Points int    `json:"points"`
	Firsts int    `json:"firsts"`
	Lasts  int    `json:"lasts"`
}

// Run executes a complete seeding run against a live server.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}

	token, err := auth.SignToken(cfg.TokenSecret, "seeder", "seeder@localhost", "google.com", true, tokenTTL)
	if err != nil {
		return fmt.Errorf("mint admin token: %w", err)
	}
	c := newClient(cfg.BaseURL, token, cfg.Timeout)

	if err := c.getJSON(ctx, "/stats", &map[string]any{}); err != nil {
		return fmt.Errorf("service not reachable: %w", err)
	}

	players := generatePlayers(ctx, cfg, stats)
	faker := gofakeit.New(cfg.RandomSeed + 1)

	for day := 1; day <= cfg.Days; day++ {
		for _, p := range players {
			n, d := scoreFor(faker, p, cfg.Questions)
			req := entryRequest{
				Alias:       p.Alias,
				DisplayName: p.DisplayName,
				Score:       fmt.Sprintf("%d/%d", n, d),
			}
			if err := c.postJSON(ctx, "/entries", req, nil, false); err != nil {
				stats.EntriesFailed++
				log.Warn(ctx, "submission failed", logger.String("alias", p.Alias), logger.Error(err))
				continue
			}
			stats.EntriesSubmitted++
			if cfg.Verbose {
				log.Debug(ctx, "submitted", logger.String("alias", p.Alias), logger.String("score", req.Score))
			}
		}

		var settled finishDayResponse
		if err := c.postJSON(ctx, "/admin/finish-day", nil, &settled, true); err != nil {
			return fmt.Errorf("settle day %d: %w", day, err)
		}
		stats.DaysSettled++
		stats.PointsAwarded += settled.Awarded
		log.Info(ctx, "day settled",
			logger.Int("day", day),
			logger.Int("awarded", settled.Awarded),
			logger.Int("firstsAdded", settled.FirstsAdded),
			logger.Int("lastsAdded", settled.LastsAdded),
		)
	}

	var standings []standingRow
	if err := c.getJSON(ctx, "/standings", &standings); err != nil {
		return fmt.Errorf("fetch standings: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logSummary(ctx, stats, standings)
	return nil
}

// logSummary prints the final run statistics and the podium.
func logSummary(ctx context.Context, stats *Stats, standings []standingRow) {
	log := logger.Get()
	log.Info(ctx, "seeding complete",
		logger.Int("players", stats.PlayersGenerated),
		logger.Int("submitted", stats.EntriesSubmitted),
		logger.Int("failed", stats.EntriesFailed),
		logger.Int("daysSettled", stats.DaysSettled),
		logger.Int("pointsAwarded", stats.PointsAwarded),
		logger.String("duration", stats.Duration.String()),
	)

	podium := standings
	if len(podium) > 3 {
		podium = podium[:3]
	}
	for i, row := range podium {
		log.Info(ctx, "podium",
			logger.Int("place", i+1),
			logger.String("name", row.Name),
			logger.Int("points", row.Points),
			logger.Int("firsts", row.Firsts),
			logger.Int("lasts", row.Lasts),
		)
	}
}
