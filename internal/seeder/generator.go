package seeder

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/pubtrivia/tally/internal/domain/identity"
	"github.com/pubtrivia/tally/pkg/logger"
)

// generatePlayers builds the roster with distinct aliases. A fixed
// RandomSeed reproduces the same roster run to run.
func generatePlayers(ctx context.Context, cfg *Config, stats *Stats) []Player {
	faker := gofakeit.New(cfg.RandomSeed)

	players := make([]Player, 0, cfg.Players)
	seen := make(map[string]struct{}, cfg.Players)
	for len(players) < cfg.Players {
		name := faker.FirstName() + " " + faker.LastName()
		alias := identity.NormalizeAlias(strings.ReplaceAll(name, " ", "."))
		if _, dup := seen[alias]; dup {
			alias = fmt.Sprintf("%s.%d", alias, len(players))
		}
		seen[alias] = struct{}{}
		players = append(players, Player{
			Alias:       alias,
			DisplayName: name,
			Skill:       faker.Float64Range(0.1, 1.0),
		})
	}

	stats.PlayersGenerated = len(players)
	logger.Get().Info(ctx, "generated players", logger.Int("players", len(players)))
	return players
}

// scoreFor rolls one day's score for a player: skill sets the center, the
// roll spreads around it.
func scoreFor(faker *gofakeit.Faker, p Player, questions int) (int, int) {
	center := p.Skill * float64(questions)
	roll := faker.Float64Range(-2.5, 2.5)
	n := int(center + roll)
	if n < 0 {
		n = 0
	}
	if n > questions {
		n = questions
	}
	return n, questions
}
