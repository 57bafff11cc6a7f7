package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pubtrivia/tally/internal/seeder"
	"github.com/pubtrivia/tally/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers   = 12
	defaultDays      = 5
	defaultQuestions = 10
	defaultTimeout   = 10 * time.Second
	runTimeout       = 10 * time.Minute
)

func main() {
	_ = godotenv.Load()

	var (
		baseURL   = flag.String("url", "http://localhost:9090", "Base URL of the service")
		players   = flag.Int("players", defaultPlayers, "Number of generated players")
		days      = flag.Int("days", defaultDays, "Number of days to submit and settle")
		questions = flag.Int("questions", defaultQuestions, "Questions per day")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		secret    = flag.String("secret", os.Getenv("TALLY_TOKEN_SECRET"), "Token secret shared with the server")
		seed      = flag.Uint64("seed", 0, "Random seed for reproducible rosters (default random)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeder.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	if *secret == "" {
		os.Stderr.WriteString("a token secret is required (-secret or TALLY_TOKEN_SECRET)\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg := &seeder.Config{
		BaseURL:     *baseURL,
		Players:     *players,
		Days:        *days,
		Questions:   *questions,
		Timeout:     *timeout,
		TokenSecret: *secret,
		RandomSeed:  *seed,
		Verbose:     *verbose,
	}

	if err := seeder.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
