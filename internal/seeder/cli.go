package seeder

import "os"

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`Tally Seeder
============

Drives a running tally server with generated players: daily score
submissions followed by admin settlements.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9090")
  -players int
        Number of generated players (default 12)
  -days int
        Number of days to submit and settle (default 5)
  -questions int
        Questions per day (default 10)
  -timeout duration
        HTTP request timeout (default 10s)
  -secret string
        Token secret shared with the server (or TALLY_TOKEN_SECRET)
  -seed uint
        Random seed for reproducible rosters (default random)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed a local server for a five-day season
  go run ./cmd/seed -secret dev-secret

  # A bigger, reproducible season
  go run ./cmd/seed -secret dev-secret -players 40 -days 20 -seed 7
`)
}
