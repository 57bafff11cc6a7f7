// Package seeder drives a running scoreboard with generated players: daily
// submissions followed by admin settlements, useful for demos and smoke
// testing.
package seeder

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Players     int           // Number of generated players
	Days        int           // Number of days to submit and settle
	Questions   int           // Questions per day (score denominator)
	Timeout     time.Duration // HTTP request timeout
	TokenSecret string        // HMAC secret shared with the server
	RandomSeed  uint64        // Seed for deterministic player generation; 0 means random
	Verbose     bool          // Enable verbose logging
}

// Player is one generated participant.
type Player struct {
	Alias       string
	DisplayName string
	Skill       float64 // 0..1, biases daily scores
}

// Stats holds seeding run statistics.
type Stats struct {
	PlayersGenerated int
	EntriesSubmitted int
	EntriesFailed    int
	DaysSettled      int
	PointsAwarded    int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
