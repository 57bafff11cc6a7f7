// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DailyEntry is one participant's submission for the current day.
// The alias is the natural key: a resubmission overwrites the prior row.
type DailyEntry struct {
	Alias       string  `json:"alias"`       // normalized identity key (trimmed, lower-cased)
	DisplayName string  `json:"displayName"` // free-text name shown on the board
	Numerator   int     `json:"numerator"`   // correct answers
	Denominator int     `json:"denominator"` // total questions, always > 0
	Ratio       float64 `json:"ratio"`       // Numerator/Denominator, the primary ranking key
}

// StandingRecord is one participant's cumulative season state, keyed by alias.
type StandingRecord struct {
	ID          string `json:"id"` // document id (usually the alias)
	Alias       string `json:"alias"`
	DisplayName string `json:"displayName"`
	Points      int    `json:"points"` // cumulative season points
	Firsts      int    `json:"firsts"` // settled days finished in the top tie-group
	Lasts       int    `json:"lasts"`  // settled days finished in the bottom tie-group
}

// UserProfile is the denormalized alias/display-name mirror kept for lookup
// convenience. Not authoritative; refreshed on every display-name change.
type UserProfile struct {
	Alias       string    `json:"alias"`
	DisplayName string    `json:"displayName"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Fraction is a parsed "N/D" score.
type Fraction struct {
	Numerator   int
	Denominator int
}

// Ratio returns the fraction's value.
func (f Fraction) Ratio() float64 {
	return float64(f.Numerator) / float64(f.Denominator)
}

// ErrMalformedFraction reports an input that is not an "N/D" fraction with a
// positive denominator.
var ErrMalformedFraction = errors.New("malformed fraction")

var fractionRe = regexp.MustCompile(`^(-?\d+)\s*/\s*(\d+)$`)

// ParseFraction parses a textual "N/D" score. Whitespace around the slash is
// tolerated; the denominator must be strictly positive.
func ParseFraction(s string) (Fraction, error) {
	m := fractionRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Fraction{}, ErrMalformedFraction
	}
	num, err := strconv.Atoi(m[1])
	if err != nil {
		return Fraction{}, ErrMalformedFraction
	}
	den, err := strconv.Atoi(m[2])
	if err != nil || den <= 0 {
		return Fraction{}, ErrMalformedFraction
	}
	return Fraction{Numerator: num, Denominator: den}, nil
}
