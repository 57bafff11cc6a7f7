// Package bracket projects season standings onto a single-elimination
// bracket. The projection is cosmetic: seeds come from current points and
// later rounds stay undecided.
package bracket

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pubtrivia/tally/internal/domain/identity"
	"github.com/pubtrivia/tally/internal/domain/model"
)

// Seed is one slot in the seeded field. Short fields are padded with byes.
type Seed struct {
	Seed int    `json:"seed"`
	Name string `json:"name"`
	Bye  bool   `json:"bye"`
}

// Match pairs two seeds; nil sides are still to be determined.
type Match struct {
	A *Seed `json:"a"`
	B *Seed `json:"b"`
}

// Round is a named column of the bracket.
type Round struct {
	Name    string  `json:"name"`
	Matches []Match `json:"matches"`
}

// Bracket is the full projection.
type Bracket struct {
	Seeds  []Seed  `json:"seeds"`
	Rounds []Round `json:"rounds"`
}

// ErrInvalidSize reports a field size that is not a power of two >= 2.
var ErrInvalidSize = fmt.Errorf("bracket size must be a power of two >= 2")

// SeedOrder returns the seed sequence placing seed 1 and seed 2 in opposite
// halves, built by the usual fold: each step interleaves x with 2m+1-x.
// For size 32 the resulting first-round pairs are 1v32, 16v17, 8v25, ...
func SeedOrder(size int) ([]int, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, ErrInvalidSize
	}
	order := []int{1}
	for m := 1; m < size; m *= 2 {
		next := make([]int, 0, m*2)
		for _, x := range order {
			next = append(next, x, 2*m+1-x)
		}
		order = next
	}
	return order, nil
}

// Project seeds the top records into a bracket of the given size.
func Project(rows []model.StandingRecord, size int) (Bracket, error) {
	order, err := SeedOrder(size)
	if err != nil {
		return Bracket{}, err
	}

	sorted := make([]model.StandingRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		an := strings.ToLower(identity.ResolveDisplayName(sorted[i].Alias, sorted[i].DisplayName))
		bn := strings.ToLower(identity.ResolveDisplayName(sorted[j].Alias, sorted[j].DisplayName))
		return an < bn
	})

	seeds := make([]Seed, size)
	for i := 0; i < size; i++ {
		if i < len(sorted) {
			r := sorted[i]
			seeds[i] = Seed{Seed: i + 1, Name: identity.ResolveDisplayName(r.Alias, r.DisplayName)}
		} else {
			seeds[i] = Seed{Seed: i + 1, Name: "Bye", Bye: true}
		}
	}

	// First round from the seeded order; later rounds stay TBD.
	first := Round{Name: roundName(size)}
	for i := 0; i < len(order); i += 2 {
		first.Matches = append(first.Matches, Match{
			A: &seeds[order[i]-1],
			B: &seeds[order[i+1]-1],
		})
	}

	rounds := []Round{first}
	for n := size / 2; n >= 1; n /= 2 {
		count := n / 2
		if n == 1 {
			count = 1 // champion slot
		}
		rounds = append(rounds, Round{Name: roundName(n), Matches: make([]Match, count)})
	}

	return Bracket{Seeds: seeds, Rounds: rounds}, nil
}

// roundName labels the column whose field still holds n players.
func roundName(n int) string {
	switch n {
	case 16:
		return "Sweet 16"
	case 8:
		return "Elite 8"
	case 4:
		return "Final 4"
	case 2:
		return "Final"
	case 1:
		return "Champion"
	default:
		return fmt.Sprintf("Round of %d", n)
	}
}
