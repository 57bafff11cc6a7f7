// Package ranking computes daily ranks and point awards with tie-sharing.
package ranking

import (
	"sort"

	"github.com/pubtrivia/tally/internal/domain/identity"
	"github.com/pubtrivia/tally/internal/domain/model"
)

// Award table: rank 1 earns 10 points down to rank 10 earning 1.
// Ranks past the table earn nothing.
const maxAwardedRank = 10

// awardFor returns the points for a 1-based rank.
func awardFor(rank int) int {
	if rank < 1 || rank > maxAwardedRank {
		return 0
	}
	return maxAwardedRank + 1 - rank
}

// Ranked is one daily entry with its assigned rank and award.
type Ranked struct {
	Entry  model.DailyEntry
	Rank   int  // 1-based; shared across a tie-group
	Points int  // shared across a tie-group
	First  bool // member of the top tie-group
	Last   bool // member of the bottom tie-group
}

// Result is the outcome of ranking a full daily set.
type Result struct {
	Ranked      []Ranked
	FirstsAdded int // size of the top tie-group
	LastsAdded  int // size of the bottom tie-group
}

// sortEntries orders entries for display and scoring: ratio desc, then
// numerator desc, then resolved name asc. The name leg only disambiguates
// display order; scoring ties exclusively on ratio.
func sortEntries(entries []model.DailyEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Ratio != b.Ratio {
			return a.Ratio > b.Ratio
		}
		if a.Numerator != b.Numerator {
			return a.Numerator > b.Numerator
		}
		an := identity.ResolveDisplayName(a.Alias, a.DisplayName)
		bn := identity.ResolveDisplayName(b.Alias, b.DisplayName)
		return an < bn
	})
}

// Sorted returns a tie-aware sorted copy of entries.
func Sorted(entries []model.DailyEntry) []model.DailyEntry {
	out := make([]model.DailyEntry, len(entries))
	copy(out, entries)
	sortEntries(out)
	return out
}

// Compute ranks the daily set and assigns awards.
//
// Entries sharing a ratio form one tie-group: all members receive the same
// rank and the same points, and the group consumes as many rank slots as it
// has members. Three entries tied at rank 1 all earn 10 points and the next
// group starts at rank 4. Every entry is ranked, even past rank 10 where the
// award drops to zero, so the bottom tie-group is always identified.
func Compute(entries []model.DailyEntry) Result {
	if len(entries) == 0 {
		return Result{}
	}

	sorted := Sorted(entries)
	n := len(sorted)

	// Top tie-group: prefix sharing the best ratio. Bottom tie-group: suffix
	// sharing the worst. A single-entry day is both.
	firstEnd := 0
	for firstEnd+1 < n && sorted[firstEnd+1].Ratio == sorted[0].Ratio {
		firstEnd++
	}
	lastStart := n - 1
	for lastStart-1 >= 0 && sorted[lastStart-1].Ratio == sorted[n-1].Ratio {
		lastStart--
	}

	ranked := make([]Ranked, 0, n)
	rank := 1
	for i := 0; i < n; {
		j := i
		for j+1 < n && sorted[j+1].Ratio == sorted[i].Ratio {
			j++
		}
		pts := awardFor(rank)
		for k := i; k <= j; k++ {
			ranked = append(ranked, Ranked{
				Entry:  sorted[k],
				Rank:   rank,
				Points: pts,
				First:  k <= firstEnd,
				Last:   k >= lastStart,
			})
		}
		rank += j - i + 1
		i = j + 1
	}

	return Result{
		Ranked:      ranked,
		FirstsAdded: firstEnd + 1,
		LastsAdded:  n - lastStart,
	}
}
