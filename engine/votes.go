// engine/votes.go
package engine

import (
	"math/rand"
	"sort"

	"github.com/wfunc/werewolf/models"
)

// TallyKind tags the outcome of a vote tally.
type TallyKind int

const (
	TallyNoMajority TallyKind = iota
	TallyNoLynch
	TallyEliminate
)

// TallyResult is the tagged result of counting one voting round.
type TallyResult struct {
	Kind     TallyKind
	TargetID string
	Counts   map[string]int
}

// TallyVotes counts voter→target entries and picks the elimination.
// Abstain entries form a "no lynch" pseudo-candidate when allowed,
// otherwise they count as not voting. Ties are broken uniformly at
// random among the maximum-vote candidates.
func TallyVotes(votes map[string]string, noLynchAllowed bool, rng *rand.Rand) TallyResult {
	counts := make(map[string]int)
	for _, target := range votes {
		if target == "" {
			continue
		}
		if target == models.AbstainVote && !noLynchAllowed {
			continue
		}
		counts[target]++
	}

	if len(counts) == 0 {
		return TallyResult{Kind: TallyNoMajority, Counts: counts}
	}

	maxVotes := 0
	for _, n := range counts {
		if n > maxVotes {
			maxVotes = n
		}
	}

	var leaders []string
	for target, n := range counts {
		if n == maxVotes {
			leaders = append(leaders, target)
		}
	}
	// map iteration order is random but not uniform; sort so the rng
	// draw is the only source of randomness.
	sort.Strings(leaders)

	winner := leaders[rng.Intn(len(leaders))]
	if winner == models.AbstainVote {
		return TallyResult{Kind: TallyNoLynch, Counts: counts}
	}
	return TallyResult{Kind: TallyEliminate, TargetID: winner, Counts: counts}
}
