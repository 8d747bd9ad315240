package brackets

import (
	"fmt"

	"github.com/Dosada05/mob-esports/models"
)

// MaxRounds is the lowest round limit Group applies. Inputs with more matches
// than this may use as many rounds as they have matches.
const MaxRounds = 256

// Bracket is the round-indexed view of a tournament's flat match list.
// Rounds[i] always holds round number i+1; round numbers missing from the
// input between 1 and the highest round are present with Gap set.
type Bracket struct {
	Rounds []models.Round `json:"rounds"`
	// Unplaced collects matches whose round number is below 1 or above the
	// round limit.
	Unplaced []models.Match `json:"unplaced,omitempty"`
}

// RoundLabel is the display label of round n.
func RoundLabel(n int) string {
	return fmt.Sprintf("Round %d", n)
}

// Group places every match into the round at index match.Round-1, keeping
// the input order inside each round. It does not modify matches and keeps no
// state, so grouping the same input twice gives equal results.
//
// Rounds above max(len(matches), MaxRounds) go to Unplaced, so padding stays
// bounded whatever round numbers the API sends.
func Group(matches []models.Match) Bracket {
	limit := max(len(matches), MaxRounds)
	var b Bracket
	for _, m := range matches {
		if m.Round < 1 || m.Round > limit {
			b.Unplaced = append(b.Unplaced, m)
			continue
		}
		slot := m.Round - 1
		for len(b.Rounds) <= slot {
			n := len(b.Rounds) + 1
			b.Rounds = append(b.Rounds, models.Round{Number: n, Label: RoundLabel(n), Gap: true})
		}
		r := &b.Rounds[slot]
		r.Gap = false
		r.Matches = append(r.Matches, m)
	}
	return b
}

// Find returns the match with the given id.
func (b Bracket) Find(matchID string) (models.Match, bool) {
	for _, r := range b.Rounds {
		for _, m := range r.Matches {
			if m.ID == matchID {
				return m, true
			}
		}
	}
	for _, m := range b.Unplaced {
		if m.ID == matchID {
			return m, true
		}
	}
	return models.Match{}, false
}

// Populated returns the rounds that hold at least one match, in order.
func (b Bracket) Populated() []models.Round {
	out := make([]models.Round, 0, len(b.Rounds))
	for _, r := range b.Rounds {
		if !r.Gap {
			out = append(out, r)
		}
	}
	return out
}

// MatchCount is the number of placed matches.
func (b Bracket) MatchCount() int {
	n := 0
	for _, r := range b.Rounds {
		n += len(r.Matches)
	}
	return n
}
