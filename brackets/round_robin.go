package brackets

import (
	"fmt"

	"github.com/Dosada05/mob-esports/models"
)

type RoundRobinGenerator struct {
	legs int
}

// NewRoundRobinGenerator returns a generator where everyone meets everyone
// legs times; legs outside 1..2 is treated as 1.
func NewRoundRobinGenerator(legs int) Generator {
	if legs != 2 {
		legs = 1
	}
	return &RoundRobinGenerator{legs: legs}
}

func (g *RoundRobinGenerator) Name() string {
	if g.legs == 2 {
		return "DoubleRoundRobin"
	}
	return "RoundRobin"
}

// Generate schedules with the circle method: one participant stays fixed and
// the rest rotate, so every round has each participant at most once. An odd
// field gets a rest slot, and pairings against it are skipped. The second
// leg repeats the first with sides swapped.
func (g *RoundRobinGenerator) Generate(participants []models.Participant) ([]models.Match, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughParticipants, n)
	}

	refs := make([]*string, 0, n+1)
	for _, p := range participants {
		refs = append(refs, participantRef(p))
	}
	if n%2 == 1 {
		refs = append(refs, nil)
	}
	size := len(refs)
	roundsPerLeg := size - 1

	var matches []models.Match
	for leg := 0; leg < g.legs; leg++ {
		order := make([]*string, size)
		copy(order, refs)
		for r := 0; r < roundsPerLeg; r++ {
			round := leg*roundsPerLeg + r + 1
			num := 0
			for i := 0; i < size/2; i++ {
				home, away := order[i], order[size-1-i]
				if home == nil || away == nil {
					continue
				}
				if leg == 1 {
					home, away = away, home
				}
				num++
				matches = append(matches, models.Match{
					ID:      fmt.Sprintf("R%dM%d", round, num),
					Round:   round,
					Team1ID: home,
					Team2ID: away,
					Status:  models.MatchStatusUpcoming,
				})
			}
			// вращаем всех, кроме первого
			last := order[size-1]
			copy(order[2:], order[1:size-1])
			order[1] = last
		}
	}
	return matches, nil
}
