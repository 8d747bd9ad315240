package brackets

import (
	"fmt"
	"math/bits"

	"github.com/Dosada05/mob-esports/models"
)

type slot struct {
	participant *string
	bye         bool
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Generate pads the field to the next power of two with byes. A participant
// drawn against a bye gets a completed match and is carried into round 2, so
// no later match ever has two byes. Slots fed by a match that has not been
// played stay nil.
func (g *SingleEliminationGenerator) Generate(participants []models.Participant) ([]models.Match, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughParticipants, n)
	}

	size := 1 << bits.Len(uint(n-1))
	numRounds := bits.Len(uint(size)) - 1
	numByes := size - n

	// Byes are spread one per pairing from the top so that two byes never meet.
	current := make([]slot, 0, size)
	next := 0
	for i := 0; i < size/2; i++ {
		current = append(current, slot{participant: participantRef(participants[next])})
		next++
		if i < numByes {
			current = append(current, slot{bye: true})
			continue
		}
		current = append(current, slot{participant: participantRef(participants[next])})
		next++
	}

	matches := make([]models.Match, 0, size-1)
	for r := 1; r <= numRounds; r++ {
		advancing := make([]slot, 0, len(current)/2)
		for i := 0; i+1 < len(current); i += 2 {
			a, b := current[i], current[i+1]
			m := models.Match{
				ID:     fmt.Sprintf("R%dM%d", r, i/2+1),
				Round:  r,
				Status: models.MatchStatusUpcoming,
			}
			switch {
			case b.bye:
				m.Team1ID = a.participant
				m.WinnerID = a.participant
				m.Status = models.MatchStatusCompleted
				advancing = append(advancing, slot{participant: a.participant})
			default:
				m.Team1ID = a.participant
				m.Team2ID = b.participant
				advancing = append(advancing, slot{})
			}
			matches = append(matches, m)
		}
		current = advancing
	}
	return matches, nil
}
