package brackets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/mob-esports/models"
)

var ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")

// Generator lays out planned matches for a participant list.
type Generator interface {
	Generate(participants []models.Participant) ([]models.Match, error)
	Name() string
}

// GeneratorFor returns the generator for a format name as accepted by the
// CLI. An empty name selects single elimination.
func GeneratorFor(format string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "single", "single_elimination", "singleelimination":
		return NewSingleEliminationGenerator(), nil
	case "round_robin", "roundrobin", "rr":
		return NewRoundRobinGenerator(1), nil
	case "double_round_robin":
		return NewRoundRobinGenerator(2), nil
	}
	return nil, fmt.Errorf("unknown bracket format %q", format)
}

// Preview is the single-elimination layout the API is expected to build for
// participants, grouped into rounds.
func Preview(participants []models.Participant) (Bracket, error) {
	matches, err := NewSingleEliminationGenerator().Generate(participants)
	if err != nil {
		return Bracket{}, err
	}
	return Group(matches), nil
}

func participantRef(p models.Participant) *string {
	id := p.ID
	return &id
}
