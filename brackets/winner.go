package brackets

import (
	"github.com/Dosada05/mob-esports/models"
)

// WinnerFor returns the winner reference for a final score. Side one wins
// only with a strictly greater score; a tie goes to side two, which is what
// the organizer tools have always submitted.
func WinnerFor(m models.Match, score1, score2 int) *string {
	if score1 > score2 {
		return m.Team1ID
	}
	return m.Team2ID
}

// BuildUpdate produces the payload that records a final score for m.
func BuildUpdate(m models.Match, score1, score2 int) models.MatchUpdate {
	return models.MatchUpdate{
		WinnerID: WinnerFor(m, score1, score2),
		Score1:   score1,
		Score2:   score2,
		Status:   models.MatchStatusCompleted,
	}
}
