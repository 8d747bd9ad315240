package models

// MatchStatus mirrors the match states the API reports.
type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "upcoming"
	MatchStatusOngoing   MatchStatus = "ongoing"
	MatchStatusCompleted MatchStatus = "completed"
)

// Valid reports whether s is one of the known match states.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusUpcoming, MatchStatusOngoing, MatchStatusCompleted:
		return true
	}
	return false
}

// Match is a single bracket pairing as returned inside a tournament detail.
// Opponent references are opaque team or player identifiers; nil means the
// slot is still waiting on an earlier match.
type Match struct {
	ID       string      `json:"id"`
	Round    int         `json:"round"`
	Team1ID  *string     `json:"team1Id"`
	Team2ID  *string     `json:"team2Id"`
	Score1   *int        `json:"score1"`
	Score2   *int        `json:"score2"`
	WinnerID *string     `json:"winnerId"`
	Status   MatchStatus `json:"status"`
}

// Round is one column of the bracket. Gap marks a round number that had no
// matches in the source data but sits between rounds that do.
type Round struct {
	Number  int     `json:"number"`
	Label   string  `json:"label"`
	Gap     bool    `json:"gap,omitempty"`
	Matches []Match `json:"matches"`
}

// MatchUpdate is the body of PUT /tournaments/{id}/matches/{matchId}.
type MatchUpdate struct {
	WinnerID *string     `json:"winnerId"`
	Score1   int         `json:"score1" validate:"min=0"`
	Score2   int         `json:"score2" validate:"min=0"`
	Status   MatchStatus `json:"status" validate:"required,oneof=upcoming ongoing completed"`
}
