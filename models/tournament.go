package models

import "time"

// TournamentStatus представляет статусы турнира на стороне API.
type TournamentStatus string

const (
	TournamentStatusUpcoming  TournamentStatus = "upcoming"
	TournamentStatusOngoing   TournamentStatus = "ongoing"
	TournamentStatusCompleted TournamentStatus = "completed"
	TournamentStatusCancelled TournamentStatus = "cancelled"
)

// Tournament is the list/detail representation of a tournament.
type Tournament struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Game            string           `json:"game"`
	Description     *string          `json:"description,omitempty"`
	Status          TournamentStatus `json:"status"`
	StartDate       time.Time        `json:"startDate"`
	EndDate         *time.Time       `json:"endDate,omitempty"`
	MaxParticipants int              `json:"maxParticipants"`
	PrizePool       *string          `json:"prizePool,omitempty"`
	BannerURL       *string          `json:"bannerUrl,omitempty"`
	OrganizerID     string           `json:"organizerId"`
	CreatedAt       time.Time        `json:"createdAt"`

	// Заполняются только в детальном ответе
	Participants []Participant `json:"participants,omitempty"`
	Matches      []Match       `json:"matches,omitempty"`
}

// Participant is a registered team or player inside a tournament detail.
type Participant struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	TeamID *string `json:"teamId,omitempty"`
	UserID *string `json:"userId,omitempty"`
}

// TournamentInput is the create/update form.
type TournamentInput struct {
	Name            string           `json:"name" validate:"required,min=3,max=120"`
	Game            string           `json:"game" validate:"required"`
	Description     *string          `json:"description,omitempty"`
	Status          TournamentStatus `json:"status,omitempty" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	StartDate       time.Time        `json:"startDate" validate:"required"`
	EndDate         *time.Time       `json:"endDate,omitempty"`
	MaxParticipants int              `json:"maxParticipants" validate:"min=2,max=1024"`
	PrizePool       *string          `json:"prizePool,omitempty"`
	BannerURL       *string          `json:"bannerUrl,omitempty" validate:"omitempty,url"`
}

// TournamentFilter narrows GET /tournaments.
type TournamentFilter struct {
	Status *TournamentStatus
	Game   string
	Limit  int
	Offset int
}
