package models

import "time"

// ConsoleSession links a console cookie to the API token of the browser user
// that logged in through it.
type ConsoleSession struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *ConsoleSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
