package models

import "time"

type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tag       string    `json:"tag,omitempty"`
	CaptainID string    `json:"captainId"`
	LogoURL   *string   `json:"logoUrl,omitempty"`
	Members   []User    `json:"members,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type TeamInput struct {
	Name    string  `json:"name" validate:"required,min=2,max=64"`
	Tag     string  `json:"tag,omitempty" validate:"omitempty,max=8"`
	LogoURL *string `json:"logoUrl,omitempty" validate:"omitempty,url"`
}
