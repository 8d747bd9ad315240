package models

import (
	"strings"
	"time"
)

// Role is the closed set of viewer kinds the front end distinguishes.
// The API sends a free-form role string; it is parsed once into a Role and
// every gate switches on the parsed value.
type Role int

const (
	RoleAnonymous Role = iota
	RolePlayer
	RoleOrganizer
	RoleAdmin
)

// ParseRole maps the API's role string onto a Role. Unknown or empty values
// are treated as a plain player, since the API only issues tokens to
// registered accounts.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "organizer", "tournament_organizer":
		return RoleOrganizer
	case "":
		return RoleAnonymous
	default: // "player", "client"
		return RolePlayer
	}
}

func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RoleOrganizer:
		return "organizer"
	case RoleAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// MarshalText lets Role travel as its name in JSON and config.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// CanManageTournaments reports whether the role may edit brackets and scores.
func (r Role) CanManageTournaments() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

// CanManageUsers reports whether the role may change other users' roles.
func (r Role) CanManageUsers() bool {
	return r == RoleAdmin
}

// Authenticated reports whether the role belongs to a logged-in user.
func (r Role) Authenticated() bool {
	return r != RoleAnonymous
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	RoleName  string    `json:"role"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	TeamID    *string   `json:"teamId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Role returns the parsed role variant of the user.
func (u *User) Role() Role {
	if u == nil {
		return RoleAnonymous
	}
	role := ParseRole(u.RoleName)
	if role == RoleAnonymous {
		return RolePlayer
	}
	return role
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResult is the data part of a successful login or registration.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
