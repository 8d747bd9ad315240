package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrValidationFailed = errors.New("validation failed")

	// Ошибки аутентификации и авторизации
	ErrNotAuthenticated     = errors.New("not logged in")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSessionExpired       = errors.New("session has expired")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
)
