package middleware

import (
	"context"

	"github.com/Dosada05/mob-esports/models"
)

type contextKey string

const sessionContextKey contextKey = "console_session"

// SessionCookie carries the console session id.
const SessionCookie = "mob_session"

// SessionHeader is accepted instead of the cookie by non-browser clients.
const SessionHeader = "X-Session-ID"

func withSession(ctx context.Context, s *models.ConsoleSession) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the console session resolved for the request.
func SessionFromContext(ctx context.Context) (*models.ConsoleSession, bool) {
	s, ok := ctx.Value(sessionContextKey).(*models.ConsoleSession)
	return s, ok && s != nil
}

// RoleFromContext is RoleAnonymous when no session was resolved.
func RoleFromContext(ctx context.Context) models.Role {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return models.RoleAnonymous
	}
	return s.User.Role()
}
