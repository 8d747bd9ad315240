package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/mob-esports/apiclient"
	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/services"
)

// SessionResolver looks up a console session by id.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*models.ConsoleSession, error)
}

// Authenticate resolves the session cookie, when present, and scopes the
// request's API calls to that session's token. Requests without a valid
// session continue as anonymous; access is decided by Require.
func Authenticate(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := ""

			if id := sessionID(r); id != "" {
				session, err := resolver.Resolve(ctx, id)
				switch {
				case err == nil:
					ctx = withSession(ctx, session)
					token = session.Token
				case errors.Is(err, services.ErrSessionExpired), errors.Is(err, services.ErrNotAuthenticated):
					// stale cookie, continue anonymous
				default:
					logger.Error("failed to resolve console session", slog.Any("error", err))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
			}

			ctx = apiclient.ContextWithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

// Access is the closed set of route access levels.
type Access int

const (
	AccessPublic Access = iota
	AccessPlayer
	AccessOrganizer
	AccessAdmin
)

// Permits dispatches on the viewer's role.
func (a Access) Permits(role models.Role) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleOrganizer:
		return a <= AccessOrganizer
	case models.RolePlayer:
		return a <= AccessPlayer
	case models.RoleAnonymous:
		return a == AccessPublic
	}
	return false
}

// Require rejects viewers the access level does not permit: anonymous
// viewers get 401, logged-in ones 403.
func Require(access Access) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if access.Permits(role) {
				next.ServeHTTP(w, r)
				return
			}
			if !role.Authenticated() {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}
