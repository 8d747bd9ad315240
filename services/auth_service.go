package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/mob-esports/apiclient"
	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/repositories"
)

// AuthService manages console sessions: a browser logs in through the
// console, which keeps the API token server side behind a session id.
type AuthService interface {
	Login(ctx context.Context, creds models.Credentials) (*models.ConsoleSession, error)
	Logout(ctx context.Context, sessionID string) error
	Resolve(ctx context.Context, sessionID string) (*models.ConsoleSession, error)
	Sweep(ctx context.Context) (int64, error)
}

type authService struct {
	api    AuthAPI
	repo   repositories.SessionRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(api AuthAPI, repo repositories.SessionRepository, ttl time.Duration, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		api:    api,
		repo:   repo,
		ttl:    ttl,
		logger: logger.With(slog.String("service", "console_auth")),
		now:    time.Now,
	}
}

func (s *authService) Login(ctx context.Context, creds models.Credentials) (*models.ConsoleSession, error) {
	res, err := s.api.Login(ctx, creds)
	if err != nil {
		switch {
		case errors.Is(err, apiclient.ErrInvalidInput):
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		case apiclient.IsUnauthorized(err):
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return nil, err
	}

	user := res.User
	if user == nil {
		if user, err = s.api.Me(apiclient.ContextWithToken(ctx, res.Token)); err != nil {
			return nil, fmt.Errorf("failed to load user after login: %w", err)
		}
	}

	// Сессия не живёт дольше самого токена
	expiresAt := s.now().Add(s.ttl)
	if claims, err := ParseTokenClaims(res.Token); err == nil && !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(expiresAt) {
		expiresAt = claims.ExpiresAt
	}

	session := &models.ConsoleSession{
		ID:        uuid.NewString(),
		Token:     res.Token,
		User:      *user,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store console session: %w", err)
	}
	s.logger.Info("console session created", slog.String("user_id", user.ID), slog.String("role", user.Role().String()))
	return session, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	err := s.repo.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete console session: %w", err)
	}
	return nil
}

func (s *authService) Resolve(ctx context.Context, sessionID string) (*models.ConsoleSession, error) {
	if sessionID == "" {
		return nil, ErrNotAuthenticated
	}
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to load console session: %w", err)
	}
	return session, nil
}

// Sweep drops expired sessions.
func (s *authService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired console sessions removed", slog.Int64("count", n))
	}
	return n, nil
}
