package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/mob-esports/apiclient"
	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/storage"
)

// AuthAPI is the part of the REST client the session needs.
type AuthAPI interface {
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error)
	Me(ctx context.Context) (*models.User, error)
}

// Session is the explicit authentication state: the token, the user it
// belongs to and the parsed role. The zero value is an anonymous session.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      *models.User
	expiresAt time.Time
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, or nil when anonymous.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.RoleAnonymous
	}
	return s.user.Role()
}

func (s *Session) Authenticated() bool {
	return s.Role().Authenticated()
}

// ExpiresAt is the token expiry read from its claims; zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) set(token string, user *models.User, expiresAt time.Time) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.expiresAt = expiresAt
	s.mu.Unlock()
}

// TokenClaims are the claims the client reads from a token. The signature is
// not checked here; the API verifies the token on every call.
type TokenClaims struct {
	Subject   string
	Role      models.Role
	ExpiresAt time.Time
}

// ParseTokenClaims reads the claims of a JWT without verifying it.
func ParseTokenClaims(token string) (TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("failed to parse token claims: %w", err)
	}
	var out TokenClaims
	if sub, ok := claims["sub"].(string); ok {
		out.Subject = sub
	} else if id, ok := claims["id"].(string); ok {
		out.Subject = id
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = models.ParseRole(role)
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}

type SessionService interface {
	Session() *Session
	Init(ctx context.Context) error
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	OnChange(fn func(token string))
}

type sessionService struct {
	api    AuthAPI
	store  storage.TokenStore
	logger *slog.Logger
	now    func() time.Time

	session *Session

	mu        sync.Mutex
	listeners []func(token string)
}

func NewSessionService(api AuthAPI, store storage.TokenStore, logger *slog.Logger) SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionService{
		api:     api,
		store:   store,
		logger:  logger.With(slog.String("service", "session")),
		now:     time.Now,
		session: &Session{},
	}
}

func (s *sessionService) Session() *Session {
	return s.session
}

// OnChange registers fn to be called with the new token after every login
// and teardown ("" then).
func (s *sessionService) OnChange(fn func(token string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *sessionService) notify(token string) {
	s.mu.Lock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(token)
	}
}

// Init restores the persisted token. A token the API rejects, or one whose
// claims say it has expired, is torn down and the session stays anonymous.
// Transport failures are returned and leave the stored token in place.
func (s *sessionService) Init(ctx context.Context) error {
	token, err := s.store.Load()
	if err != nil {
		s.logger.Warn("stored token unreadable, clearing", slog.Any("error", err))
		return s.teardown()
	}
	if token == "" {
		return nil
	}

	var expiresAt time.Time
	if claims, err := ParseTokenClaims(token); err == nil {
		expiresAt = claims.ExpiresAt
		if !expiresAt.IsZero() && !expiresAt.After(s.now()) {
			s.logger.Info("stored token expired", slog.Time("expires_at", expiresAt))
			return s.teardown()
		}
	}

	user, err := s.api.Me(apiclient.ContextWithToken(ctx, token))
	if err != nil {
		if apiclient.IsUnauthorized(err) || apiclient.StatusCode(err) == 403 {
			s.logger.Info("stored token rejected by api")
			return s.teardown()
		}
		return fmt.Errorf("failed to verify stored token: %w", err)
	}

	s.session.set(token, user, expiresAt)
	s.logger.Info("session restored", slog.String("user_id", user.ID), slog.String("role", user.Role().String()))
	s.notify(token)
	return nil
}

func (s *sessionService) Login(ctx context.Context, email, password string) (*models.User, error) {
	res, err := s.api.Login(ctx, models.Credentials{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, apiclient.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
		if apiclient.IsUnauthorized(err) {
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
	if err := s.store.Save(res.Token); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	var expiresAt time.Time
	if claims, err := ParseTokenClaims(res.Token); err == nil {
		expiresAt = claims.ExpiresAt
	}
	s.session.set(res.Token, user, expiresAt)
	s.logger.Info("logged in", slog.String("user_id", user.ID), slog.String("role", user.Role().String()))
	s.notify(res.Token)
	return user, nil
}

// Logout clears the session and the persisted token.
func (s *sessionService) Logout(ctx context.Context) error {
	if !s.session.Authenticated() && s.session.Token() == "" {
		stored, _ := s.store.Load()
		if stored == "" {
			return nil
		}
	}
	s.logger.Info("logging out")
	return s.teardown()
}

func (s *sessionService) teardown() error {
	s.session.set("", nil, time.Time{})
	err := s.store.Clear()
	s.notify("")
	if err != nil {
		return fmt.Errorf("failed to clear stored token: %w", err)
	}
	return nil
}
