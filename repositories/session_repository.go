package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/Dosada05/mob-esports/models"
)

var (
	ErrSessionNotFound = errors.New("console session not found")
	ErrSessionConflict = errors.New("console session id already exists")
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.ConsoleSession) error
	// Get returns ErrSessionNotFound for unknown and expired sessions alike.
	Get(ctx context.Context, id string) (*models.ConsoleSession, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type postgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

func (r *postgresSessionRepository) Create(ctx context.Context, s *models.ConsoleSession) error {
	userData, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}

	query := `
		INSERT INTO console_sessions (id, token, user_data, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query, s.ID, s.Token, userData, s.ExpiresAt).Scan(&s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return ErrSessionConflict
		}
		return fmt.Errorf("failed to insert console session: %w", err)
	}
	return nil
}

func (r *postgresSessionRepository) Get(ctx context.Context, id string) (*models.ConsoleSession, error) {
	query := `
		SELECT id, token, user_data, created_at, expires_at
		FROM console_sessions
		WHERE id = $1 AND expires_at > now()`

	var (
		s        models.ConsoleSession
		userData []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Token, &userData, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get console session: %w", err)
	}
	if err := json.Unmarshal(userData, &s.User); err != nil {
		return nil, fmt.Errorf("failed to decode session user: %w", err)
	}
	return &s, nil
}

func (r *postgresSessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete console session: %w", err)
	}
	return checkAffectedRows(result, ErrSessionNotFound)
}

func (r *postgresSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired console sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n, nil
}

// memorySessionRepository is used when no database is configured.
type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.ConsoleSession
	now      func() time.Time
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{
		sessions: make(map[string]models.ConsoleSession),
		now:      time.Now,
	}
}

func (r *memorySessionRepository) Create(_ context.Context, s *models.ConsoleSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return ErrSessionConflict
	}
	s.CreatedAt = r.now()
	r.sessions[s.ID] = *s
	return nil
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (*models.ConsoleSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.Expired(r.now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
