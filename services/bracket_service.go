package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/Dosada05/mob-esports/apiclient"
	"github.com/Dosada05/mob-esports/brackets"
	"github.com/Dosada05/mob-esports/models"
)

// TournamentAPI is the part of the REST client the bracket flow needs.
type TournamentAPI interface {
	Get(ctx context.Context, id string) (*models.Tournament, error)
	UpdateMatch(ctx context.Context, tournamentID, matchID string, in models.MatchUpdate) error
	GenerateBracket(ctx context.Context, id string) error
}

type BracketService interface {
	Load(ctx context.Context, tournamentID string) (brackets.Bracket, error)
	LoadTournament(ctx context.Context, tournamentID string) (*models.Tournament, error)
	SaveScores(ctx context.Context, tournamentID string, m models.Match, score1, score2 int) (brackets.Bracket, error)
	Generate(ctx context.Context, tournamentID string) (brackets.Bracket, error)
	Preview(ctx context.Context, tournamentID, format string) (brackets.Bracket, error)
}

type bracketService struct {
	api    TournamentAPI
	logger *slog.Logger
	loads  singleflight.Group
}

func NewBracketService(api TournamentAPI, logger *slog.Logger) BracketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &bracketService{
		api:    api,
		logger: logger.With(slog.String("service", "bracket")),
	}
}

// LoadTournament fetches the tournament detail. Concurrent calls for the same
// tournament made with the same API token share one request; the shared call
// outlives the cancellation of any single caller.
func (s *bracketService) LoadTournament(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	if tournamentID == "" {
		return nil, fmt.Errorf("%w: tournament id is required", ErrValidationFailed)
	}
	shared := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(loadKey(ctx, tournamentID), func() (any, error) {
		return s.api.Get(shared, tournamentID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		if apiclient.IsNotFound(res.Err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrTournamentNotFound, tournamentID, res.Err)
		}
		return nil, fmt.Errorf("failed to load tournament %s: %w", tournamentID, res.Err)
	}
	if res.Shared {
		s.logger.Debug("tournament load shared", slog.String("tournament_id", tournamentID))
	}
	return res.Val.(*models.Tournament), nil
}

// loadKey scopes a load to the caller's credentials. The token is hashed so
// raw tokens are never kept as map keys.
func loadKey(ctx context.Context, tournamentID string) string {
	token, _ := apiclient.TokenFromContext(ctx)
	sum := sha256.Sum256([]byte(token))
	return tournamentID + ":" + hex.EncodeToString(sum[:8])
}

func (s *bracketService) Load(ctx context.Context, tournamentID string) (brackets.Bracket, error) {
	t, err := s.LoadTournament(ctx, tournamentID)
	if err != nil {
		return brackets.Bracket{}, err
	}
	return brackets.Group(t.Matches), nil
}

// SaveScores submits the final score of m and returns the re-fetched bracket.
func (s *bracketService) SaveScores(ctx context.Context, tournamentID string, m models.Match, score1, score2 int) (brackets.Bracket, error) {
	if m.ID == "" {
		return brackets.Bracket{}, fmt.Errorf("%w: match id is required", ErrValidationFailed)
	}
	update := brackets.BuildUpdate(m, score1, score2)
	if err := s.api.UpdateMatch(ctx, tournamentID, m.ID, update); err != nil {
		if apiclient.IsNotFound(err) {
			return brackets.Bracket{}, fmt.Errorf("%w: %s: %w", ErrMatchNotFound, m.ID, err)
		}
		return brackets.Bracket{}, fmt.Errorf("failed to update match %s: %w", m.ID, err)
	}

	s.logger.Info("match result saved",
		slog.String("tournament_id", tournamentID),
		slog.String("match_id", m.ID),
		slog.Int("score1", score1),
		slog.Int("score2", score2),
	)
	return s.reload(ctx, tournamentID)
}

// Generate asks the API to build the bracket and returns the re-fetched one.
func (s *bracketService) Generate(ctx context.Context, tournamentID string) (brackets.Bracket, error) {
	if err := s.api.GenerateBracket(ctx, tournamentID); err != nil {
		return brackets.Bracket{}, fmt.Errorf("failed to generate bracket for tournament %s: %w", tournamentID, err)
	}
	s.logger.Info("bracket generated", slog.String("tournament_id", tournamentID))
	return s.reload(ctx, tournamentID)
}

// Preview lays out the tournament's participants locally without touching
// the API's bracket.
func (s *bracketService) Preview(ctx context.Context, tournamentID, format string) (brackets.Bracket, error) {
	gen, err := brackets.GeneratorFor(format)
	if err != nil {
		return brackets.Bracket{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	t, err := s.LoadTournament(ctx, tournamentID)
	if err != nil {
		return brackets.Bracket{}, err
	}
	matches, err := gen.Generate(t.Participants)
	if err != nil {
		return brackets.Bracket{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return brackets.Group(matches), nil
}

// reload must not join a load that started before the write.
func (s *bracketService) reload(ctx context.Context, tournamentID string) (brackets.Bracket, error) {
	s.loads.Forget(loadKey(ctx, tournamentID))
	return s.Load(ctx, tournamentID)
}
