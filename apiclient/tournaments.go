package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Dosada05/mob-esports/models"
)

type TournamentResource struct {
	c *Client
}

func (r *TournamentResource) List(ctx context.Context, f models.TournamentFilter) ([]models.Tournament, error) {
	q := url.Values{}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.Game != "" {
		q.Set("game", f.Game)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	var out []models.Tournament
	if err := r.c.doJSON(ctx, http.MethodGet, "/tournaments", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the tournament detail, including participants and matches.
func (r *TournamentResource) Get(ctx context.Context, id string) (*models.Tournament, error) {
	var out models.Tournament
	if err := r.c.doJSON(ctx, http.MethodGet, tournamentPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TournamentResource) Create(ctx context.Context, in models.TournamentInput) (*models.Tournament, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var out models.Tournament
	if err := r.c.doJSON(ctx, http.MethodPost, "/tournaments", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TournamentResource) Update(ctx context.Context, id string, in models.TournamentInput) (*models.Tournament, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var out models.Tournament
	if err := r.c.doJSON(ctx, http.MethodPut, tournamentPath(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TournamentResource) Delete(ctx context.Context, id string) error {
	return r.c.doJSON(ctx, http.MethodDelete, tournamentPath(id), nil, nil, nil)
}

// GenerateBracket asks the API to build the bracket. The response body is
// not used.
func (r *TournamentResource) GenerateBracket(ctx context.Context, id string) error {
	return r.c.doJSON(ctx, http.MethodPost, tournamentPath(id)+"/bracket", nil, nil, nil)
}

// UpdateMatch records a match result.
func (r *TournamentResource) UpdateMatch(ctx context.Context, tournamentID, matchID string, in models.MatchUpdate) error {
	if err := validate(in); err != nil {
		return err
	}
	path := fmt.Sprintf("%s/matches/%s", tournamentPath(tournamentID), url.PathEscape(matchID))
	return r.c.doJSON(ctx, http.MethodPut, path, nil, in, nil)
}

// Join registers the current user (or their team) for the tournament.
func (r *TournamentResource) Join(ctx context.Context, id string) error {
	return r.c.doJSON(ctx, http.MethodPost, tournamentPath(id)+"/join", nil, nil, nil)
}

func tournamentPath(id string) string {
	return "/tournaments/" + url.PathEscape(id)
}
