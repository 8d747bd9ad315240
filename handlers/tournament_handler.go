package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/mob-esports/brackets"
	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/services"
)

// TournamentReader is the part of the tournaments API the console proxies.
type TournamentReader interface {
	List(ctx context.Context, f models.TournamentFilter) ([]models.Tournament, error)
	Get(ctx context.Context, id string) (*models.Tournament, error)
	Join(ctx context.Context, id string) error
}

type TournamentHandler struct {
	tournaments    TournamentReader
	bracketService services.BracketService
}

func NewTournamentHandler(tournaments TournamentReader, bracketService services.BracketService) *TournamentHandler {
	return &TournamentHandler{
		tournaments:    tournaments,
		bracketService: bracketService,
	}
}

func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTournamentFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	list, err := h.tournaments.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if list == nil {
		list = []models.Tournament{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	t, err := h.bracketService.LoadTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": t}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) JoinTournament(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournaments.Join(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"joined": id}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracket отдаёт матчи турнира, сгруппированные по раундам.
// С ?format=... строит локальный предпросмотр по участникам.
func (h *TournamentHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var bracket brackets.Bracket
	if format := r.URL.Query().Get("format"); format != "" {
		bracket, err = h.bracketService.Preview(r.Context(), id, format)
	} else {
		bracket, err = h.bracketService.Load(r.Context(), id)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, bracketResponse(bracket), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.Generate(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, bracketResponse(bracket), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateMatchInput struct {
	Score1 *int `json:"score1"`
	Score2 *int `json:"score2"`
}

func (h *TournamentHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := pathParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	errs := map[string]string{}
	if input.Score1 == nil || *input.Score1 < 0 {
		errs["score1"] = "must be a non-negative integer"
	}
	if input.Score2 == nil || *input.Score2 < 0 {
		errs["score2"] = "must be a non-negative integer"
	}
	if len(errs) > 0 {
		failedValidationResponse(w, r, errs)
		return
	}

	current, err := h.bracketService.Load(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	match, ok := current.Find(matchID)
	if !ok {
		mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: %s", brackets.ErrMatchNotFound, matchID))
		return
	}

	updated, err := h.bracketService.SaveScores(r.Context(), tournamentID, match, *input.Score1, *input.Score2)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	saved, _ := updated.Find(matchID)
	response := bracketResponse(updated)
	response["match"] = saved
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func bracketResponse(b brackets.Bracket) jsonResponse {
	rounds := b.Rounds
	if rounds == nil {
		rounds = []models.Round{}
	}
	return jsonResponse{
		"rounds":   rounds,
		"unplaced": b.Unplaced,
		"matches":  b.MatchCount(),
	}
}

func parseTournamentFilter(r *http.Request) (models.TournamentFilter, error) {
	q := r.URL.Query()
	f := models.TournamentFilter{Game: q.Get("game")}

	if s := q.Get("status"); s != "" {
		status := models.TournamentStatus(s)
		switch status {
		case models.TournamentStatusUpcoming, models.TournamentStatusOngoing,
			models.TournamentStatusCompleted, models.TournamentStatusCancelled:
			f.Status = &status
		default:
			return f, fmt.Errorf("unknown status %q", s)
		}
	}

	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		return f, errors.New("limit must be a non-negative integer")
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		return f, errors.New("offset must be a non-negative integer")
	}
	return f, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}
