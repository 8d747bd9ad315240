package brackets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Dosada05/mob-esports/models"
)

var (
	ErrMatchNotFound     = errors.New("match not found in bracket")
	ErrInvalidTransition = errors.New("invalid editor transition")
	ErrInvalidScore      = errors.New("score must be a non-negative integer")
)

// EditState is the score editor's state.
type EditState int

const (
	StateNoSelection EditState = iota
	StateViewing
	StateEditing
)

func (s EditState) String() string {
	switch s {
	case StateViewing:
		return "viewing"
	case StateEditing:
		return "editing"
	default:
		return "no-selection"
	}
}

// Saver submits a score and returns the bracket as re-read afterwards.
type Saver interface {
	SaveScores(ctx context.Context, tournamentID string, m models.Match, score1, score2 int) (Bracket, error)
}

// Editor is the select/view/edit state machine behind the bracket screen.
// Score fields are kept as raw text, the way a form holds them, and parsed
// only on Save.
type Editor struct {
	tournamentID string
	saver        Saver

	mu       sync.Mutex
	bracket  Bracket
	state    EditState
	selected *models.Match
	score1   string
	score2   string
}

func NewEditor(tournamentID string, bracket Bracket, saver Saver) *Editor {
	return &Editor{
		tournamentID: tournamentID,
		saver:        saver,
		bracket:      bracket,
	}
}

// Select moves to viewing for matchID from any state. Unsaved edits of a
// previous selection are discarded.
func (e *Editor) Select(matchID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.bracket.Find(matchID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	e.selectLocked(m)
	return nil
}

func (e *Editor) selectLocked(m models.Match) {
	e.selected = &m
	e.state = StateViewing
	e.score1 = formatScore(m.Score1)
	e.score2 = formatScore(m.Score2)
}

// Edit moves viewing to editing.
func (e *Editor) Edit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateViewing {
		return fmt.Errorf("%w: edit from %s", ErrInvalidTransition, e.state)
	}
	e.state = StateEditing
	return nil
}

// SetScores updates the score fields while editing.
func (e *Editor) SetScores(score1, score2 string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditing {
		return fmt.Errorf("%w: set scores while %s", ErrInvalidTransition, e.state)
	}
	e.score1 = score1
	e.score2 = score2
	return nil
}

// Cancel leaves editing without submitting and restores the match's scores.
func (e *Editor) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditing {
		return fmt.Errorf("%w: cancel while %s", ErrInvalidTransition, e.state)
	}
	e.selectLocked(*e.selected)
	return nil
}

// Save submits the edited scores. On success the bracket is replaced with the
// re-fetched one and the editor returns to viewing the same match; on failure
// it stays in editing so the user can retry.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateEditing {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: save while %s", ErrInvalidTransition, state)
	}
	match := *e.selected
	s1, err1 := parseScore(e.score1)
	s2, err2 := parseScore(e.score2)
	e.mu.Unlock()

	if err := errors.Join(err1, err2); err != nil {
		return err
	}

	updated, err := e.saver.SaveScores(ctx, e.tournamentID, match, s1, s2)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.bracket = updated
	// a concurrent Select wins over the refreshed selection
	if e.state != StateEditing || e.selected.ID != match.ID {
		return nil
	}
	if m, ok := updated.Find(match.ID); ok {
		e.selectLocked(m)
	} else {
		e.selectLocked(match)
	}
	return nil
}

// Refresh swaps in a re-fetched bracket, keeping the current selection when
// the match still exists. Editing state and typed scores are left untouched.
func (e *Editor) Refresh(b Bracket) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bracket = b
	if e.selected == nil {
		return
	}
	m, ok := b.Find(e.selected.ID)
	if !ok {
		e.selected = nil
		e.state = StateNoSelection
		e.score1, e.score2 = "", ""
		return
	}
	if e.state == StateViewing {
		e.selectLocked(m)
		return
	}
	e.selected = &m
}

func (e *Editor) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Selected returns the selected match, if any.
func (e *Editor) Selected() (models.Match, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == nil {
		return models.Match{}, false
	}
	return *e.selected, true
}

// Scores returns the current score fields.
func (e *Editor) Scores() (string, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score1, e.score2
}

func (e *Editor) Bracket() Bracket {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bracket
}

func formatScore(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseScore(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, s)
	}
	return n, nil
}
