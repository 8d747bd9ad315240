package brackets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/mob-esports/models"
)

type saveCall struct {
	tournamentID string
	match        models.Match
	s1, s2       int
}

type fakeSaver struct {
	calls  []saveCall
	err    error
	result Bracket
}

func (f *fakeSaver) SaveScores(_ context.Context, tournamentID string, m models.Match, s1, s2 int) (Bracket, error) {
	f.calls = append(f.calls, saveCall{tournamentID: tournamentID, match: m, s1: s1, s2: s2})
	if f.err != nil {
		return Bracket{}, f.err
	}
	return f.result, nil
}

func testBracket() Bracket {
	return Group([]models.Match{
		{ID: "m1", Round: 1, Team1ID: ref("A"), Team2ID: ref("B"), Status: models.MatchStatusUpcoming},
		{ID: "m2", Round: 2, Status: models.MatchStatusUpcoming},
	})
}

func TestEditor_SelectUnknownMatch(t *testing.T) {
	e := NewEditor("t1", testBracket(), &fakeSaver{})

	assert.ErrorIs(t, e.Select("nope"), ErrMatchNotFound)
	assert.Equal(t, StateNoSelection, e.State())
}

func TestEditor_InvalidTransitions(t *testing.T) {
	e := NewEditor("t1", testBracket(), &fakeSaver{})

	assert.ErrorIs(t, e.Edit(), ErrInvalidTransition)
	assert.ErrorIs(t, e.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, e.SetScores("1", "0"), ErrInvalidTransition)
	assert.ErrorIs(t, e.Save(context.Background()), ErrInvalidTransition)

	require.NoError(t, e.Select("m1"))
	assert.ErrorIs(t, e.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, e.Save(context.Background()), ErrInvalidTransition)
}

func TestEditor_SaveSuccess(t *testing.T) {
	updated := Group([]models.Match{
		{ID: "m1", Round: 1, Team1ID: ref("A"), Team2ID: ref("B"), Score1: intRef(3), Score2: intRef(1), WinnerID: ref("A"), Status: models.MatchStatusCompleted},
		{ID: "m2", Round: 2, Team1ID: ref("A"), Status: models.MatchStatusUpcoming},
	})
	saver := &fakeSaver{result: updated}
	e := NewEditor("t1", testBracket(), saver)

	require.NoError(t, e.Select("m1"))
	require.NoError(t, e.Edit())
	require.NoError(t, e.SetScores("3", " 1 "))
	require.NoError(t, e.Save(context.Background()))

	require.Len(t, saver.calls, 1)
	assert.Equal(t, "t1", saver.calls[0].tournamentID)
	assert.Equal(t, "m1", saver.calls[0].match.ID)
	assert.Equal(t, 3, saver.calls[0].s1)
	assert.Equal(t, 1, saver.calls[0].s2)

	assert.Equal(t, StateViewing, e.State())
	sel, ok := e.Selected()
	require.True(t, ok)
	assert.Equal(t, models.MatchStatusCompleted, sel.Status)
	assert.Equal(t, updated, e.Bracket())
	s1, s2 := e.Scores()
	assert.Equal(t, "3", s1)
	assert.Equal(t, "1", s2)
}

func TestEditor_SaveFailureStaysEditing(t *testing.T) {
	saver := &fakeSaver{err: errors.New("boom")}
	e := NewEditor("t1", testBracket(), saver)

	require.NoError(t, e.Select("m1"))
	require.NoError(t, e.Edit())
	require.NoError(t, e.SetScores("2", "1"))

	assert.EqualError(t, e.Save(context.Background()), "boom")
	assert.Equal(t, StateEditing, e.State())
	s1, s2 := e.Scores()
	assert.Equal(t, "2", s1)
	assert.Equal(t, "1", s2)
	assert.Equal(t, testBracket(), e.Bracket())
}

func TestEditor_SaveRejectsBadScores(t *testing.T) {
	tests := []struct {
		name   string
		s1, s2 string
	}{
		{name: "empty", s1: "", s2: "1"},
		{name: "negative", s1: "1", s2: "-1"},
		{name: "not a number", s1: "x", s2: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := &fakeSaver{}
			e := NewEditor("t1", testBracket(), saver)
			require.NoError(t, e.Select("m1"))
			require.NoError(t, e.Edit())
			require.NoError(t, e.SetScores(tt.s1, tt.s2))

			assert.ErrorIs(t, e.Save(context.Background()), ErrInvalidScore)
			assert.Empty(t, saver.calls)
			assert.Equal(t, StateEditing, e.State())
		})
	}
}

func TestEditor_CancelRestoresScores(t *testing.T) {
	b := Group([]models.Match{
		{ID: "m1", Round: 1, Team1ID: ref("A"), Team2ID: ref("B"), Score1: intRef(1), Score2: intRef(1)},
	})
	e := NewEditor("t1", b, &fakeSaver{})

	require.NoError(t, e.Select("m1"))
	require.NoError(t, e.Edit())
	require.NoError(t, e.SetScores("9", "9"))
	require.NoError(t, e.Cancel())

	assert.Equal(t, StateViewing, e.State())
	s1, s2 := e.Scores()
	assert.Equal(t, "1", s1)
	assert.Equal(t, "1", s2)
}

func TestEditor_SelectWhileEditingDiscards(t *testing.T) {
	e := NewEditor("t1", testBracket(), &fakeSaver{})

	require.NoError(t, e.Select("m1"))
	require.NoError(t, e.Edit())
	require.NoError(t, e.SetScores("5", "0"))
	require.NoError(t, e.Select("m2"))

	assert.Equal(t, StateViewing, e.State())
	sel, _ := e.Selected()
	assert.Equal(t, "m2", sel.ID)
	s1, _ := e.Scores()
	assert.Empty(t, s1)
}

func TestEditor_RefreshDropsVanishedSelection(t *testing.T) {
	e := NewEditor("t1", testBracket(), &fakeSaver{})
	require.NoError(t, e.Select("m2"))

	e.Refresh(Group([]models.Match{{ID: "m1", Round: 1}}))

	assert.Equal(t, StateNoSelection, e.State())
	_, ok := e.Selected()
	assert.False(t, ok)
}

func TestEditor_RefreshKeepsTypedScores(t *testing.T) {
	e := NewEditor("t1", testBracket(), &fakeSaver{})
	require.NoError(t, e.Select("m1"))
	require.NoError(t, e.Edit())
	require.NoError(t, e.SetScores("4", "2"))

	e.Refresh(testBracket())

	assert.Equal(t, StateEditing, e.State())
	s1, s2 := e.Scores()
	assert.Equal(t, "4", s1)
	assert.Equal(t, "2", s2)
}
