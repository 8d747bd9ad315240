package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/mob-esports/apiclient"
	"github.com/Dosada05/mob-esports/brackets"
	"github.com/Dosada05/mob-esports/models"
)

func strRef(s string) *string { return &s }

func testTournament() *models.Tournament {
	return &models.Tournament{
		ID:   "t1",
		Name: "Spring Cup",
		Participants: []models.Participant{
			{ID: "A", Name: "Alpha"}, {ID: "B", Name: "Bravo"}, {ID: "C", Name: "Charlie"},
		},
		Matches: []models.Match{
			{ID: "m1", Round: 1, Team1ID: strRef("A"), Team2ID: strRef("B"), Status: models.MatchStatusUpcoming},
			{ID: "m2", Round: 2, Status: models.MatchStatusUpcoming},
		},
	}
}

func TestBracketService_Load(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament()}
	svc := NewBracketService(api, nil)

	b, err := svc.Load(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, b.Rounds, 2)
	assert.Equal(t, "m1", b.Rounds[0].Matches[0].ID)
	assert.Equal(t, "m2", b.Rounds[1].Matches[0].ID)
}

func TestBracketService_ConcurrentLoadsShareRequest(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament(), release: make(chan struct{})}
	svc := NewBracketService(api, nil)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]brackets.Bracket, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := svc.Load(context.Background(), "t1")
			assert.NoError(t, err)
			results[i] = b
		}(i)
	}

	require.Eventually(t, func() bool { return api.gets.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(api.release)
	wg.Wait()

	assert.Equal(t, int32(1), api.gets.Load())
	for _, b := range results {
		assert.Equal(t, 2, b.MatchCount())
	}
}

func TestBracketService_LoadsAreScopedToToken(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament(), release: make(chan struct{}), tagToken: true}
	svc := NewBracketService(api, nil)

	tokens := []string{"admin-token", ""}
	names := make([]string, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			ctx := apiclient.ContextWithToken(context.Background(), token)
			tr, err := svc.LoadTournament(ctx, "t1")
			if assert.NoError(t, err) {
				names[i] = tr.Name
			}
		}(i, token)
	}

	require.Eventually(t, func() bool { return api.gets.Load() == 2 }, time.Second, time.Millisecond)
	close(api.release)
	wg.Wait()

	assert.Equal(t, []string{"fetched-with:admin-token", "fetched-with:"}, names)
	assert.ElementsMatch(t, tokens, api.tokens)
}

func TestBracketService_CancelledCallerDoesNotFailJoinedOnes(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament(), release: make(chan struct{})}
	svc := NewBracketService(api, nil)

	base := apiclient.ContextWithToken(context.Background(), "player-token")
	first, cancel := context.WithCancel(base)
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.LoadTournament(first, "t1")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return api.gets.Load() == 1 }, time.Second, time.Millisecond)

	secondDone := make(chan error, 1)
	go func() {
		_, err := svc.LoadTournament(base, "t1")
		secondDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(api.release)
	assert.NoError(t, <-secondDone)
	assert.Equal(t, int32(1), api.gets.Load())
}

func TestBracketService_LoadNotFound(t *testing.T) {
	api := &fakeTournamentAPI{getErr: &apiclient.APIError{StatusCode: http.StatusNotFound, Message: "Tournament not found"}}
	svc := NewBracketService(api, nil)

	_, err := svc.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
}

func TestBracketService_SaveScores(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament()}
	svc := NewBracketService(api, nil)

	b, err := svc.Load(context.Background(), "t1")
	require.NoError(t, err)
	m1, ok := b.Find("m1")
	require.True(t, ok)

	updated, err := svc.SaveScores(context.Background(), "t1", m1, 3, 1)
	require.NoError(t, err)

	require.Len(t, api.updates, 1)
	assert.Equal(t, "A", *api.updates[0].WinnerID)
	assert.Equal(t, 3, api.updates[0].Score1)
	assert.Equal(t, 1, api.updates[0].Score2)
	assert.Equal(t, models.MatchStatusCompleted, api.updates[0].Status)

	got, ok := updated.Find("m1")
	require.True(t, ok)
	assert.Equal(t, models.MatchStatusCompleted, got.Status)
	assert.Equal(t, int32(2), api.gets.Load())
}

func TestBracketService_SaveScoresTieGoesToSideTwo(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament()}
	svc := NewBracketService(api, nil)

	_, err := svc.SaveScores(context.Background(), "t1", api.tournament.Matches[0], 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "B", *api.updates[0].WinnerID)
}

func TestBracketService_SaveScoresFailureSkipsReload(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament(), updateErr: &apiclient.APIError{StatusCode: http.StatusForbidden, Message: "Forbidden"}}
	svc := NewBracketService(api, nil)

	_, err := svc.SaveScores(context.Background(), "t1", api.tournament.Matches[0], 1, 0)
	require.Error(t, err)
	assert.Equal(t, "Forbidden", apiclient.UserMessage(err))
	assert.Zero(t, api.gets.Load())
}

func TestBracketService_EditorRoundTrip(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament()}
	svc := NewBracketService(api, nil)
	b, err := svc.Load(context.Background(), "t1")
	require.NoError(t, err)

	editor := brackets.NewEditor("t1", b, svc)
	require.NoError(t, editor.Select("m1"))
	require.NoError(t, editor.Edit())
	require.NoError(t, editor.SetScores("0", "2"))
	require.NoError(t, editor.Save(context.Background()))

	sel, _ := editor.Selected()
	assert.Equal(t, "B", *sel.WinnerID)
	assert.Equal(t, brackets.StateViewing, editor.State())
}

func TestBracketService_Generate(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament()}
	svc := NewBracketService(api, nil)

	b, err := svc.Generate(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, api.generated)
	_, ok := b.Find("g1")
	assert.True(t, ok)
}

func TestBracketService_Preview(t *testing.T) {
	api := &fakeTournamentAPI{tournament: testTournament()}
	svc := NewBracketService(api, nil)

	b, err := svc.Preview(context.Background(), "t1", "")
	require.NoError(t, err)
	require.Len(t, b.Rounds, 2)
	assert.Len(t, b.Rounds[0].Matches, 2)

	_, err = svc.Preview(context.Background(), "t1", "swiss")
	assert.ErrorIs(t, err, ErrValidationFailed)
}
