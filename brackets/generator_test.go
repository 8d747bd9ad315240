package brackets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/mob-esports/models"
)

func participants(n int) []models.Participant {
	out := make([]models.Participant, n)
	for i := range out {
		out[i] = models.Participant{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Team %d", i+1)}
	}
	return out
}

func TestSingleElimination_NotEnough(t *testing.T) {
	_, err := NewSingleEliminationGenerator().Generate(participants(1))
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestSingleElimination_Sizes(t *testing.T) {
	tests := []struct {
		n          int
		rounds     int
		matches    int
		byeMatches int
	}{
		{n: 2, rounds: 1, matches: 1},
		{n: 3, rounds: 2, matches: 3, byeMatches: 1},
		{n: 4, rounds: 2, matches: 3},
		{n: 5, rounds: 3, matches: 7, byeMatches: 3},
		{n: 8, rounds: 3, matches: 7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d participants", tt.n), func(t *testing.T) {
			matches, err := NewSingleEliminationGenerator().Generate(participants(tt.n))
			require.NoError(t, err)
			assert.Len(t, matches, tt.matches)

			byes := 0
			for _, m := range matches {
				if m.Status == models.MatchStatusCompleted {
					byes++
					require.NotNil(t, m.WinnerID)
					assert.Equal(t, m.Team1ID, m.WinnerID)
					assert.Nil(t, m.Team2ID)
				}
			}
			assert.Equal(t, tt.byeMatches, byes)

			b := Group(matches)
			assert.Len(t, b.Rounds, tt.rounds)
			assert.Len(t, b.Rounds[len(b.Rounds)-1].Matches, 1)
		})
	}
}

func TestSingleElimination_ByeAdvances(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().Generate(participants(3))
	require.NoError(t, err)

	b := Group(matches)
	final := b.Rounds[1].Matches[0]
	require.NotNil(t, final.Team1ID)
	assert.Equal(t, "p1", *final.Team1ID)
	assert.Nil(t, final.Team2ID)
}

func TestSingleElimination_EveryoneSeededOnce(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().Generate(participants(6))
	require.NoError(t, err)

	seen := map[string]int{}
	for _, m := range matches {
		if m.Round != 1 {
			continue
		}
		for _, id := range []*string{m.Team1ID, m.Team2ID} {
			if id != nil {
				seen[*id]++
			}
		}
	}
	assert.Len(t, seen, 6)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestRoundRobin_EveryPairOnce(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5} {
		t.Run(fmt.Sprintf("%d participants", n), func(t *testing.T) {
			matches, err := NewRoundRobinGenerator(1).Generate(participants(n))
			require.NoError(t, err)
			assert.Len(t, matches, n*(n-1)/2)

			pairs := map[[2]string]bool{}
			perRound := map[int]map[string]bool{}
			for _, m := range matches {
				a, b := *m.Team1ID, *m.Team2ID
				if a > b {
					a, b = b, a
				}
				key := [2]string{a, b}
				assert.False(t, pairs[key], "pair %v repeated", key)
				pairs[key] = true

				if perRound[m.Round] == nil {
					perRound[m.Round] = map[string]bool{}
				}
				assert.False(t, perRound[m.Round][*m.Team1ID])
				assert.False(t, perRound[m.Round][*m.Team2ID])
				perRound[m.Round][*m.Team1ID] = true
				perRound[m.Round][*m.Team2ID] = true
			}
		})
	}
}

func TestRoundRobin_SecondLegSwapsSides(t *testing.T) {
	matches, err := NewRoundRobinGenerator(2).Generate(participants(4))
	require.NoError(t, err)
	require.Len(t, matches, 12)

	first := map[[2]string]bool{}
	for _, m := range matches[:6] {
		first[[2]string{*m.Team1ID, *m.Team2ID}] = true
	}
	for _, m := range matches[6:] {
		assert.True(t, first[[2]string{*m.Team2ID, *m.Team1ID}])
		assert.Greater(t, m.Round, 3)
	}
}

func TestGeneratorFor(t *testing.T) {
	g, err := GeneratorFor("")
	require.NoError(t, err)
	assert.Equal(t, "SingleElimination", g.Name())

	g, err = GeneratorFor("Round_Robin")
	require.NoError(t, err)
	assert.Equal(t, "RoundRobin", g.Name())

	_, err = GeneratorFor("swiss")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	b, err := Preview(participants(4))
	require.NoError(t, err)

	require.Len(t, b.Rounds, 2)
	assert.Len(t, b.Rounds[0].Matches, 2)
	assert.Equal(t, "R2M1", b.Rounds[1].Matches[0].ID)
}
