package services

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/mob-esports/apiclient"
	"github.com/Dosada05/mob-esports/models"
)

type fakeTournamentAPI struct {
	mu         sync.Mutex
	tournament *models.Tournament
	getErr     error
	updateErr  error
	gets       atomic.Int32
	updates    []models.MatchUpdate
	generated  int
	release    chan struct{} // when set, Get blocks until closed
	tokens     []string
	tagToken   bool // when set, Get names the tournament after the request token
}

func (f *fakeTournamentAPI) Get(ctx context.Context, id string) (*models.Tournament, error) {
	f.gets.Add(1)
	token, _ := apiclient.TokenFromContext(ctx)
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	t := *f.tournament
	if f.tagToken {
		t.Name = "fetched-with:" + token
	}
	return &t, nil
}

func (f *fakeTournamentAPI) UpdateMatch(ctx context.Context, tournamentID, matchID string, in models.MatchUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, in)
	for i, m := range f.tournament.Matches {
		if m.ID == matchID {
			s1, s2 := in.Score1, in.Score2
			m.Score1, m.Score2, m.WinnerID, m.Status = &s1, &s2, in.WinnerID, in.Status
			f.tournament.Matches[i] = m
		}
	}
	return nil
}

func (f *fakeTournamentAPI) GenerateBracket(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated++
	f.tournament.Matches = []models.Match{{ID: "g1", Round: 1}}
	return nil
}

type fakeAuthAPI struct {
	users    map[string]*models.User // token -> user
	password string
	token    string
	meErr    error
	meCalls  atomic.Int32
}

func (f *fakeAuthAPI) Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	if creds.Password != f.password {
		return nil, &apiclient.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return &models.AuthResult{Token: f.token, User: f.users[f.token]}, nil
}

func (f *fakeAuthAPI) Me(ctx context.Context) (*models.User, error) {
	f.meCalls.Add(1)
	if f.meErr != nil {
		return nil, f.meErr
	}
	token, _ := apiclient.TokenFromContext(ctx)
	u, ok := f.users[token]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid token"}
	}
	return u, nil
}

func signedToken(claims jwt.MapClaims) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		panic(err)
	}
	return tok
}

func expiringToken(sub string, exp time.Time) string {
	return signedToken(jwt.MapClaims{"sub": sub, "role": "player", "exp": exp.Unix()})
}

type fakeSender struct {
	mu   sync.Mutex
	sent []models.Message
	err  error
}

func (f *fakeSender) Send(msg models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}
