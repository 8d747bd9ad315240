package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/mob-esports/apiclient"
	"github.com/Dosada05/mob-esports/brackets"
	"github.com/Dosada05/mob-esports/middleware"
	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/services"
	"github.com/Dosada05/mob-esports/storage"
)

func intRef(v int) *int       { return &v }
func strRef(v string) *string { return &v }

type fakeSessions map[string]*models.ConsoleSession

func (f fakeSessions) Resolve(_ context.Context, id string) (*models.ConsoleSession, error) {
	s, ok := f[id]
	if !ok {
		return nil, services.ErrSessionExpired
	}
	return s, nil
}

var sessions = fakeSessions{
	"sess-player":    {ID: "sess-player", Token: "tok-player", User: models.User{ID: "u1", Username: "neo", RoleName: "player"}},
	"sess-organizer": {ID: "sess-organizer", Token: "tok-org", User: models.User{ID: "u2", Username: "morpheus", RoleName: "organizer"}},
	"sess-admin":     {ID: "sess-admin", Token: "tok-admin", User: models.User{ID: "u3", Username: "oracle", RoleName: "admin"}},
}

type fakeAuthService struct {
	loginErr  error
	loggedOut []string
}

func (f *fakeAuthService) Login(_ context.Context, creds models.Credentials) (*models.ConsoleSession, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	s := *sessions["sess-player"]
	s.User.Email = creds.Email
	return &s, nil
}

func (f *fakeAuthService) Logout(_ context.Context, id string) error {
	f.loggedOut = append(f.loggedOut, id)
	return nil
}

func (f *fakeAuthService) Resolve(ctx context.Context, id string) (*models.ConsoleSession, error) {
	return sessions.Resolve(ctx, id)
}

func (f *fakeAuthService) Sweep(context.Context) (int64, error) { return 0, nil }

type fakeTournaments struct {
	mu      sync.Mutex
	filters []models.TournamentFilter
	joined  []string
	tokens  []string
	joinErr error
}

func (f *fakeTournaments) List(ctx context.Context, filter models.TournamentFilter) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return []models.Tournament{{ID: "t1", Name: "Spring Cup", Status: models.TournamentStatusOngoing}}, nil
}

func (f *fakeTournaments) Get(_ context.Context, id string) (*models.Tournament, error) {
	return &models.Tournament{ID: id}, nil
}

func (f *fakeTournaments) Join(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, _ := apiclient.TokenFromContext(ctx)
	f.tokens = append(f.tokens, tok)
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joined = append(f.joined, id)
	return nil
}

type fakeBrackets struct {
	matches []models.Match
	saved   []models.MatchUpdate
	err     error
}

func (f *fakeBrackets) Load(_ context.Context, tournamentID string) (brackets.Bracket, error) {
	if f.err != nil {
		return brackets.Bracket{}, f.err
	}
	return brackets.Group(f.matches), nil
}

func (f *fakeBrackets) LoadTournament(_ context.Context, id string) (*models.Tournament, error) {
	if id == "missing" {
		return nil, services.ErrTournamentNotFound
	}
	return &models.Tournament{ID: id, Name: "Spring Cup"}, nil
}

func (f *fakeBrackets) SaveScores(_ context.Context, _ string, m models.Match, s1, s2 int) (brackets.Bracket, error) {
	upd := brackets.BuildUpdate(m, s1, s2)
	f.saved = append(f.saved, upd)
	for i := range f.matches {
		if f.matches[i].ID == m.ID {
			f.matches[i].Score1 = intRef(s1)
			f.matches[i].Score2 = intRef(s2)
			f.matches[i].WinnerID = upd.WinnerID
			f.matches[i].Status = upd.Status
		}
	}
	return brackets.Group(f.matches), nil
}

func (f *fakeBrackets) Generate(_ context.Context, _ string) (brackets.Bracket, error) {
	return brackets.Group(f.matches), nil
}

func (f *fakeBrackets) Preview(_ context.Context, _ string, format string) (brackets.Bracket, error) {
	gen, err := brackets.GeneratorFor(format)
	if err != nil {
		return brackets.Bracket{}, errors.Join(services.ErrValidationFailed, err)
	}
	ms, err := gen.Generate([]models.Participant{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}})
	if err != nil {
		return brackets.Bracket{}, err
	}
	return brackets.Group(ms), nil
}

type fakeUsers struct {
	updated map[string]models.Role
	err     error
}

func (f *fakeUsers) List(context.Context) ([]models.User, error) {
	return []models.User{{ID: "u1", RoleName: "player"}}, f.err
}

func (f *fakeUsers) UpdateRole(_ context.Context, id string, role models.Role) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.updated == nil {
		f.updated = map[string]models.Role{}
	}
	f.updated[id] = role
	return &models.User{ID: id, RoleName: role.String()}, nil
}

type fakeUploader struct {
	keys    []string
	content []string
}

func (f *fakeUploader) Upload(_ context.Context, key, contentType string, r io.Reader) (*storage.UploadResult, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.keys = append(f.keys, key)
	f.content = append(f.content, string(b))
	return &storage.UploadResult{Key: key, Location: "https://cdn.mob.test/" + key}, nil
}

func (f *fakeUploader) Delete(context.Context, string) error { return storage.ErrDeleteUnsupported }

func (f *fakeUploader) GetPublicURL(key string) string { return "https://cdn.mob.test/" + key }

type fakeRelay struct {
	mu     sync.Mutex
	rooms  []string
	tokens []string
}

func (f *fakeRelay) Join(ws *websocket.Conn, room, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, room)
	f.tokens = append(f.tokens, token)
	return ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"connection:opened"}`))
}

// serve mounts handler at pattern behind the session middleware.
func serve(method, pattern string, handler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(sessions, nil))
	r.MethodFunc(method, pattern, handler)
	return r
}

func do(t *testing.T, h http.Handler, method, target, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: session})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
