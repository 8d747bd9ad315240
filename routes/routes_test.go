package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/Dosada05/mob-esports/brackets"
	"github.com/Dosada05/mob-esports/handlers"
	"github.com/Dosada05/mob-esports/middleware"
	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/services"
	"github.com/Dosada05/mob-esports/storage"
)

type stubAuth struct{}

func (stubAuth) Login(context.Context, models.Credentials) (*models.ConsoleSession, error) {
	return nil, services.ErrAuthenticationFailed
}
func (stubAuth) Logout(context.Context, string) error { return nil }
func (stubAuth) Resolve(_ context.Context, id string) (*models.ConsoleSession, error) {
	roles := map[string]string{"p": "player", "o": "organizer", "a": "admin"}
	role, ok := roles[id]
	if !ok {
		return nil, services.ErrSessionExpired
	}
	return &models.ConsoleSession{ID: id, Token: "tok-" + id, User: models.User{ID: id, RoleName: role}}, nil
}
func (stubAuth) Sweep(context.Context) (int64, error) { return 0, nil }

type stubTournaments struct{}

func (stubTournaments) List(context.Context, models.TournamentFilter) ([]models.Tournament, error) {
	return nil, nil
}
func (stubTournaments) Get(_ context.Context, id string) (*models.Tournament, error) {
	return &models.Tournament{ID: id}, nil
}
func (stubTournaments) Join(context.Context, string) error { return nil }

type stubBrackets struct{}

var stubMatches = []models.Match{{ID: "m1", Round: 1}}

func (stubBrackets) Load(context.Context, string) (brackets.Bracket, error) {
	return brackets.Group(stubMatches), nil
}
func (stubBrackets) LoadTournament(_ context.Context, id string) (*models.Tournament, error) {
	return &models.Tournament{ID: id}, nil
}
func (stubBrackets) SaveScores(context.Context, string, models.Match, int, int) (brackets.Bracket, error) {
	return brackets.Group(stubMatches), nil
}
func (stubBrackets) Generate(context.Context, string) (brackets.Bracket, error) {
	return brackets.Group(stubMatches), nil
}
func (stubBrackets) Preview(context.Context, string, string) (brackets.Bracket, error) {
	return brackets.Bracket{}, nil
}

type stubUsers struct{}

func (stubUsers) List(context.Context) ([]models.User, error) { return nil, nil }
func (stubUsers) UpdateRole(_ context.Context, id string, role models.Role) (*models.User, error) {
	return &models.User{ID: id, RoleName: role.String()}, nil
}

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, key, _ string, _ io.Reader) (*storage.UploadResult, error) {
	return &storage.UploadResult{Key: key, Location: "https://cdn/" + key}, nil
}
func (stubUploader) Delete(context.Context, string) error { return nil }
func (stubUploader) GetPublicURL(key string) string      { return "https://cdn/" + key }

type stubRelay struct{}

func (stubRelay) Join(ws *websocket.Conn, _, _ string) error { return ws.Close() }

func newRouter() http.Handler {
	router := chi.NewRouter()
	SetupRoutes(router,
		Options{Resolver: stubAuth{}, AllowedOrigins: []string{"http://app.mob.test"}, LoginRate: 2},
		handlers.NewAuthHandler(stubAuth{}, false),
		handlers.NewTournamentHandler(stubTournaments{}, stubBrackets{}),
		handlers.NewAdminUserHandler(stubUsers{}),
		handlers.NewUploadHandler(stubUploader{}, ""),
		handlers.NewWebSocketHandler(stubRelay{}, []string{"http://app.mob.test"}),
	)
	return router
}

func TestRoutes_AccessTable(t *testing.T) {
	router := newRouter()

	tests := []struct {
		method  string
		path    string
		body    string
		session string
		want    int
	}{
		{http.MethodGet, "/healthz", "", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", "", http.StatusOK},
		{http.MethodGet, "/tournaments", "", "", http.StatusOK},
		{http.MethodGet, "/tournaments/t1", "", "", http.StatusOK},
		{http.MethodGet, "/tournaments/t1/bracket", "", "", http.StatusOK},
		{http.MethodGet, "/auth/me", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/auth/me", "", "p", http.StatusOK},

		{http.MethodPost, "/tournaments/t1/join", "", "", http.StatusUnauthorized},
		{http.MethodPost, "/tournaments/t1/join", "", "p", http.StatusOK},

		{http.MethodPost, "/tournaments/t1/bracket", "", "p", http.StatusForbidden},
		{http.MethodPost, "/tournaments/t1/bracket", "", "o", http.StatusCreated},
		{http.MethodPut, "/tournaments/t1/matches/m1", `{"score1":1,"score2":0}`, "", http.StatusUnauthorized},
		{http.MethodPut, "/tournaments/t1/matches/m1", `{"score1":1,"score2":0}`, "p", http.StatusForbidden},
		{http.MethodPut, "/tournaments/t1/matches/m1", `{"score1":1,"score2":0}`, "o", http.StatusOK},
		{http.MethodPut, "/tournaments/t1/matches/m1", `{"score1":1,"score2":0}`, "a", http.StatusOK},

		{http.MethodGet, "/admin/users", "", "o", http.StatusForbidden},
		{http.MethodGet, "/admin/users", "", "a", http.StatusOK},
		{http.MethodPatch, "/admin/users/u1/role", `{"role":"admin"}`, "p", http.StatusForbidden},
		{http.MethodPatch, "/admin/users/u1/role", `{"role":"admin"}`, "a", http.StatusOK},

		{http.MethodPost, "/uploads", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/ws", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" as "+tt.session, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.session != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tt.session})
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutes_LoginIsRateLimited(t *testing.T) {
	router := newRouter()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"neo@mob.gg","password":"secret1"}`))
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodOptions, "/tournaments", nil)
	req.Header.Set("Origin", "http://app.mob.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://app.mob.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
