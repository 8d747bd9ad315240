package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Relay joins an upgraded browser socket to its session's realtime room.
type Relay interface {
	Join(ws *websocket.Conn, room, token string) error
}

type WebSocketHandler struct {
	relay    Relay
	upgrader websocket.Upgrader
}

// NewWebSocketHandler принимает только Origin из списка CORS.
// Пустой Origin (не браузер) пропускаем, "*" разрешает всё.
func NewWebSocketHandler(relay Relay, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &WebSocketHandler{
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// ServeWs подключает браузер к realtime-каналу его сессии.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		slog.Warn("failed to upgrade relay connection", slog.String("session", session.ID), slog.Any("error", err))
		return
	}

	if err := h.relay.Join(conn, session.ID, session.Token); err != nil {
		slog.Error("failed to join relay room", slog.String("session", session.ID), slog.Any("error", err))
		return
	}
	slog.Debug("relay client attached", slog.String("session", session.ID), slog.String("user_id", session.User.ID))
}
