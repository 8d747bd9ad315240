package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/mob-esports/metrics"
	"github.com/Dosada05/mob-esports/models"
)

var ErrRelayStopped = errors.New("realtime: relay stopped")

type upstream struct {
	conn    *Connection
	pending int
}

// Relay bridges browser sockets of the console to the platform's realtime
// channel. Every room (a console session) shares one upstream Connection,
// opened on the first Join and closed when the room empties.
type Relay struct {
	cfg    Config
	logger *slog.Logger
	opts   []Option
	hub    *Hub

	mu       sync.Mutex
	upstream map[string]*upstream
	stopped  bool
}

func NewRelay(cfg Config, logger *slog.Logger, opts ...Option) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "relay")),
		opts:     opts,
		upstream: make(map[string]*upstream),
	}
	r.hub = NewHub(logger, r.forward, r.release)
	return r
}

// Run drives the hub until ctx is done and then closes every upstream.
func (r *Relay) Run(ctx context.Context) {
	r.hub.Run(ctx)

	r.mu.Lock()
	r.stopped = true
	conns := make([]*Connection, 0, len(r.upstream))
	for room, u := range r.upstream {
		conns = append(conns, u.conn)
		delete(r.upstream, room)
	}
	r.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Join attaches a browser socket to room, opening the room's upstream
// connection with token when it is the first one.
func (r *Relay) Join(ws *websocket.Conn, room, token string) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		ws.Close()
		return ErrRelayStopped
	}
	u, ok := r.upstream[room]
	if !ok {
		conn := New(r.cfg, r.logger, r.opts...)
		conn.AddListener(func(msg models.Message) {
			r.hub.BroadcastToRoom(room, msg)
		})
		if err := conn.Open(token); err != nil {
			r.mu.Unlock()
			ws.Close()
			return err
		}
		u = &upstream{conn: conn}
		r.upstream[room] = u
		r.logger.Info("upstream opened", slog.String("room", room))
	}
	u.pending++
	r.mu.Unlock()

	client := r.hub.Attach(ws, room)

	r.mu.Lock()
	u.pending--
	r.mu.Unlock()

	if client == nil {
		return ErrRelayStopped
	}
	return nil
}

// Rooms returns the number of rooms with a live upstream.
func (r *Relay) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.upstream)
}

func (r *Relay) forward(room string, data []byte) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		metrics.RealtimeDropped.WithLabelValues("malformed").Inc()
		return
	}

	r.mu.Lock()
	u, ok := r.upstream[room]
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := u.conn.Send(msg); err != nil {
		r.logger.Warn("failed to forward message upstream", slog.String("room", room), slog.Any("error", err))
	}
}

func (r *Relay) release(room string) {
	r.mu.Lock()
	u, ok := r.upstream[room]
	// a Join between the room emptying and this callback keeps the upstream
	if !ok || u.pending > 0 || r.hub.RoomSize(room) > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.upstream, room)
	r.mu.Unlock()

	u.conn.Close()
	r.logger.Info("upstream released", slog.String("room", room))
}
