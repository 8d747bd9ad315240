package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/mob-esports/metrics"
	"github.com/Dosada05/mob-esports/models"
)

var (
	ErrEmptyToken  = errors.New("realtime: token must not be empty")
	ErrClosed      = errors.New("realtime: connection closed")
	ErrAlreadyOpen = errors.New("realtime: connection already opened")
)

// Status is derived from transport events; callers cannot set it.
type Status int32

const (
	StatusConnecting Status = iota
	StatusOpen
	StatusClosed
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusError:
		return "error"
	default:
		return "closed"
	}
}

// Config configures a Connection.
type Config struct {
	BaseURL          string        // ws(s) endpoint without the token
	ReconnectDelay   time.Duration // fixed delay between an unexpected close and the next dial
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 3 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Option customises a Connection.
type Option func(*Connection)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Connection) { c.dialer = d }
}

// Connection owns a single websocket session for one token. After an
// unexpected close it redials after Config.ReconnectDelay, forever, until
// Close is called. Inbound messages and the synthetic connection:* events are
// fanned out to every registered listener.
type Connection struct {
	cfg    Config
	logger *slog.Logger
	dialer Dialer
	after  afterFunc

	mu         sync.Mutex
	endpoint   string
	socket     Transport
	generation uint64 // bumped on every dial; stale sockets compare against it
	status     Status
	opened     bool
	closed     bool

	reconnect    timer
	reconnectSeq uint64

	writeMu sync.Mutex

	listeners *registry
}

// New creates an idle Connection. Call Open to start it.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	c := &Connection{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "realtime")),
		after:     realAfterFunc,
		status:    StatusClosed,
		listeners: newRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer(cfg.HandshakeTimeout, cfg.WriteTimeout)
	}
	return c
}

// Endpoint builds the websocket URL for token by setting the token query
// parameter on base. Existing query parameters are kept.
func Endpoint(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("realtime: invalid base url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open starts the handshake for token and returns immediately; the outcome is
// reported to listeners as connection:opened or connection:error followed by
// connection:closed.
func (c *Connection) Open(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	endpoint, err := Endpoint(c.cfg.BaseURL, token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.opened {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.opened = true
	c.endpoint = endpoint
	c.status = StatusConnecting
	c.mu.Unlock()

	go c.connect()
	return nil
}

// Status returns the current connection state.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// AddListener registers fn for every subsequent event.
func (c *Connection) AddListener(fn Listener) ListenerID {
	return c.listeners.add(fn)
}

// RemoveListener drops a registration. It reports whether id was registered.
func (c *Connection) RemoveListener(id ListenerID) bool {
	return c.listeners.remove(id)
}

// Subscribe returns a channel receiving every event in arrival order, and a
// cancel func that unregisters it and closes the channel.
func (c *Connection) Subscribe(buffer int) (<-chan models.Message, func()) {
	return c.listeners.subscribe(buffer)
}

// Send writes msg when the connection is open. Otherwise the message is
// dropped and Send returns nil: the channel is best effort, nothing is queued.
func (c *Connection) Send(msg models.Message) error {
	c.mu.Lock()
	sock := c.socket
	open := c.status == StatusOpen && sock != nil
	c.mu.Unlock()

	if !open {
		metrics.RealtimeDropped.WithLabelValues("not_open").Inc()
		c.logger.Debug("dropping message, connection not open", slog.String("type", msg.Type))
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("realtime: encode %s message: %w", msg.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := sock.WriteMessage(data); err != nil {
		return fmt.Errorf("realtime: write %s message: %w", msg.Type, err)
	}
	return nil
}

// Close tears the connection down and cancels a pending reconnect. The
// Connection is terminal afterwards.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelReconnectLocked()
	sock := c.socket
	c.socket = nil
	wasActive := c.status != StatusClosed
	c.status = StatusClosed
	c.mu.Unlock()

	var err error
	if sock != nil {
		c.writeMu.Lock()
		err = sock.Close()
		c.writeMu.Unlock()
	}
	if wasActive {
		c.listeners.emit(models.NewMessage(models.MessageConnectionClosed, map[string]any{
			"code":   websocket.CloseNormalClosure,
			"reason": "closed by client",
		}))
	}
	c.logger.Debug("connection closed by client")
	return err
}

func (c *Connection) connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.status = StatusConnecting
	endpoint := c.endpoint
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	sock, err := c.dialer.Dial(ctx, endpoint)
	cancel()

	if err != nil {
		if !c.current(gen) {
			return
		}
		c.logger.Warn("websocket handshake failed", slog.Any("error", err))
		c.fail(gen, err)
		c.closedUnexpectedly(gen, websocket.CloseAbnormalClosure, "handshake failed")
		return
	}

	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		sock.Close()
		return
	}
	c.socket = sock
	c.status = StatusOpen
	c.mu.Unlock()

	c.logger.Info("websocket connected")
	c.listeners.emit(models.NewMessage(models.MessageConnectionOpened, nil))

	c.readLoop(gen, sock)
}

func (c *Connection) readLoop(gen uint64, sock Transport) {
	for {
		data, err := sock.ReadMessage()
		if err != nil {
			if !c.current(gen) {
				return
			}
			code, reason := websocket.CloseAbnormalClosure, err.Error()
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				code, reason = ce.Code, ce.Text
			} else {
				c.fail(gen, err)
			}
			sock.Close()
			c.closedUnexpectedly(gen, code, reason)
			return
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.RealtimeDropped.WithLabelValues("malformed").Inc()
			continue
		}
		c.listeners.emit(msg)
	}
}

// current reports whether gen is still the live attempt of an open Connection.
func (c *Connection) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && gen == c.generation
}

func (c *Connection) fail(gen uint64, err error) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.status = StatusError
	c.mu.Unlock()

	c.listeners.emit(models.NewMessage(models.MessageConnectionError, map[string]any{
		"error": err.Error(),
	}))
}

func (c *Connection) closedUnexpectedly(gen uint64, code int, reason string) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.socket = nil
	c.status = StatusClosed
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	c.logger.Info("websocket closed, reconnect scheduled",
		slog.Int("code", code),
		slog.String("reason", reason),
		slog.Duration("delay", c.cfg.ReconnectDelay),
	)
	c.listeners.emit(models.NewMessage(models.MessageConnectionClosed, map[string]any{
		"code":   code,
		"reason": reason,
	}))
}

// scheduleReconnectLocked keeps at most one pending reconnect: an existing
// timer is stopped before the new one is armed.
func (c *Connection) scheduleReconnectLocked() {
	c.cancelReconnectLocked()
	c.reconnectSeq++
	seq := c.reconnectSeq
	c.reconnect = c.after(c.cfg.ReconnectDelay, func() { c.fireReconnect(seq) })
	metrics.RealtimeReconnects.Inc()
}

func (c *Connection) cancelReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

func (c *Connection) fireReconnect(seq uint64) {
	c.mu.Lock()
	// A timer that raced with Stop must not dial.
	if c.closed || seq != c.reconnectSeq || c.reconnect == nil {
		c.mu.Unlock()
		return
	}
	c.reconnect = nil
	c.mu.Unlock()

	c.connect()
}
