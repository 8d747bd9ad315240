package realtime

import (
	"log/slog"
	"sync"

	"github.com/Dosada05/mob-esports/models"
)

// Manager follows the session token: a non-empty token gets exactly one live
// Connection, a changed token replaces it, an empty token releases it.
// Listeners registered on the Manager survive those replacements.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	opts   []Option

	mu    sync.Mutex
	token string
	conn  *Connection

	listeners *registry
}

func NewManager(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		logger:    logger,
		opts:      opts,
		listeners: newRegistry(),
	}
}

// SetToken opens, replaces or releases the connection to match token.
func (m *Manager) SetToken(token string) error {
	m.mu.Lock()
	if token == m.token && (m.conn != nil || token == "") {
		m.mu.Unlock()
		return nil
	}
	old := m.conn
	m.conn = nil
	m.token = token

	var openErr error
	if token != "" {
		conn := New(m.cfg, m.logger, m.opts...)
		conn.AddListener(m.listeners.emit)
		if openErr = conn.Open(token); openErr == nil {
			m.conn = conn
		} else {
			m.token = ""
		}
	}
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			m.logger.Debug("closing replaced realtime connection", slog.Any("error", err))
		}
	}
	return openErr
}

// Release closes the live connection, if any.
func (m *Manager) Release() error {
	return m.SetToken("")
}

// Send forwards to the live connection; without one it is a no-op like
// Connection.Send on a closed socket.
func (m *Manager) Send(msg models.Message) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Send(msg)
}

// Status of the live connection, or StatusClosed without one.
func (m *Manager) Status() Status {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return StatusClosed
	}
	return conn.Status()
}

func (m *Manager) AddListener(fn Listener) ListenerID {
	return m.listeners.add(fn)
}

func (m *Manager) RemoveListener(id ListenerID) bool {
	return m.listeners.remove(id)
}

func (m *Manager) Subscribe(buffer int) (<-chan models.Message, func()) {
	return m.listeners.subscribe(buffer)
}
