package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is one live socket. A Connection never reuses a Transport after
// it has been closed; reconnecting dials a new one.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens transports. The default implementation uses gorilla/websocket.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Transport, error)
}

type wsDialer struct {
	dialer       *websocket.Dialer
	writeTimeout time.Duration
}

// NewWebsocketDialer returns the gorilla/websocket backed Dialer.
func NewWebsocketDialer(handshakeTimeout, writeTimeout time.Duration) Dialer {
	return &wsDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		writeTimeout: writeTimeout,
	}
}

func (d *wsDialer) Dial(ctx context.Context, endpoint string) (Transport, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")

	conn, resp, err := d.dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn, writeTimeout: d.writeTimeout}, nil
}

type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	if t.writeTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	// Best effort close frame; the server may already be gone.
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}
