package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/mob-esports/models"
)

type fakeTimer struct {
	clock   *fakeClock
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock records timers instead of running them.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) after(d time.Duration, fn func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, delay: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *fakeClock) scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// fire runs the most recent pending timer, as the runtime would.
func (c *fakeClock) fire() bool {
	c.mu.Lock()
	var next *fakeTimer
	for i := len(c.timers) - 1; i >= 0; i-- {
		if t := c.timers[i]; !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	c.mu.Unlock()
	if next == nil {
		return false
	}
	next.fn()
	return true
}

type readResult struct {
	data []byte
	err  error
}

type fakeTransport struct {
	reads chan readResult
	done  chan struct{}

	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		reads: make(chan readResult, 16),
		done:  make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case r := <-t.reads:
		return r.data, r.err
	case <-t.done:
		return nil, io.EOF
	}
}

func (t *fakeTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("write on closed transport")
	}
	t.written = append(t.written, data)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	return nil
}

func (t *fakeTransport) writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}

func (t *fakeTransport) push(data string) {
	t.reads <- readResult{data: []byte(data)}
}

func (t *fakeTransport) fail(err error) {
	t.reads <- readResult{err: err}
}

type fakeDialer struct {
	mu         sync.Mutex
	endpoints  []string
	transports []*fakeTransport
	failNext   int
}

func (d *fakeDialer) Dial(_ context.Context, endpoint string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints = append(d.endpoints, endpoint)
	if d.failNext > 0 {
		d.failNext--
		return nil, errors.New("connection refused")
	}
	tr := newFakeTransport()
	d.transports = append(d.transports, tr)
	return tr, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.endpoints)
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

func newTestConnection(t *testing.T) (*Connection, *fakeDialer, *fakeClock) {
	t.Helper()
	dialer := &fakeDialer{}
	clock := &fakeClock{}
	conn := New(Config{
		BaseURL:        "ws://mob.test/ws",
		ReconnectDelay: 2 * time.Second,
	}, nil, WithDialer(dialer))
	conn.after = clock.after
	t.Cleanup(func() { conn.Close() })
	return conn, dialer, clock
}

// waitFor reads from events until a message of type typ arrives.
func waitFor(t *testing.T, events <-chan models.Message, typ string) models.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", typ)
			}
			if msg.Type == typ {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func assertNoEvent(t *testing.T, events <-chan models.Message, wait time.Duration) {
	t.Helper()
	select {
	case msg := <-events:
		t.Fatalf("unexpected event %s", msg.Type)
	case <-time.After(wait):
	}
}
