package realtime

import (
	"sync"

	"github.com/Dosada05/mob-esports/metrics"
	"github.com/Dosada05/mob-esports/models"
)

// Listener receives every event of a connection, synthetic ones included.
type Listener func(models.Message)

// ListenerID identifies a registration. Registering the same function twice
// yields two IDs; removal is always by ID.
type ListenerID uint64

// registry fans events out to listeners in registration order. Listeners are
// invoked without the lock held, so they may add or remove registrations or
// call Send from inside the callback.
type registry struct {
	mu     sync.RWMutex
	nextID ListenerID
	order  []ListenerID
	byID   map[ListenerID]Listener
}

func newRegistry() *registry {
	return &registry{byID: make(map[ListenerID]Listener)}
}

func (r *registry) add(fn Listener) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.byID[id] = fn
	r.order = append(r.order, id)
	return id
}

func (r *registry) remove(id ListenerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *registry) emit(msg models.Message) {
	r.mu.RLock()
	snapshot := make([]Listener, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.byID[id])
	}
	r.mu.RUnlock()

	metrics.RealtimeEvents.WithLabelValues(msg.Type).Inc()
	for _, fn := range snapshot {
		fn(msg)
	}
}

// subscribe registers a channel-backed listener. Each subscriber sees events
// in arrival order; when its buffer is full the event is dropped for that
// subscriber only.
func (r *registry) subscribe(buffer int) (<-chan models.Message, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &subscriber{ch: make(chan models.Message, buffer)}
	id := r.add(sub.deliver)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.remove(id)
			sub.close()
		})
	}
	return sub.ch, cancel
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan models.Message
	closed bool
}

func (s *subscriber) deliver(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
		metrics.RealtimeDropped.WithLabelValues("subscriber_full").Inc()
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
