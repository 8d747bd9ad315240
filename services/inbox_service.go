package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/mob-esports/models"
)

const defaultHistoryLimit = 100

// MessageSender is satisfied by the realtime Connection and Manager.
type MessageSender interface {
	Send(msg models.Message) error
}

// ChatEntry is one chat line as kept in the per-peer history.
type ChatEntry struct {
	ID       string    `json:"id"`
	Peer     string    `json:"peer"`
	Text     string    `json:"text"`
	Outgoing bool      `json:"outgoing"`
	At       time.Time `json:"at"`
}

type Notification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Link  string `json:"link,omitempty"`
}

// FriendEvent covers both friend:update and friend:request.
type FriendEvent struct {
	Type   string `json:"-"`
	UserID string `json:"userId"`
	From   string `json:"from"`
	Status string `json:"status"`
}

type InboxService interface {
	// Handle is the realtime listener; register it with AddListener.
	Handle(msg models.Message)
	SendChat(to, text string) (ChatEntry, error)
	History(peer string) []ChatEntry
	Unread() int
	MarkRead()
	OnChat(fn func(ChatEntry))
	OnNotification(fn func(Notification))
	OnFriend(fn func(FriendEvent))
}

type inboxService struct {
	sender MessageSender
	logger *slog.Logger
	limit  int
	now    func() time.Time

	mu             sync.Mutex
	history        map[string][]ChatEntry
	unread         int
	chatFns        []func(ChatEntry)
	notificationFn []func(Notification)
	friendFns      []func(FriendEvent)
}

func NewInboxService(sender MessageSender, logger *slog.Logger, historyLimit int) InboxService {
	if logger == nil {
		logger = slog.Default()
	}
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &inboxService{
		sender:  sender,
		logger:  logger.With(slog.String("service", "inbox")),
		limit:   historyLimit,
		now:     time.Now,
		history: make(map[string][]ChatEntry),
	}
}

func (s *inboxService) Handle(msg models.Message) {
	switch msg.Type {
	case models.MessageChat:
		s.handleChat(msg)
	case models.MessageNotification:
		s.handleNotification(msg)
	case models.MessageFriendUpdate, models.MessageFriendRequest:
		s.handleFriend(msg)
	case models.MessageConnectionOpened:
		s.logger.Info("realtime connected")
	case models.MessageConnectionClosed:
		s.logger.Info("realtime disconnected", slog.Any("code", msg.Fields["code"]), slog.String("reason", msg.String("reason")))
	case models.MessageConnectionError:
		s.logger.Warn("realtime error", slog.String("error", msg.String("error")))
	default:
		s.logger.Debug("ignoring realtime message", slog.String("type", msg.Type))
	}
}

func (s *inboxService) handleChat(msg models.Message) {
	entry := ChatEntry{
		ID:   msg.String("id"),
		Peer: msg.String("from"),
		Text: msg.String("text"),
		At:   s.now(),
	}
	if entry.Peer == "" {
		s.logger.Debug("chat message without sender dropped")
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.appendLocked(entry)
	fns := append([]func(ChatEntry){}, s.chatFns...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(entry)
	}
}

func (s *inboxService) handleNotification(msg models.Message) {
	var n Notification
	if err := msg.Decode(&n); err != nil {
		s.logger.Debug("malformed notification dropped", slog.Any("error", err))
		return
	}
	if n.Text == "" {
		n.Text = msg.String("message")
	}

	s.mu.Lock()
	s.unread++
	fns := append([]func(Notification){}, s.notificationFn...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}

func (s *inboxService) handleFriend(msg models.Message) {
	var ev FriendEvent
	if err := msg.Decode(&ev); err != nil {
		s.logger.Debug("malformed friend event dropped", slog.Any("error", err))
		return
	}
	ev.Type = msg.Type

	s.mu.Lock()
	fns := append([]func(FriendEvent){}, s.friendFns...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *inboxService) appendLocked(e ChatEntry) {
	h := append(s.history[e.Peer], e)
	if len(h) > s.limit {
		h = h[len(h)-s.limit:]
	}
	s.history[e.Peer] = h
}

// SendChat sends a chat message to peer. Like every realtime send it is best
// effort: with the connection down nothing is sent and nothing is queued, but
// the line is still kept in the local history.
func (s *inboxService) SendChat(to, text string) (ChatEntry, error) {
	to = strings.TrimSpace(to)
	text = strings.TrimSpace(text)
	if to == "" || text == "" {
		return ChatEntry{}, fmt.Errorf("%w: recipient and text are required", ErrValidationFailed)
	}
	if s.sender == nil {
		return ChatEntry{}, errors.New("inbox has no realtime sender")
	}

	entry := ChatEntry{ID: uuid.NewString(), Peer: to, Text: text, Outgoing: true, At: s.now()}
	msg := models.NewMessage(models.MessageChat, map[string]any{
		"id":   entry.ID,
		"to":   to,
		"text": text,
	})
	if err := s.sender.Send(msg); err != nil {
		return ChatEntry{}, fmt.Errorf("failed to send chat message: %w", err)
	}

	s.mu.Lock()
	s.appendLocked(entry)
	s.mu.Unlock()
	return entry, nil
}

func (s *inboxService) History(peer string) []ChatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatEntry(nil), s.history[peer]...)
}

func (s *inboxService) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *inboxService) MarkRead() {
	s.mu.Lock()
	s.unread = 0
	s.mu.Unlock()
}

func (s *inboxService) OnChat(fn func(ChatEntry)) {
	s.mu.Lock()
	s.chatFns = append(s.chatFns, fn)
	s.mu.Unlock()
}

func (s *inboxService) OnNotification(fn func(Notification)) {
	s.mu.Lock()
	s.notificationFn = append(s.notificationFn, fn)
	s.mu.Unlock()
}

func (s *inboxService) OnFriend(fn func(FriendEvent)) {
	s.mu.Lock()
	s.friendFns = append(s.friendFns, fn)
	s.mu.Unlock()
}
