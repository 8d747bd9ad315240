package models

import (
	"errors"

	"github.com/goccy/go-json"
)

// Realtime message types. The connection:* ones are produced locally by the
// realtime client, never by the server.
const (
	MessageChat          = "chat:message"
	MessageNotification  = "notification"
	MessageFriendUpdate  = "friend:update"
	MessageFriendRequest = "friend:request"

	MessageConnectionOpened = "connection:opened"
	MessageConnectionClosed = "connection:closed"
	MessageConnectionError  = "connection:error"
)

var ErrMessageMalformed = errors.New("message is not an object with a string type")

// Message is a tagged realtime record: a `type` plus whatever fields the
// sender attached.
type Message struct {
	Type   string
	Fields map[string]any
}

// NewMessage builds a message of the given type with optional fields.
func NewMessage(typ string, fields map[string]any) Message {
	if fields == nil {
		fields = map[string]any{}
	}
	return Message{Type: typ, Fields: fields}
}

// String returns a field as a string, or "" when absent or not a string.
func (m Message) String(key string) string {
	v, _ := m.Fields[key].(string)
	return v
}

// Synthetic reports whether the message was generated by the client itself.
func (m Message) Synthetic() bool {
	switch m.Type {
	case MessageConnectionOpened, MessageConnectionClosed, MessageConnectionError:
		return true
	}
	return false
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}
	out["type"] = m.Type
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return ErrMessageMalformed
	}
	typ, ok := raw["type"].(string)
	if !ok || typ == "" {
		return ErrMessageMalformed
	}
	delete(raw, "type")
	m.Type = typ
	m.Fields = raw
	return nil
}

// Decode unmarshals the message fields into a typed payload.
func (m Message) Decode(dst any) error {
	b, err := json.Marshal(m.Fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
