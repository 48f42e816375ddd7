package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matheus3301/wppchat/internal/store"
	"github.com/matheus3301/wppchat/internal/wire"
)

// Kind says what a push event describes.
type Kind string

const (
	KindMessage  Kind = "message"
	KindStatus   Kind = "status"
	KindReaction Kind = "reaction"
	KindDeleted  Kind = "deleted"
)

// Event is one decoded server push. Message is set for KindMessage; the
// other kinds identify their target through ChatID and MessageID.
type Event struct {
	Kind      Kind
	ChatID    string
	MessageID string
	Message   store.Message
	Status    store.Status
	Reaction  store.Reaction
}

// DecodeError is a push payload that could not be turned into an Event.
type DecodeError struct {
	Reason string
	Raw    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode push event: %s: %s", e.Reason, e.Raw)
}

const maxRawInError = 256

func decodeError(raw []byte, format string, args ...any) error {
	r := string(raw)
	if len(r) > maxRawInError {
		r = r[:maxRawInError] + "..."
	}
	return &DecodeError{Reason: fmt.Sprintf(format, args...), Raw: r}
}

var kindAliases = map[string]Kind{
	"message":          KindMessage,
	"message.created":  KindMessage,
	"new_message":      KindMessage,
	"status":           KindStatus,
	"message.status":   KindStatus,
	"reaction":         KindReaction,
	"message.reaction": KindReaction,
	"deleted":          KindDeleted,
	"message.deleted":  KindDeleted,
}

type envelope struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Payload json.RawMessage `json:"payload"`
}

type targetFields struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	Status    string `json:"status"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
}

func (t targetFields) messageID() string {
	if t.MessageID != "" {
		return t.MessageID
	}
	return t.ID
}

// Decode turns one raw payload into an Event. name is the transport-level
// event name (the SSE "event:" field) and may be empty. The payload is
// either an envelope {"type": ..., "data": ...} or a bare message object.
func Decode(name string, raw []byte) (Event, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Event{}, decodeError(raw, "payload is not a JSON object")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, decodeError(raw, "%v", err)
	}
	typ := strings.ToLower(strings.TrimSpace(env.Type))
	body := env.Data
	if body == nil {
		body = env.Payload
	}
	if body == nil {
		// Bare object: a "type" field may belong to the message itself.
		body = raw
		if _, known := kindAliases[typ]; !known {
			typ = strings.ToLower(strings.TrimSpace(name))
		}
	}
	if typ == "" {
		typ = string(KindMessage)
	}
	kind, ok := kindAliases[typ]
	if !ok {
		return Event{}, decodeError(raw, "unknown event type %q", typ)
	}

	if kind == KindMessage {
		var m wire.Message
		if err := json.Unmarshal(body, &m); err != nil {
			return Event{}, decodeError(raw, "%v", err)
		}
		if m.ID == "" || m.ChatID == "" {
			return Event{}, decodeError(raw, "message without id or chatId")
		}
		sm := m.ToStore()
		return Event{Kind: KindMessage, ChatID: sm.ChatID, MessageID: sm.ID, Message: sm}, nil
	}

	var t targetFields
	if err := json.Unmarshal(body, &t); err != nil {
		return Event{}, decodeError(raw, "%v", err)
	}
	evt := Event{Kind: kind, ChatID: t.ChatID, MessageID: t.messageID()}
	if evt.ChatID == "" || evt.MessageID == "" {
		return Event{}, decodeError(raw, "%s event without messageId or chatId", kind)
	}
	switch kind {
	case KindStatus:
		evt.Status = store.Status(strings.ToLower(t.Status))
		if !evt.Status.Valid() || evt.Status == store.StatusSending {
			return Event{}, decodeError(raw, "invalid status %q", t.Status)
		}
	case KindReaction:
		if t.Emoji == "" || t.UserID == "" {
			return Event{}, decodeError(raw, "reaction without emoji or userId")
		}
		evt.Reaction = store.Reaction{Emoji: t.Emoji, UserID: t.UserID}
	}
	return evt, nil
}
