package api

import (
	"context"
	"fmt"

	"github.com/matheus3301/wppchat/internal/store"
	"github.com/matheus3301/wppchat/internal/wire"
)

// ChatAction is a per-chat toggle exposed by the chat options menu.
type ChatAction string

const (
	ActionPin   ChatAction = "pin"
	ActionMute  ChatAction = "mute"
	ActionBlock ChatAction = "block"
)

// FetchChats loads the conversation list.
func (c *Client) FetchChats(ctx context.Context) ([]store.Chat, error) {
	var raw []wire.Chat
	if err := c.getJSON(ctx, &raw, "api", "chats"); err != nil {
		return nil, err
	}
	chats := make([]store.Chat, 0, len(raw))
	for _, ch := range raw {
		if ch.ID == "" {
			continue
		}
		chats = append(chats, ch.ToStore())
	}
	return chats, nil
}

// FetchContacts loads the address book.
func (c *Client) FetchContacts(ctx context.Context) ([]store.Contact, error) {
	var raw []wire.Contact
	if err := c.getJSON(ctx, &raw, "api", "contacts"); err != nil {
		return nil, err
	}
	contacts := make([]store.Contact, 0, len(raw))
	for _, ct := range raw {
		if ct.ID == "" {
			continue
		}
		contacts = append(contacts, ct.ToStore())
	}
	return contacts, nil
}

type chatBody struct {
	WaID string `json:"waId"`
}

// Chat toggles pin, mute or block on a chat. The server flips the flag.
func (c *Client) Chat(ctx context.Context, action ChatAction, chatID string) error {
	switch action {
	case ActionPin, ActionMute, ActionBlock:
	default:
		return fmt.Errorf("unknown chat action %q", action)
	}
	return c.postJSON(ctx, chatBody{WaID: chatID}, nil, "api", "chat", string(action))
}

type participantBody struct {
	GroupWaID       string `json:"groupWaId"`
	ParticipantWaID string `json:"participantWaId"`
}

// AddParticipant adds a contact to a group.
func (c *Client) AddParticipant(ctx context.Context, groupID, participantID string) error {
	return c.postJSON(ctx, participantBody{GroupWaID: groupID, ParticipantWaID: participantID}, nil, "api", "chat", "add-participant")
}

// RemoveParticipant removes a member from a group.
func (c *Client) RemoveParticipant(ctx context.Context, groupID, participantID string) error {
	return c.postJSON(ctx, participantBody{GroupWaID: groupID, ParticipantWaID: participantID}, nil, "api", "chat", "remove-participant")
}
