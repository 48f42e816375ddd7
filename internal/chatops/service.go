// Package chatops implements the chat options menu: pin, mute, block and
// group membership. Each action is confirmed by the server before the local
// chat is changed.
package chatops

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matheus3301/wppchat/internal/api"
	"github.com/matheus3301/wppchat/internal/store"
)

var (
	ErrUnknownChat = errors.New("unknown chat")
	ErrNotGroup    = errors.New("not a group chat")
)

// API is the chat-options part of the REST client.
type API interface {
	Chat(ctx context.Context, action api.ChatAction, chatID string) error
	AddParticipant(ctx context.Context, groupID, participantID string) error
	RemoveParticipant(ctx context.Context, groupID, participantID string) error
}

// Service applies chat options.
type Service struct {
	api      API
	chats    *store.ChatStore
	contacts *store.ContactStore
	logger   *zap.Logger
}

// NewService creates a chat options service.
func NewService(client API, chats *store.ChatStore, contacts *store.ContactStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: client, chats: chats, contacts: contacts, logger: logger}
}

// TogglePin flips the pinned flag and returns the new value.
func (s *Service) TogglePin(ctx context.Context, chatID string) (bool, error) {
	return s.toggle(ctx, api.ActionPin, chatID, func(c *store.Chat) *bool { return &c.IsPinned })
}

// ToggleMute flips the muted flag and returns the new value.
func (s *Service) ToggleMute(ctx context.Context, chatID string) (bool, error) {
	return s.toggle(ctx, api.ActionMute, chatID, func(c *store.Chat) *bool { return &c.IsMuted })
}

// ToggleBlock flips the blocked flag and returns the new value.
func (s *Service) ToggleBlock(ctx context.Context, chatID string) (bool, error) {
	return s.toggle(ctx, api.ActionBlock, chatID, func(c *store.Chat) *bool { return &c.IsBlocked })
}

func (s *Service) toggle(ctx context.Context, action api.ChatAction, chatID string, flag func(*store.Chat) *bool) (bool, error) {
	if _, ok := s.chats.Chat(chatID); !ok {
		return false, fmt.Errorf("%s %s: %w", action, chatID, ErrUnknownChat)
	}
	if err := s.api.Chat(ctx, action, chatID); err != nil {
		s.logger.Warn("chat action failed", zap.String("action", string(action)), zap.String("chat_id", chatID), zap.Error(err))
		return false, fmt.Errorf("%s %s: %w", action, chatID, err)
	}
	updated := s.chats.UpdateChat(chatID, func(c *store.Chat) {
		f := flag(c)
		*f = !*f
	})
	v := *flag(&updated)
	s.logger.Info("chat action applied", zap.String("action", string(action)), zap.String("chat_id", chatID), zap.Bool("value", v))
	return v, nil
}

// AddParticipant adds a contact to a group chat.
func (s *Service) AddParticipant(ctx context.Context, chatID, contactID string) error {
	if err := s.requireGroup(chatID); err != nil {
		return err
	}
	if err := s.api.AddParticipant(ctx, chatID, contactID); err != nil {
		return fmt.Errorf("add %s to %s: %w", contactID, chatID, err)
	}
	name := s.contacts.DisplayName(contactID)
	s.chats.UpdateChat(chatID, func(c *store.Chat) {
		if !c.HasParticipant(contactID) {
			c.Participants = append(c.Participants, store.Participant{ID: contactID, Name: name})
		}
	})
	return nil
}

// RemoveParticipant removes a member from a group chat.
func (s *Service) RemoveParticipant(ctx context.Context, chatID, contactID string) error {
	if err := s.requireGroup(chatID); err != nil {
		return err
	}
	if err := s.api.RemoveParticipant(ctx, chatID, contactID); err != nil {
		return fmt.Errorf("remove %s from %s: %w", contactID, chatID, err)
	}
	s.chats.UpdateChat(chatID, func(c *store.Chat) {
		kept := c.Participants[:0]
		for _, p := range c.Participants {
			if p.ID != contactID {
				kept = append(kept, p)
			}
		}
		c.Participants = kept
	})
	return nil
}

// Candidates lists the contacts that can be added to (adding) or removed
// from (!adding) a group.
func (s *Service) Candidates(chatID string, adding bool) []store.Contact {
	chat, ok := s.chats.Chat(chatID)
	if !ok || !chat.IsGroup {
		return nil
	}
	var out []store.Contact
	for _, c := range s.contacts.Contacts() {
		if chat.HasParticipant(c.ID) != adding {
			out = append(out, c)
		}
	}
	return out
}

func (s *Service) requireGroup(chatID string) error {
	chat, ok := s.chats.Chat(chatID)
	if !ok {
		return fmt.Errorf("%s: %w", chatID, ErrUnknownChat)
	}
	if !chat.IsGroup {
		return fmt.Errorf("%s: %w", chatID, ErrNotGroup)
	}
	return nil
}
