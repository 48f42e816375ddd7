// Package sync loads chats, contacts and history from the server and merges
// push events into the in-memory stores.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/wppchat/internal/push"
	"github.com/matheus3301/wppchat/internal/store"
)

// Fetcher is the read side of the REST client.
type Fetcher interface {
	FetchChats(ctx context.Context) ([]store.Chat, error)
	FetchContacts(ctx context.Context) ([]store.Contact, error)
	FetchMessages(ctx context.Context, chatID string) ([]store.Message, error)
}

// Engine fills the stores from the server and keeps them current from push.
type Engine struct {
	api      Fetcher
	messages *store.MessageStore
	chats    *store.ChatStore
	contacts *store.ContactStore
	rec      *Reconciler
	selfID   string
	logger   *zap.Logger

	mu     sync.Mutex
	active string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new sync engine. selfID is the local user's server id,
// used to tell own echoes from incoming messages.
func NewEngine(api Fetcher, messages *store.MessageStore, chats *store.ChatStore, contacts *store.ContactStore, selfID string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		api:      api,
		messages: messages,
		chats:    chats,
		contacts: contacts,
		rec:      NewReconciler(messages, logger),
		selfID:   selfID,
		logger:   logger,
	}
}

// LoadChats replaces the chat list with the server's.
func (e *Engine) LoadChats(ctx context.Context) error {
	list, err := e.api.FetchChats(ctx)
	if err != nil {
		return fmt.Errorf("load chats: %w", err)
	}
	e.chats.SetChats(list)
	e.logger.Info("chats loaded", zap.Int("count", len(list)))
	return nil
}

// LoadContacts replaces the contact list with the server's.
func (e *Engine) LoadContacts(ctx context.Context) error {
	list, err := e.api.FetchContacts(ctx)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}
	e.contacts.SetContacts(list)
	e.logger.Info("contacts loaded", zap.Int("count", len(list)))
	return nil
}

// LoadAll loads contacts and chats. Both are attempted even if one fails.
func (e *Engine) LoadAll(ctx context.Context) error {
	return errors.Join(e.LoadContacts(ctx), e.LoadChats(ctx))
}

// LoadMessages fetches the history of chatID and merges it with whatever
// pushes or sends already put in the store. A chat the list does not know
// yet is created from its newest message.
func (e *Engine) LoadMessages(ctx context.Context, chatID string) error {
	list, err := e.api.FetchMessages(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load messages for %s: %w", chatID, err)
	}
	added := e.messages.MergeHistory(chatID, list)

	if _, known := e.chats.Chat(chatID); !known && len(list) > 0 {
		last := list[len(list)-1]
		e.chats.AddOrUpdateChat(store.Chat{
			ID:          chatID,
			Name:        e.contacts.DisplayName(chatID),
			LastMessage: last.Preview(),
			Timestamp:   last.Timestamp,
		})
	}
	e.logger.Debug("history loaded", zap.String("chat_id", chatID), zap.Int("count", len(list)), zap.Int("new", added))
	return nil
}

// SetActiveChat marks the chat the user is looking at and clears its unread
// counter. An empty id means no chat is open.
func (e *Engine) SetActiveChat(chatID string) {
	e.mu.Lock()
	e.active = chatID
	e.mu.Unlock()
	if chatID == "" {
		return
	}
	if c, ok := e.chats.Chat(chatID); ok && c.UnreadCount != 0 {
		e.chats.UpdateChat(chatID, func(c *store.Chat) { c.UnreadCount = 0 })
	}
}

// ActiveChat returns the open chat id.
func (e *Engine) ActiveChat() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Start consumes events in the background until the channel closes, ctx
// ends or Stop is called.
func (e *Engine) Start(ctx context.Context, events <-chan push.Event) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.mu.Lock()
	e.cancel, e.done = cancel, done
	e.mu.Unlock()

	go func() {
		defer close(done)
		e.Run(ctx, events)
	}()
}

// Stop stops the engine and waits for the consumer to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run applies events in arrival order until the channel closes or ctx ends.
func (e *Engine) Run(ctx context.Context, events <-chan push.Event) {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			e.Apply(evt)
		case <-ctx.Done():
			return
		}
	}
}

// Apply merges one push event into the stores.
func (e *Engine) Apply(evt push.Event) {
	switch evt.Kind {
	case push.KindMessage:
		e.applyMessage(evt.Message)
	case push.KindStatus:
		e.rec.Status(evt.ChatID, evt.MessageID, evt.Status)
	case push.KindReaction:
		e.rec.Reaction(evt.ChatID, evt.MessageID, evt.Reaction)
	case push.KindDeleted:
		if e.rec.Deleted(evt.ChatID, evt.MessageID) {
			e.refreshPreview(evt.ChatID)
		}
	default:
		e.logger.Warn("unhandled push event", zap.String("kind", string(evt.Kind)))
	}
}

func (e *Engine) applyMessage(m store.Message) {
	if !e.rec.Message(m) {
		return
	}
	incoming := !m.FromMe() && (e.selfID == "" || m.SenderID != e.selfID)
	active := e.ActiveChat() == m.ChatID
	name := ""
	if _, known := e.chats.Chat(m.ChatID); !known {
		name = e.contacts.DisplayName(m.ChatID)
	}

	e.chats.UpdateChat(m.ChatID, func(c *store.Chat) {
		if c.Name == "" {
			c.Name = name
		}
		if m.Timestamp >= c.Timestamp {
			c.LastMessage = m.Preview()
			c.Timestamp = m.Timestamp
		}
		if incoming && !active {
			c.UnreadCount++
		}
	})
	e.logger.Debug("push message merged",
		zap.String("chat_id", m.ChatID),
		zap.String("msg_id", m.ID),
		zap.Bool("incoming", incoming),
	)
}

func (e *Engine) refreshPreview(chatID string) {
	msgs := e.messages.Messages(chatID)
	if len(msgs) == 0 {
		return
	}
	if _, ok := e.chats.Chat(chatID); !ok {
		return
	}
	last := msgs[len(msgs)-1]
	e.chats.UpdateChat(chatID, func(c *store.Chat) { c.LastMessage = last.Preview() })
}
