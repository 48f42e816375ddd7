package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/wppchat/internal/api"
	"github.com/matheus3301/wppchat/internal/bus"
	"github.com/matheus3301/wppchat/internal/chatops"
	"github.com/matheus3301/wppchat/internal/outbox"
	"github.com/matheus3301/wppchat/internal/push"
	"github.com/matheus3301/wppchat/internal/search"
	"github.com/matheus3301/wppchat/internal/store"
	intsync "github.com/matheus3301/wppchat/internal/sync"
)

// SessionParams are the components a Session is built from.
type SessionParams struct {
	fx.In

	Params   Params
	Bus      *bus.Bus
	Links    Links
	Messages *store.MessageStore
	Chats    *store.ChatStore
	Contacts *store.ContactStore
	Client   *api.Client
	Sender   *outbox.Sender
	Engine   *intsync.Engine
	ChatOps  *chatops.Service
	Listener *push.Listener
	Index    *search.Index
	Logger   *zap.Logger
}

// Session is everything a front end needs for one logged-in profile.
type Session struct {
	Params   Params
	Bus      *bus.Bus
	Links    Links
	Messages *store.MessageStore
	Chats    *store.ChatStore
	Contacts *store.ContactStore
	Client   *api.Client
	Sender   *outbox.Sender
	Engine   *intsync.Engine
	ChatOps  *chatops.Service

	listener *push.Listener
	index    *search.Index
	logger   *zap.Logger

	mu  sync.Mutex
	sub *push.Subscription
}

// NewSession collects the session components.
func NewSession(p SessionParams) *Session {
	return &Session{
		Params:   p.Params,
		Bus:      p.Bus,
		Links:    p.Links,
		Messages: p.Messages,
		Chats:    p.Chats,
		Contacts: p.Contacts,
		Client:   p.Client,
		Sender:   p.Sender,
		Engine:   p.Engine,
		ChatOps:  p.ChatOps,
		listener: p.Listener,
		index:    p.Index,
		logger:   p.Logger,
	}
}

// KindLoadFailed is published with the error when Refresh fails.
const KindLoadFailed = "session.load_failed"

// Refresh reloads chats and contacts from the server.
func (s *Session) Refresh(ctx context.Context) error {
	err := s.Engine.LoadAll(ctx)
	if err != nil && ctx.Err() == nil {
		s.Bus.Publish(bus.NewEvent(KindLoadFailed, err))
	}
	return err
}

// Connect opens the push subscription and feeds it to the sync engine. It
// is a no-op while a subscription is live.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		select {
		case <-s.sub.Done():
		default:
			return nil
		}
		s.Engine.Stop()
		_ = s.sub.Close()
		s.sub = nil
	}

	sub, err := s.listener.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.sub = sub
	s.Engine.Start(ctx, sub.Events())
	return nil
}

// Disconnect closes the push subscription, if any.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return
	}
	_ = s.sub.Close()
	s.Engine.Stop()
	s.sub = nil
}

// OpenChat makes chatID the active chat and fetches its history unless that
// was done before. Messages pushed in the meantime do not count as history.
func (s *Session) OpenChat(ctx context.Context, chatID string) error {
	s.Engine.SetActiveChat(chatID)
	if chatID == "" || s.Messages.Loaded(chatID) {
		return nil
	}
	return s.Engine.LoadMessages(ctx, chatID)
}

// Search looks for query in the messages of chatID.
func (s *Session) Search(chatID, query string, limit int) ([]search.Result, error) {
	return s.index.Search(chatID, query, limit)
}
