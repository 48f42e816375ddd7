package store

import (
	"sort"
	"sync"

	"github.com/matheus3301/wppchat/internal/bus"
)

// ChatStore holds conversation metadata keyed by chat id.
type ChatStore struct {
	mu    sync.RWMutex
	chats map[string]Chat
	bus   *bus.Bus
}

// NewChatStore creates an empty store. b may be nil.
func NewChatStore(b *bus.Bus) *ChatStore {
	return &ChatStore{chats: make(map[string]Chat), bus: b}
}

// SetChats replaces every chat.
func (s *ChatStore) SetChats(list []Chat) {
	next := make(map[string]Chat, len(list))
	for _, c := range list {
		next[c.ID] = c.clone()
	}
	s.mu.Lock()
	s.chats = next
	s.mu.Unlock()
	publish(s.bus, KindChatsChanged, ChatChange{})
}

// UpdateChat applies fn to the chat with the given id, creating an empty
// entry first if none exists.
func (s *ChatStore) UpdateChat(id string, fn func(*Chat)) Chat {
	s.mu.Lock()
	c, ok := s.chats[id]
	if !ok {
		c = Chat{ID: id}
	}
	c = c.clone()
	fn(&c)
	c.ID = id
	s.chats[id] = c
	s.mu.Unlock()

	publish(s.bus, KindChatsChanged, ChatChange{ChatID: id})
	return c.clone()
}

// AddOrUpdateChat stores c, replacing any chat with the same id.
func (s *ChatStore) AddOrUpdateChat(c Chat) {
	s.mu.Lock()
	s.chats[c.ID] = c.clone()
	s.mu.Unlock()
	publish(s.bus, KindChatsChanged, ChatChange{ChatID: c.ID})
}

// RemoveChat deletes a chat.
func (s *ChatStore) RemoveChat(id string) {
	s.mu.Lock()
	_, ok := s.chats[id]
	delete(s.chats, id)
	s.mu.Unlock()
	if ok {
		publish(s.bus, KindChatsChanged, ChatChange{ChatID: id, Removed: true})
	}
}

// Chat looks up one chat.
func (s *ChatStore) Chat(id string) (Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return Chat{}, false
	}
	return c.clone(), true
}

// List returns every chat, pinned first and then most recent first.
func (s *ChatStore) List() []Chat {
	s.mu.RLock()
	out := make([]Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, c.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return a.ID < b.ID
	})
	return out
}
