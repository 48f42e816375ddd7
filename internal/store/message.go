package store

import (
	"sync"

	"github.com/matheus3301/wppchat/internal/bus"
)

// MessageStore holds the message list of every known conversation.
// Lists are kept in append order and never hold two messages with the same id.
// A list created by a push or a send does not count as loaded history; only
// SetMessages and MergeHistory mark a chat loaded.
type MessageStore struct {
	mu     sync.RWMutex
	chats  map[string][]Message
	loaded map[string]struct{}
	bus    *bus.Bus
}

// NewMessageStore creates an empty store. b may be nil.
func NewMessageStore(b *bus.Bus) *MessageStore {
	return &MessageStore{
		chats:  make(map[string][]Message),
		loaded: make(map[string]struct{}),
		bus:    b,
	}
}

// SetMessages replaces the list for chatID. It is skipped when the incoming
// list has the same length and the same last id as the stored one.
// Duplicate ids in list keep their first occurrence.
func (s *MessageStore) SetMessages(chatID string, list []Message) {
	s.mu.Lock()
	cur, ok := s.chats[chatID]
	s.loaded[chatID] = struct{}{}
	if ok && len(cur) == len(list) && sameLastID(cur, list) {
		s.mu.Unlock()
		return
	}
	next := make([]Message, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, m := range list {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		m.ChatID = chatID
		next = append(next, m.clone())
	}
	s.chats[chatID] = next
	snapshot := cloneAll(next)
	s.mu.Unlock()

	publish(s.bus, KindMessagesSet, MessageChange{ChatID: chatID, Messages: snapshot})
}

// MergeHistory installs fetched history for chatID without losing what
// arrived before it. Messages in history come first in server order; an id
// already stored keeps the further-along status and stays tombstoned if it
// was deleted. Stored messages the server did not return (pushes newer than
// the fetch, temp placeholders) follow in their current order. It marks
// the chat loaded and returns how many ids were new.
func (s *MessageStore) MergeHistory(chatID string, history []Message) int {
	s.mu.Lock()
	cur := s.chats[chatID]
	byID := make(map[string]Message, len(cur))
	for _, m := range cur {
		byID[m.ID] = m
	}

	next := make([]Message, 0, len(history)+len(cur))
	seen := make(map[string]struct{}, len(history)+len(cur))
	added := 0
	for _, m := range history {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		m = m.clone()
		m.ChatID = chatID
		if old, ok := byID[m.ID]; ok {
			if old.Deleted {
				m = old.clone()
			} else {
				m.Status = MaxStatus(old.Status, m.Status)
			}
		} else {
			added++
		}
		next = append(next, m)
	}
	for _, m := range cur {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		next = append(next, m)
	}

	s.chats[chatID] = next
	s.loaded[chatID] = struct{}{}
	snapshot := cloneAll(next)
	s.mu.Unlock()

	publish(s.bus, KindMessagesSet, MessageChange{ChatID: chatID, Messages: snapshot})
	return added
}

// AddMessage appends msg unless a message with the same id is already stored.
// It reports whether msg was appended.
func (s *MessageStore) AddMessage(chatID string, msg Message) bool {
	msg.ChatID = chatID
	s.mu.Lock()
	cur := s.chats[chatID]
	if indexOf(cur, msg.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.chats[chatID] = appendCopy(cur, msg.clone())
	s.mu.Unlock()

	publish(s.bus, KindMessageAdded, MessageChange{ChatID: chatID, Message: msg.clone()})
	return true
}

// PrependMessages inserts older history ahead of the current list, skipping
// ids that are already present.
func (s *MessageStore) PrependMessages(chatID string, older []Message) int {
	s.mu.Lock()
	cur := s.chats[chatID]
	seen := make(map[string]struct{}, len(cur)+len(older))
	for _, m := range cur {
		seen[m.ID] = struct{}{}
	}
	head := make([]Message, 0, len(older))
	for _, m := range older {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		m.ChatID = chatID
		head = append(head, m.clone())
	}
	if len(head) == 0 {
		s.mu.Unlock()
		return 0
	}
	next := append(head, cur...)
	s.chats[chatID] = next
	snapshot := cloneAll(next)
	s.mu.Unlock()

	publish(s.bus, KindMessagesSet, MessageChange{ChatID: chatID, Messages: snapshot})
	return len(head)
}

// ReplaceMessage swaps the temp entry tempID for final in a single step.
// If final.ID is already stored (a push echo got there first) that entry is
// overwritten in place and keeps the further-along of the two statuses;
// otherwise final is appended. A missing tempID is not an error.
func (s *MessageStore) ReplaceMessage(chatID, tempID string, final Message) {
	final.ChatID = chatID
	s.mu.Lock()
	cur := s.chats[chatID]
	next := make([]Message, 0, len(cur)+1)
	placed := false
	for _, m := range cur {
		switch m.ID {
		case tempID:
			continue
		case final.ID:
			merged := final.clone()
			merged.Status = MaxStatus(m.Status, final.Status)
			next = append(next, merged)
			placed = true
		default:
			next = append(next, m)
		}
	}
	if !placed {
		next = append(next, final.clone())
	}
	s.chats[chatID] = next
	s.mu.Unlock()

	publish(s.bus, KindMessageReplaced, MessageChange{ChatID: chatID, PreviousID: tempID, Message: final.clone()})
}

// UpdateMessage applies fn to a copy of the stored message and writes it
// back. It is a no-op returning false if id is not stored. fn must not
// change the message id.
func (s *MessageStore) UpdateMessage(chatID, id string, fn func(*Message)) bool {
	s.mu.Lock()
	cur := s.chats[chatID]
	i := indexOf(cur, id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	updated := cur[i].clone()
	fn(&updated)
	updated.ID = id
	updated.ChatID = chatID

	next := appendCopy(cur[:0:0], cur...)
	next[i] = updated
	s.chats[chatID] = next
	s.mu.Unlock()

	publish(s.bus, KindMessageUpdated, MessageChange{ChatID: chatID, Message: updated.clone()})
	return true
}

// RemoveMessage drops a message. It reports whether anything was removed.
func (s *MessageStore) RemoveMessage(chatID, id string) bool {
	s.mu.Lock()
	cur := s.chats[chatID]
	i := indexOf(cur, id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	next := make([]Message, 0, len(cur)-1)
	next = append(next, cur[:i]...)
	next = append(next, cur[i+1:]...)
	s.chats[chatID] = next
	s.mu.Unlock()

	publish(s.bus, KindMessageRemoved, MessageChange{ChatID: chatID, PreviousID: id})
	return true
}

// Clear forgets every loaded conversation.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	s.chats = make(map[string][]Message)
	s.loaded = make(map[string]struct{})
	s.mu.Unlock()
}

// Messages returns a copy of the list for chatID.
func (s *MessageStore) Messages(chatID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.chats[chatID])
}

// Message looks up one message.
func (s *MessageStore) Message(chatID, id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.chats[chatID]
	if i := indexOf(cur, id); i >= 0 {
		return cur[i].clone(), true
	}
	return Message{}, false
}

// Loaded reports whether history for chatID has been fetched. Messages
// added one by one do not count.
func (s *MessageStore) Loaded(chatID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loaded[chatID]
	return ok
}

func indexOf(list []Message, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func sameLastID(a, b []Message) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return a[len(a)-1].ID == b[len(b)-1].ID
}

// appendCopy never writes into the backing array of list, so snapshots
// handed out earlier stay untouched.
func appendCopy(list []Message, more ...Message) []Message {
	next := make([]Message, 0, len(list)+len(more))
	next = append(next, list...)
	return append(next, more...)
}

func cloneAll(list []Message) []Message {
	if list == nil {
		return nil
	}
	out := make([]Message, len(list))
	for i, m := range list {
		out[i] = m.clone()
	}
	return out
}
