package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/matheus3301/wppchat/internal/bus"
)

// ContactStore holds the address book fetched from the server.
type ContactStore struct {
	mu       sync.RWMutex
	contacts map[string]Contact
	bus      *bus.Bus
}

// NewContactStore creates an empty store. b may be nil.
func NewContactStore(b *bus.Bus) *ContactStore {
	return &ContactStore{contacts: make(map[string]Contact), bus: b}
}

// SetContacts replaces the address book.
func (s *ContactStore) SetContacts(list []Contact) {
	next := make(map[string]Contact, len(list))
	for _, c := range list {
		next[c.ID] = c
	}
	s.mu.Lock()
	s.contacts = next
	s.mu.Unlock()
	publish(s.bus, KindContactsChanged, nil)
}

// UpdateContact stores c, replacing any contact with the same id.
func (s *ContactStore) UpdateContact(c Contact) {
	s.mu.Lock()
	s.contacts[c.ID] = c
	s.mu.Unlock()
	publish(s.bus, KindContactsChanged, nil)
}

// Contact looks up a contact by id.
func (s *ContactStore) Contact(id string) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	return c, ok
}

// Contacts returns every contact sorted by name, then id.
func (s *ContactStore) Contacts() []Contact {
	s.mu.RLock()
	out := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DisplayName returns the contact's name, or id when the contact is unknown.
func (s *ContactStore) DisplayName(id string) string {
	if c, ok := s.Contact(id); ok && c.Name != "" {
		return c.Name
	}
	return id
}
