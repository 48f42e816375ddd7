package store

import "github.com/matheus3301/wppchat/internal/bus"

// Event kinds published on the bus after a store mutation.
const (
	KindMessagesSet     = "store.messages.set"
	KindMessageAdded    = "store.messages.added"
	KindMessageReplaced = "store.messages.replaced"
	KindMessageUpdated  = "store.messages.updated"
	KindMessageRemoved  = "store.messages.removed"
	KindChatsChanged    = "store.chats.changed"
	KindContactsChanged = "store.contacts.changed"
)

// MessageChange is the payload of every store.messages.* event.
type MessageChange struct {
	ChatID string
	// PreviousID is the temp id on a replace and the removed id on a remove.
	PreviousID string
	Message    Message
	// Messages is the full new list on a set.
	Messages []Message
}

// ChatChange is the payload of store.chats.changed. An empty ChatID means
// the whole list was reset.
type ChatChange struct {
	ChatID  string
	Removed bool
}

func publish(b *bus.Bus, kind string, payload any) {
	if b == nil {
		return
	}
	b.Publish(bus.NewEvent(kind, payload))
}
