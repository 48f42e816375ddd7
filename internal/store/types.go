package store

import "strings"

// LocalSender is the sender id used for messages written by the local user.
const LocalSender = "me"

// DeletedPlaceholder replaces the content of a tombstoned message.
const DeletedPlaceholder = "This message was deleted"

const tempPrefix = "tmp-"

// TempID builds a client-temporary message id from a random suffix.
func TempID(suffix string) string { return tempPrefix + suffix }

// IsTempID reports whether id was generated locally for an unconfirmed message.
func IsTempID(id string) bool { return strings.HasPrefix(id, tempPrefix) }

// Status is the delivery state of a message.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Rank orders statuses along their normal progression. Unknown statuses rank lowest.
func (s Status) Rank() int {
	switch s {
	case StatusSending:
		return 1
	case StatusSent:
		return 2
	case StatusDelivered:
		return 3
	case StatusRead:
		return 4
	}
	return 0
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool { return s.Rank() > 0 }

// MaxStatus returns whichever of a and b is further along.
func MaxStatus(a, b Status) Status {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Reaction is one emoji left on a message by one user.
type Reaction struct {
	Emoji  string
	UserID string
}

// Message is a single chat message, either server-confirmed or a local temp entry.
type Message struct {
	ID                string
	ChatID            string
	SenderID          string
	Content           string
	Timestamp         int64 // epoch millis
	Status            Status
	Attachment        *Attachment
	ReferencedContent string
	Reactions         []Reaction
	Deleted           bool
}

// FromMe reports whether the local user sent the message.
func (m Message) FromMe() bool { return m.SenderID == LocalSender }

// Preview is the one-line text shown in the chat list for this message.
func (m Message) Preview() string {
	if m.Content != "" {
		return m.Content
	}
	if m.Attachment != nil {
		return "📎 " + m.Attachment.Filename()
	}
	return ""
}

func (m Message) clone() Message {
	if m.Reactions != nil {
		m.Reactions = append([]Reaction(nil), m.Reactions...)
	}
	return m
}

// Participant is a member of a group chat.
type Participant struct {
	ID      string
	Name    string
	IsAdmin bool
}

// Chat is the metadata and summary of one conversation.
type Chat struct {
	ID           string
	Name         string
	Picture      string
	LastMessage  string
	Timestamp    int64
	UnreadCount  int
	IsGroup      bool
	Participants []Participant
	IsMuted      bool
	IsPinned     bool
	IsBlocked    bool
}

// HasParticipant reports whether id is a member of the chat.
func (c Chat) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (c Chat) clone() Chat {
	if c.Participants != nil {
		c.Participants = append([]Participant(nil), c.Participants...)
	}
	return c
}

// Contact is an address-book entry known to the server.
type Contact struct {
	ID      string
	Name    string
	Picture string
	About   string
}
