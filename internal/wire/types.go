package wire

import (
	"net/url"
	"path"

	"github.com/matheus3301/wppchat/internal/store"
)

// Reaction is one emoji on a message.
type Reaction struct {
	Emoji  string `json:"emoji"`
	UserID string `json:"userId"`
}

// Message is the canonical message object returned by the REST API and
// carried by push events. File holds the download URL once uploaded.
type Message struct {
	ID               string     `json:"id"`
	TempID           string     `json:"tempId,omitempty"`
	ChatID           string     `json:"chatId"`
	SenderID         string     `json:"senderId"`
	Content          string     `json:"content"`
	Timestamp        Timestamp  `json:"timestamp"`
	Status           string     `json:"status,omitempty"`
	File             string     `json:"file,omitempty"`
	FileName         string     `json:"fileName,omitempty"`
	ReferenceContent string     `json:"referenceContent,omitempty"`
	Reactions        []Reaction `json:"reactions,omitempty"`
	Deleted          bool       `json:"deleted,omitempty"`
}

// Participant is a group member.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

// Chat is a conversation summary.
type Chat struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Picture      string        `json:"picture,omitempty"`
	LastMessage  string        `json:"lastMessage"`
	Timestamp    Timestamp     `json:"timestamp"`
	UnreadCount  int           `json:"unreadCount"`
	IsGroup      bool          `json:"isGroup"`
	Participants []Participant `json:"participants,omitempty"`
	IsMuted      bool          `json:"isMuted"`
	IsPinned     bool          `json:"isPinned"`
	IsBlocked    bool          `json:"isBlocked"`
}

// Contact is an address-book entry.
type Contact struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	About   string `json:"about,omitempty"`
}

// ToStore converts to the in-memory form. An unknown or missing status
// on a confirmed message is treated as sent.
func (m Message) ToStore() store.Message {
	st := store.Status(m.Status)
	if !st.Valid() || (st == store.StatusSending && !store.IsTempID(m.ID)) {
		st = store.StatusSent
	}
	out := store.Message{
		ID:                m.ID,
		ChatID:            m.ChatID,
		SenderID:          m.SenderID,
		Content:           m.Content,
		Timestamp:         int64(m.Timestamp),
		Status:            st,
		ReferencedContent: m.ReferenceContent,
		Deleted:           m.Deleted,
	}
	if m.File != "" {
		name := m.FileName
		if name == "" {
			name = fileNameFromURL(m.File)
		}
		out.Attachment = store.Uploaded(m.File, name)
	}
	for _, r := range m.Reactions {
		out.Reactions = append(out.Reactions, store.Reaction{Emoji: r.Emoji, UserID: r.UserID})
	}
	return out
}

// ToStore converts to the in-memory form.
func (c Chat) ToStore() store.Chat {
	out := store.Chat{
		ID:          c.ID,
		Name:        c.Name,
		Picture:     c.Picture,
		LastMessage: c.LastMessage,
		Timestamp:   int64(c.Timestamp),
		UnreadCount: c.UnreadCount,
		IsGroup:     c.IsGroup,
		IsMuted:     c.IsMuted,
		IsPinned:    c.IsPinned,
		IsBlocked:   c.IsBlocked,
	}
	for _, p := range c.Participants {
		out.Participants = append(out.Participants, store.Participant{ID: p.ID, Name: p.Name, IsAdmin: p.IsAdmin})
	}
	return out
}

// ToStore converts to the in-memory form.
func (c Contact) ToStore() store.Contact {
	return store.Contact{ID: c.ID, Name: c.Name, Picture: c.Picture, About: c.About}
}

// FromStore converts a stored message back to its wire form. Pending
// attachments have no URL yet and are left out.
func FromStore(m store.Message) Message {
	out := Message{
		ID:               m.ID,
		ChatID:           m.ChatID,
		SenderID:         m.SenderID,
		Content:          m.Content,
		Timestamp:        Timestamp(m.Timestamp),
		Status:           string(m.Status),
		ReferenceContent: m.ReferencedContent,
		Deleted:          m.Deleted,
	}
	if m.Attachment != nil {
		if link, name, ok := m.Attachment.Remote(); ok {
			out.File, out.FileName = link, name
		} else {
			out.FileName = m.Attachment.Filename()
		}
	}
	for _, r := range m.Reactions {
		out.Reactions = append(out.Reactions, Reaction{Emoji: r.Emoji, UserID: r.UserID})
	}
	return out
}

func fileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	return path.Base(u.Path)
}
