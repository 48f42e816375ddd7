// Package outbox drives outgoing messages from the composer to the server:
// optimistic insert, send, and reconciliation with the confirmed copy.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/matheus3301/wppchat/internal/api"
	"github.com/matheus3301/wppchat/internal/attach"
	"github.com/matheus3301/wppchat/internal/store"
)

var (
	ErrNoChat        = errors.New("no chat selected")
	ErrNothingToSend = errors.New("nothing to send")
	ErrSendInFlight  = errors.New("a message to this chat is still being sent")
)

// API is the part of the REST client the sender needs.
type API interface {
	SendMessage(ctx context.Context, m api.OutgoingMessage) (store.Message, error)
	React(ctx context.Context, chatID, messageID, userID, emoji string) error
	DeleteMessage(ctx context.Context, messageID, userID string) error
}

// Request is one composer submission.
type Request struct {
	ChatID  string
	Content string
	File    *store.LocalBlob
	// ReplyTo is the text of the message being answered, copied as is.
	ReplyTo string
}

// Sender sends messages with at most one send in flight per chat.
type Sender struct {
	api      API
	policy   *attach.Policy
	messages *store.MessageStore
	chats    *store.ChatStore
	userID   string
	logger   *zap.Logger

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	inFlight map[string]struct{}
	lastErr  map[string]string

	background sync.WaitGroup
}

// NewSender creates a sender. userID identifies the local user on reactions
// and deletes; an empty value falls back to store.LocalSender.
func NewSender(client API, policy *attach.Policy, messages *store.MessageStore, chats *store.ChatStore, userID string, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if userID == "" {
		userID = store.LocalSender
	}
	return &Sender{
		api:      client,
		policy:   policy,
		messages: messages,
		chats:    chats,
		userID:   userID,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		inFlight: make(map[string]struct{}),
		lastErr:  make(map[string]string),
	}
}

// Send inserts a SENDING placeholder, posts it and swaps in the server copy.
// On failure the placeholder stays, LastError is set and the error is
// returned. Nothing is retried.
func (s *Sender) Send(ctx context.Context, req Request) (store.Message, error) {
	if req.ChatID == "" {
		return store.Message{}, ErrNoChat
	}
	if _, ok := s.chats.Chat(req.ChatID); !ok {
		return store.Message{}, ErrNoChat
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && req.File == nil {
		return store.Message{}, ErrNothingToSend
	}
	if !s.acquire(req.ChatID) {
		return store.Message{}, ErrSendInFlight
	}
	defer s.release(req.ChatID)

	if req.File != nil && s.policy != nil {
		if err := s.policy.Validate(*req.File); err != nil {
			s.setLastError(req.ChatID, err.Error())
			return store.Message{}, err
		}
	}
	content = normalizeShout(content)

	temp := store.Message{
		ID:                store.TempID(s.newID()),
		ChatID:            req.ChatID,
		SenderID:          store.LocalSender,
		Content:           content,
		Timestamp:         s.now().UnixMilli(),
		Status:            store.StatusSending,
		ReferencedContent: req.ReplyTo,
	}
	if req.File != nil {
		temp.Attachment = store.Pending(*req.File)
	}
	s.messages.AddMessage(req.ChatID, temp)
	s.setLastError(req.ChatID, "")

	final, err := s.api.SendMessage(ctx, api.OutgoingMessage{
		TempID:           temp.ID,
		ChatID:           temp.ChatID,
		SenderID:         temp.SenderID,
		Content:          temp.Content,
		Timestamp:        temp.Timestamp,
		ReferenceContent: temp.ReferencedContent,
		File:             req.File,
	})
	if err != nil {
		s.setLastError(req.ChatID, api.UserMessage(err))
		s.logger.Warn("send failed",
			zap.String("chat_id", req.ChatID),
			zap.String("temp_id", temp.ID),
			zap.Error(err),
		)
		return store.Message{}, fmt.Errorf("send message: %w", err)
	}

	s.messages.ReplaceMessage(req.ChatID, temp.ID, final)
	s.chats.UpdateChat(req.ChatID, func(c *store.Chat) {
		c.LastMessage = final.Preview()
		c.Timestamp = final.Timestamp
		c.UnreadCount = 0
	})
	s.logger.Debug("message sent",
		zap.String("chat_id", req.ChatID),
		zap.String("temp_id", temp.ID),
		zap.String("msg_id", final.ID),
	)
	return final, nil
}

// InFlight reports whether a send to chatID is pending.
func (s *Sender) InFlight(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[chatID]
	return ok
}

// LastError is the composer error for chatID, empty after a clean send.
func (s *Sender) LastError(chatID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr[chatID]
}

// ClearError drops the composer error for chatID.
func (s *Sender) ClearError(chatID string) { s.setLastError(chatID, "") }

// React appends a reaction locally right away and posts it in the
// background. Nothing is sent for a message the store does not hold; it
// reports whether the message was found.
func (s *Sender) React(chatID, messageID, emoji string) bool {
	if chatID == "" || messageID == "" || emoji == "" {
		return false
	}
	ok := s.messages.UpdateMessage(chatID, messageID, func(m *store.Message) {
		m.Reactions = append(m.Reactions, store.Reaction{Emoji: emoji, UserID: s.userID})
	})
	if !ok {
		return false
	}
	s.fire("react", chatID, messageID, func(ctx context.Context) error {
		return s.api.React(ctx, chatID, messageID, s.userID, emoji)
	})
	return true
}

// Delete asks the server to delete a message and tombstones it locally.
// Id, sender and timestamp are kept.
func (s *Sender) Delete(chatID, messageID string) bool {
	if chatID == "" || messageID == "" {
		return false
	}
	ok := s.messages.UpdateMessage(chatID, messageID, func(m *store.Message) {
		m.Content = store.DeletedPlaceholder
		m.Attachment = nil
		m.ReferencedContent = ""
		m.Deleted = true
	})
	if !ok {
		return false
	}
	s.fire("delete", chatID, messageID, func(ctx context.Context) error {
		return s.api.DeleteMessage(ctx, messageID, s.userID)
	})
	msgs := s.messages.Messages(chatID)
	if n := len(msgs); n > 0 && msgs[n-1].ID == messageID {
		if _, known := s.chats.Chat(chatID); known {
			s.chats.UpdateChat(chatID, func(c *store.Chat) { c.LastMessage = store.DeletedPlaceholder })
		}
	}
	return true
}

// Wait blocks until background reactions and deletes have finished.
func (s *Sender) Wait() { s.background.Wait() }

func (s *Sender) fire(op, chatID, messageID string, call func(context.Context) error) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := call(context.Background()); err != nil {
			s.logger.Warn(op+" failed",
				zap.String("chat_id", chatID),
				zap.String("msg_id", messageID),
				zap.Error(err),
			)
		}
	}()
}

func (s *Sender) acquire(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[chatID]; busy {
		return false
	}
	s.inFlight[chatID] = struct{}{}
	return true
}

func (s *Sender) release(chatID string) {
	s.mu.Lock()
	delete(s.inFlight, chatID)
	s.mu.Unlock()
}

func (s *Sender) setLastError(chatID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == "" {
		delete(s.lastErr, chatID)
		return
	}
	s.lastErr[chatID] = msg
}

// normalizeShout title-cases text that has letters but no lowercase ones.
func normalizeShout(text string) string {
	hasUpper := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return text
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	if !hasUpper {
		return text
	}
	return cases.Title(language.Und).String(text)
}
