package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/matheus3301/wppchat/internal/attach"
	"github.com/matheus3301/wppchat/internal/outbox"
	"github.com/matheus3301/wppchat/internal/search"
	"github.com/matheus3301/wppchat/internal/store"
)

const searchLimit = 50

// Open makes chatID the open chat and loads its history.
func (vm *ViewModel) Open(ctx context.Context, chatID string) error {
	err := vm.s.OpenChat(ctx, chatID)
	vm.mark(RefreshChats | RefreshThread)
	return err
}

// Close leaves the open chat, so new messages count as unread again.
func (vm *ViewModel) Close() {
	vm.s.Engine.SetActiveChat("")
}

// Busy reports whether a send is in flight in the open chat.
func (vm *ViewModel) Busy() bool {
	id := vm.s.Engine.ActiveChat()
	return id != "" && vm.s.Sender.InFlight(id)
}

// Send sends text to the open chat, quoting the pending reply if any.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	return vm.send(ctx, text, nil)
}

// Attach sends the file at path with an optional caption.
func (vm *ViewModel) Attach(ctx context.Context, path, caption string) error {
	blob, err := attach.Inspect(path)
	if err != nil {
		return err
	}
	return vm.send(ctx, caption, &blob)
}

func (vm *ViewModel) send(ctx context.Context, text string, file *store.LocalBlob) error {
	chatID, err := vm.activeID()
	if err != nil {
		return err
	}
	vm.mu.Lock()
	reply := vm.replyTo[chatID]
	vm.mu.Unlock()

	_, err = vm.s.Sender.Send(ctx, outbox.Request{
		ChatID:  chatID,
		Content: text,
		File:    file,
		ReplyTo: reply,
	})
	defer vm.mark(RefreshThread)

	var verr *attach.ValidationError
	switch {
	case err == nil:
		vm.mu.Lock()
		delete(vm.replyTo, chatID)
		delete(vm.failed, chatID)
		vm.mu.Unlock()
		return nil
	case errors.Is(err, outbox.ErrSendInFlight),
		errors.Is(err, outbox.ErrNothingToSend),
		errors.Is(err, outbox.ErrNoChat),
		errors.As(err, &verr):
		return err
	}
	if file == nil {
		vm.mu.Lock()
		vm.failed[chatID] = text
		vm.mu.Unlock()
	}
	return err
}

// Retry returns the text of the last failed send in the open chat and
// clears the error, so the user can send it again.
func (vm *ViewModel) Retry() (string, bool) {
	chatID, err := vm.activeID()
	if err != nil {
		return "", false
	}
	vm.mu.Lock()
	text, ok := vm.failed[chatID]
	delete(vm.failed, chatID)
	vm.mu.Unlock()
	if ok {
		vm.s.Sender.ClearError(chatID)
		vm.mark(RefreshThread)
	}
	return text, ok
}

// MessageAt returns the nth message of the open chat, counting from 1.
func (vm *ViewModel) MessageAt(n int) (store.Message, error) {
	msgs := vm.Messages()
	if n < 1 || n > len(msgs) {
		return store.Message{}, fmt.Errorf("no message %d", n)
	}
	return msgs[n-1], nil
}

// SetReply quotes message n in the next send. n = 0 cancels the reply.
func (vm *ViewModel) SetReply(n int) error {
	chatID, err := vm.activeID()
	if err != nil {
		return err
	}
	if n == 0 {
		vm.mu.Lock()
		delete(vm.replyTo, chatID)
		vm.mu.Unlock()
		vm.mark(RefreshThread)
		return nil
	}
	m, err := vm.MessageAt(n)
	if err != nil {
		return err
	}
	if m.Deleted {
		return fmt.Errorf("message %d was deleted", n)
	}
	quote := m.Preview()
	if quote == "" {
		return fmt.Errorf("message %d has nothing to quote", n)
	}
	vm.mu.Lock()
	vm.replyTo[chatID] = quote
	vm.mu.Unlock()
	vm.mark(RefreshThread)
	return nil
}

// React leaves emoji on message n.
func (vm *ViewModel) React(n int, emoji string) error {
	m, err := vm.confirmed(n)
	if err != nil {
		return err
	}
	if !vm.s.Sender.React(m.ChatID, m.ID, emoji) {
		return fmt.Errorf("message %d is gone", n)
	}
	return nil
}

// Delete deletes message n, which must be the user's own.
func (vm *ViewModel) Delete(n int) error {
	m, err := vm.confirmed(n)
	if err != nil {
		return err
	}
	if !m.FromMe() && m.SenderID != vm.SelfID() {
		return errors.New("only your own messages can be deleted")
	}
	if m.Deleted {
		return fmt.Errorf("message %d is already deleted", n)
	}
	if !vm.s.Sender.Delete(m.ChatID, m.ID) {
		return fmt.Errorf("message %d is gone", n)
	}
	return nil
}

// confirmed returns message n if the server knows about it.
func (vm *ViewModel) confirmed(n int) (store.Message, error) {
	chatID, err := vm.activeID()
	if err != nil {
		return store.Message{}, err
	}
	m, err := vm.MessageAt(n)
	if err != nil {
		return store.Message{}, err
	}
	if store.IsTempID(m.ID) {
		return store.Message{}, fmt.Errorf("message %d has not reached the server yet", n)
	}
	m.ChatID = chatID
	return m, nil
}

// ChatOption is a per-chat flag the user can toggle.
type ChatOption string

const (
	OptionPin   ChatOption = "pin"
	OptionMute  ChatOption = "mute"
	OptionBlock ChatOption = "block"
)

// Toggle flips opt on chatID, or on the open chat when chatID is empty,
// and describes the outcome.
func (vm *ViewModel) Toggle(ctx context.Context, chatID string, opt ChatOption) (string, error) {
	if chatID == "" {
		id, err := vm.activeID()
		if err != nil {
			return "", err
		}
		chatID = id
	}

	var (
		on  bool
		err error
	)
	switch opt {
	case OptionPin:
		on, err = vm.s.ChatOps.TogglePin(ctx, chatID)
	case OptionMute:
		on, err = vm.s.ChatOps.ToggleMute(ctx, chatID)
	case OptionBlock:
		on, err = vm.s.ChatOps.ToggleBlock(ctx, chatID)
	default:
		return "", fmt.Errorf("unknown option %q", opt)
	}
	if err != nil {
		return "", err
	}
	verb := map[ChatOption][2]string{
		OptionPin:   {"Unpinned", "Pinned"},
		OptionMute:  {"Unmuted", "Muted"},
		OptionBlock: {"Unblocked", "Blocked"},
	}[opt]
	name := chatID
	if c, ok := vm.s.Chats.Chat(chatID); ok && c.Name != "" {
		name = c.Name
	}
	if on {
		return fmt.Sprintf("%s %s", verb[1], name), nil
	}
	return fmt.Sprintf("%s %s", verb[0], name), nil
}

// AddParticipant adds the contact matching who to the open group.
func (vm *ViewModel) AddParticipant(ctx context.Context, who string) (string, error) {
	return vm.changeParticipant(ctx, who, true)
}

// RemoveParticipant removes the contact matching who from the open group.
func (vm *ViewModel) RemoveParticipant(ctx context.Context, who string) (string, error) {
	return vm.changeParticipant(ctx, who, false)
}

func (vm *ViewModel) changeParticipant(ctx context.Context, who string, adding bool) (string, error) {
	chatID, err := vm.activeID()
	if err != nil {
		return "", err
	}
	c, err := pickContact(vm.s.ChatOps.Candidates(chatID, adding), who)
	if err != nil {
		return "", err
	}
	if adding {
		if err := vm.s.ChatOps.AddParticipant(ctx, chatID, c.ID); err != nil {
			return "", err
		}
		return "Added " + c.Name, nil
	}
	if err := vm.s.ChatOps.RemoveParticipant(ctx, chatID, c.ID); err != nil {
		return "", err
	}
	return "Removed " + c.Name, nil
}

var fold = cases.Fold()

// pickContact finds who among candidates by exact id, then by name
// prefix. More than one name match is an error.
func pickContact(candidates []store.Contact, who string) (store.Contact, error) {
	who = strings.TrimSpace(who)
	if who == "" {
		return store.Contact{}, errors.New("name a contact")
	}
	for _, c := range candidates {
		if c.ID == who {
			return c, nil
		}
	}
	var matches []store.Contact
	needle := fold.String(who)
	for _, c := range candidates {
		if strings.HasPrefix(fold.String(c.Name), needle) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return store.Contact{}, fmt.Errorf("no contact matches %q", who)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, c := range matches {
		names[i] = c.Name
	}
	return store.Contact{}, fmt.Errorf("%q matches %s", who, strings.Join(names, ", "))
}

// Search looks for query in the open chat.
func (vm *ViewModel) Search(query string) ([]search.Result, error) {
	chatID, err := vm.activeID()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}
	return vm.s.Search(chatID, query, searchLimit)
}

// FindChat returns the id of the chat named name, matched like contacts.
func (vm *ViewModel) FindChat(name string) (string, error) {
	chats := vm.Chats()
	contacts := make([]store.Contact, len(chats))
	for i, c := range chats {
		contacts[i] = store.Contact{ID: c.ID, Name: c.Name}
	}
	c, err := pickContact(contacts, name)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// Reconnect reopens the push subscription if it has ended.
func (vm *ViewModel) Reconnect(ctx context.Context) error {
	return vm.s.Connect(ctx)
}

// Reload fetches chats and contacts again, and the history of the open
// chat if there is one.
func (vm *ViewModel) Reload(ctx context.Context) error {
	err := vm.s.Refresh(ctx)
	if id, noChat := vm.activeID(); noChat == nil {
		err = errors.Join(err, vm.s.Engine.LoadMessages(ctx, id))
	}
	return err
}
