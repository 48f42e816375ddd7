// Package model holds the TUI state derived from a running session and
// the actions the views trigger on it.
package model

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/wppchat/internal/api"
	"github.com/matheus3301/wppchat/internal/app"
	"github.com/matheus3301/wppchat/internal/bus"
	"github.com/matheus3301/wppchat/internal/status"
	"github.com/matheus3301/wppchat/internal/store"
	"github.com/matheus3301/wppchat/internal/tui/ui"
)

// Refresh is a set of screen areas that need redrawing.
type Refresh uint8

const (
	RefreshChats Refresh = 1 << iota
	RefreshThread
	RefreshLinks
	RefreshLogin
)

// Has reports whether r includes area.
func (r Refresh) Has(area Refresh) bool { return r&area != 0 }

// ViewModel turns session bus events into coalesced refresh signals and
// keeps the per-chat composer state.
type ViewModel struct {
	s       *app.Session
	Flash   *ui.FlashModel
	started time.Time

	mu       sync.Mutex
	pending  Refresh
	replyTo  map[string]string
	failed   map[string]string
	loginErr error

	changed chan struct{}
	unsub   func()
	quit    chan struct{}
	done    chan struct{}
}

// NewViewModel wraps a session.
func NewViewModel(s *app.Session) *ViewModel {
	return &ViewModel{
		s:       s,
		Flash:   ui.NewFlashModel(),
		started: time.Now(),
		replyTo: make(map[string]string),
		failed:  make(map[string]string),
		changed: make(chan struct{}, 1),
	}
}

// Start follows the session bus until Stop.
func (vm *ViewModel) Start() {
	events, unsub := vm.s.Bus.SubscribeAll(256, "store.", "link.", "session.")
	vm.unsub = unsub
	vm.quit = make(chan struct{})
	vm.done = make(chan struct{})
	go func() {
		defer close(vm.done)
		for {
			select {
			case evt := <-events:
				vm.handle(evt)
			case <-vm.quit:
				return
			}
		}
	}()
}

// Stop unsubscribes from the bus and waits for the consumer to exit.
func (vm *ViewModel) Stop() {
	if vm.unsub == nil {
		return
	}
	vm.unsub()
	close(vm.quit)
	<-vm.done
	vm.unsub = nil
}

// Changed fires when Take has something to return.
func (vm *ViewModel) Changed() <-chan struct{} { return vm.changed }

// Take returns and resets the pending refresh set.
func (vm *ViewModel) Take() Refresh {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	r := vm.pending
	vm.pending = 0
	return r
}

func (vm *ViewModel) mark(r Refresh) {
	vm.mu.Lock()
	vm.pending |= r
	vm.mu.Unlock()
	select {
	case vm.changed <- struct{}{}:
	default:
	}
}

func (vm *ViewModel) handle(evt bus.Event) {
	active := vm.s.Engine.ActiveChat()
	switch p := evt.Payload.(type) {
	case store.MessageChange:
		if p.ChatID == active {
			vm.mark(RefreshThread)
		}
	case store.ChatChange:
		r := RefreshChats
		if p.ChatID == "" || p.ChatID == active {
			r |= RefreshThread
		}
		vm.mark(r)
	case status.StatusChange:
		if p.To == status.Error && p.Cause != nil {
			vm.Flash.Warn(fmt.Sprintf("%s link lost: %v", p.Link, p.Cause))
		}
		vm.mark(RefreshLinks)
	case error:
		if evt.Kind != app.KindLoadFailed {
			return
		}
		if api.IsUnauthorized(p) {
			vm.mu.Lock()
			vm.loginErr = p
			vm.mu.Unlock()
			vm.mark(RefreshLogin)
			return
		}
		vm.Flash.Err(fmt.Errorf("loading chats: %w", p))
	default:
		if evt.Kind == store.KindContactsChanged {
			vm.mark(RefreshChats | RefreshThread)
		}
	}
}

// LoginError returns the rejection that requires a new login, if any.
func (vm *ViewModel) LoginError() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loginErr
}

// Profile returns the profile name.
func (vm *ViewModel) Profile() string { return vm.s.Params.ProfileName }

// SelfID returns the local user's id.
func (vm *ViewModel) SelfID() string { return vm.s.Params.Profile.UserID }

// Name resolves a sender id for display.
func (vm *ViewModel) Name(id string) string {
	if id == store.LocalSender || (id != "" && id == vm.SelfID()) {
		return "You"
	}
	return vm.s.Contacts.DisplayName(id)
}

// Chats returns the chat list in display order.
func (vm *ViewModel) Chats() []store.Chat { return vm.s.Chats.List() }

// ActiveChat returns the open chat.
func (vm *ViewModel) ActiveChat() (store.Chat, bool) {
	id := vm.s.Engine.ActiveChat()
	if id == "" {
		return store.Chat{}, false
	}
	return vm.s.Chats.Chat(id)
}

// Messages returns the messages of the open chat, oldest first.
func (vm *ViewModel) Messages() []store.Message {
	id := vm.s.Engine.ActiveChat()
	if id == "" {
		return nil
	}
	return vm.s.Messages.Messages(id)
}

// Links returns the API and push link states.
func (vm *ViewModel) Links() (apiState, pushState status.State) {
	return vm.s.Links.API.Current(), vm.s.Links.Push.Current()
}

// ComposerState returns the pending reply, whether a send is in flight and
// the last send error of chatID.
func (vm *ViewModel) ComposerState(chatID string) (reply string, sending bool, lastErr string) {
	vm.mu.Lock()
	reply = vm.replyTo[chatID]
	vm.mu.Unlock()
	return reply, vm.s.Sender.InFlight(chatID), vm.s.Sender.LastError(chatID)
}

// SessionData summarises the session for the header.
func (vm *ViewModel) SessionData() *ui.SessionData {
	chats := vm.Chats()
	unread := 0
	for _, c := range chats {
		if c.UnreadCount > 0 && !c.IsMuted {
			unread++
		}
	}
	apiState, pushState := vm.Links()
	return &ui.SessionData{
		Profile: vm.Profile(),
		User:    vm.SelfID(),
		Server:  vm.s.Client.BaseURL().Host,
		API:     string(apiState),
		Push:    string(pushState),
		Chats:   len(chats),
		Unread:  unread,
		Uptime:  time.Since(vm.started),
	}
}

// ErrNoActiveChat is returned by chat actions while no chat is open.
var ErrNoActiveChat = errors.New("no chat is open")

func (vm *ViewModel) activeID() (string, error) {
	id := vm.s.Engine.ActiveChat()
	if id == "" {
		return "", ErrNoActiveChat
	}
	return id, nil
}
