package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wppchat/internal/api"
	"github.com/matheus3301/wppchat/internal/app"
	"github.com/matheus3301/wppchat/internal/attach"
	"github.com/matheus3301/wppchat/internal/bus"
	"github.com/matheus3301/wppchat/internal/chatops"
	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/outbox"
	"github.com/matheus3301/wppchat/internal/status"
	"github.com/matheus3301/wppchat/internal/store"
	intsync "github.com/matheus3301/wppchat/internal/sync"
)

type fakeBackend struct {
	mu      sync.Mutex
	sendErr error
	sent    []api.OutgoingMessage
	calls   []string
	history map[string][]store.Message
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeBackend) FetchChats(context.Context) ([]store.Chat, error)       { return nil, nil }
func (f *fakeBackend) FetchContacts(context.Context) ([]store.Contact, error) { return nil, nil }

func (f *fakeBackend) FetchMessages(_ context.Context, chatID string) ([]store.Message, error) {
	return f.history[chatID], nil
}

func (f *fakeBackend) SendMessage(_ context.Context, m api.OutgoingMessage) (store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return store.Message{}, f.sendErr
	}
	f.sent = append(f.sent, m)
	return store.Message{
		ID:                fmt.Sprintf("srv-%d", len(f.sent)),
		ChatID:            m.ChatID,
		SenderID:          store.LocalSender,
		Content:           m.Content,
		Timestamp:         m.Timestamp,
		Status:            store.StatusSent,
		ReferencedContent: m.ReferenceContent,
	}, nil
}

func (f *fakeBackend) React(_ context.Context, _, messageID, _, emoji string) error {
	f.record("react " + messageID + " " + emoji)
	return nil
}

func (f *fakeBackend) DeleteMessage(_ context.Context, messageID, _ string) error {
	f.record("delete " + messageID)
	return nil
}

func (f *fakeBackend) Chat(_ context.Context, action api.ChatAction, chatID string) error {
	f.record(string(action) + " " + chatID)
	return nil
}

func (f *fakeBackend) AddParticipant(_ context.Context, groupID, participantID string) error {
	f.record("add " + participantID)
	return nil
}

func (f *fakeBackend) RemoveParticipant(_ context.Context, groupID, participantID string) error {
	f.record("remove " + participantID)
	return nil
}

func newHarness(t *testing.T) (*ViewModel, *fakeBackend, *app.Session) {
	t.Helper()
	b := bus.New()
	messages := store.NewMessageStore(b)
	chats := store.NewChatStore(b)
	contacts := store.NewContactStore(b)
	policy, err := attach.NewPolicy(config.Profile{}.WithDefaults().Limits)
	if err != nil {
		t.Fatal(err)
	}

	fb := &fakeBackend{history: map[string][]store.Message{
		"c1": {
			{ID: "m1", ChatID: "c1", SenderID: "u2", Content: "lunch?", Timestamp: 1700000000000, Status: store.StatusRead},
			{ID: "m2", ChatID: "c1", SenderID: "u-me", Content: "maybe", Timestamp: 1700000001000, Status: store.StatusRead},
		},
	}}
	chats.SetChats([]store.Chat{
		{ID: "c1", Name: "Ana", Timestamp: 1700000001000},
		{ID: "g1", Name: "Family", IsGroup: true, Participants: []store.Participant{{ID: "u2", Name: "Bia"}}},
	})
	contacts.SetContacts([]store.Contact{{ID: "u2", Name: "Bia"}, {ID: "u3", Name: "Caio"}, {ID: "u4", Name: "Carla"}})

	logger := zap.NewNop()
	s := &app.Session{
		Params:   app.Params{ProfileName: "test", Profile: config.Profile{UserID: "u-me"}},
		Bus:      b,
		Links:    app.Links{API: status.NewMachine(status.LinkAPI, b), Push: status.NewMachine(status.LinkPush, b)},
		Messages: messages,
		Chats:    chats,
		Contacts: contacts,
		Sender:   outbox.NewSender(fb, policy, messages, chats, "u-me", logger),
		Engine:   intsync.NewEngine(fb, messages, chats, contacts, "u-me", logger),
		ChatOps:  chatops.NewService(fb, chats, contacts, logger),
	}
	return NewViewModel(s), fb, s
}

func TestSendQuotesPendingReply(t *testing.T) {
	vm, fb, _ := newHarness(t)
	ctx := context.Background()
	if err := vm.Open(ctx, "c1"); err != nil {
		t.Fatal(err)
	}

	if err := vm.SetReply(1); err != nil {
		t.Fatal(err)
	}
	if reply, _, _ := vm.ComposerState("c1"); reply != "lunch?" {
		t.Fatalf("reply = %q", reply)
	}
	if err := vm.Send(ctx, "yes"); err != nil {
		t.Fatal(err)
	}
	if len(fb.sent) != 1 || fb.sent[0].ReferenceContent != "lunch?" {
		t.Fatalf("sent = %+v", fb.sent)
	}
	if reply, _, _ := vm.ComposerState("c1"); reply != "" {
		t.Errorf("reply not cleared: %q", reply)
	}

	if err := vm.SetReply(9); err == nil {
		t.Error("reply to a missing message accepted")
	}
	_ = vm.SetReply(1)
	_ = vm.SetReply(0)
	if reply, _, _ := vm.ComposerState("c1"); reply != "" {
		t.Errorf("reply not cancelled: %q", reply)
	}
}

func TestFailedSendCanBeRetried(t *testing.T) {
	vm, fb, _ := newHarness(t)
	ctx := context.Background()
	_ = vm.Open(ctx, "c1")
	fb.sendErr = errors.New("connection reset")

	if err := vm.Send(ctx, "are you there"); err == nil {
		t.Fatal("send succeeded")
	}
	if _, _, lastErr := vm.ComposerState("c1"); lastErr == "" {
		t.Error("no error shown under the composer")
	}
	if err := vm.React(3, "👍"); err == nil || !strings.Contains(err.Error(), "not reached the server") {
		t.Errorf("react on temp message: %v", err)
	}

	text, ok := vm.Retry()
	if !ok || text != "are you there" {
		t.Fatalf("retry = %q %v", text, ok)
	}
	if _, _, lastErr := vm.ComposerState("c1"); lastErr != "" {
		t.Errorf("error kept after retry: %q", lastErr)
	}
	if _, ok := vm.Retry(); ok {
		t.Error("second retry returned text")
	}

	if err := vm.Send(ctx, "   "); !errors.Is(err, outbox.ErrNothingToSend) {
		t.Errorf("blank send: %v", err)
	}
	if _, ok := vm.Retry(); ok {
		t.Error("a rejected send was remembered")
	}
}

func TestReactAndDeleteByNumber(t *testing.T) {
	vm, _, s := newHarness(t)
	ctx := context.Background()
	_ = vm.Open(ctx, "c1")

	if err := vm.React(1, "👍"); err != nil {
		t.Fatal(err)
	}
	if err := vm.Delete(1); err == nil {
		t.Error("deleted someone else's message")
	}
	if err := vm.Delete(2); err != nil {
		t.Fatal(err)
	}
	if err := vm.Delete(2); err == nil {
		t.Error("deleted twice")
	}
	if err := vm.Delete(3); err == nil {
		t.Error("deleted a missing message")
	}
	s.Sender.Wait()

	if m, _ := s.Messages.Message("c1", "m1"); len(m.Reactions) != 1 {
		t.Errorf("reactions = %+v", m.Reactions)
	}
	if m, _ := s.Messages.Message("c1", "m2"); !m.Deleted {
		t.Error("m2 not tombstoned")
	}
}

func TestNoActiveChat(t *testing.T) {
	vm, _, _ := newHarness(t)
	if err := vm.Send(context.Background(), "hi"); !errors.Is(err, ErrNoActiveChat) {
		t.Errorf("send: %v", err)
	}
	if _, err := vm.Toggle(context.Background(), "", OptionMute); !errors.Is(err, ErrNoActiveChat) {
		t.Errorf("toggle: %v", err)
	}
}

func TestToggleDescribesOutcome(t *testing.T) {
	vm, fb, _ := newHarness(t)
	ctx := context.Background()
	_ = vm.Open(ctx, "c1")

	for _, want := range []string{"Pinned Ana", "Unpinned Ana"} {
		got, err := vm.Toggle(ctx, "", OptionPin)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if got, _ := vm.Toggle(ctx, "g1", OptionMute); got != "Muted Family" {
		t.Errorf("mute = %q", got)
	}
	if want := []string{"pin c1", "pin c1", "mute g1"}; !slices.Equal(fb.recorded(), want) {
		t.Errorf("calls = %v", fb.recorded())
	}
}

func TestParticipantsByName(t *testing.T) {
	vm, fb, s := newHarness(t)
	ctx := context.Background()
	_ = vm.Open(ctx, "g1")

	if _, err := vm.AddParticipant(ctx, "ca"); err == nil || !strings.Contains(err.Error(), "Caio, Carla") {
		t.Errorf("ambiguous add: %v", err)
	}
	if got, err := vm.AddParticipant(ctx, "cai"); err != nil || got != "Added Caio" {
		t.Fatalf("add = %q, %v", got, err)
	}
	if _, err := vm.AddParticipant(ctx, "bia"); err == nil {
		t.Error("added an existing participant")
	}
	if got, err := vm.RemoveParticipant(ctx, "u2"); err != nil || got != "Removed Bia" {
		t.Fatalf("remove = %q, %v", got, err)
	}

	chat, _ := s.Chats.Chat("g1")
	if chat.HasParticipant("u2") || !chat.HasParticipant("u3") {
		t.Errorf("participants = %+v", chat.Participants)
	}
	if want := []string{"add u3", "remove u2"}; !slices.Equal(fb.recorded(), want) {
		t.Errorf("calls = %v", fb.recorded())
	}

	_ = vm.Open(ctx, "c1")
	if _, err := vm.AddParticipant(ctx, "caio"); err == nil {
		t.Error("added a participant to a direct chat")
	}
}

func TestFindChat(t *testing.T) {
	vm, _, _ := newHarness(t)
	if id, err := vm.FindChat("fam"); err != nil || id != "g1" {
		t.Errorf("FindChat = %q, %v", id, err)
	}
	if _, err := vm.FindChat("zzz"); err == nil {
		t.Error("matched nothing")
	}
}

func TestName(t *testing.T) {
	vm, _, _ := newHarness(t)
	for id, want := range map[string]string{
		store.LocalSender: "You",
		"u-me":            "You",
		"u2":              "Bia",
		"stranger":        "stranger",
	} {
		if got := vm.Name(id); got != want {
			t.Errorf("Name(%q) = %q, want %q", id, got, want)
		}
	}
}

func waitFor(t *testing.T, vm *ViewModel, area Refresh) Refresh {
	t.Helper()
	var seen Refresh
	deadline := time.After(2 * time.Second)
	for !seen.Has(area) {
		select {
		case <-vm.Changed():
			seen |= vm.Take()
		case <-deadline:
			t.Fatalf("no refresh %b, saw %b", area, seen)
		}
	}
	return seen
}

func TestBusEventsBecomeRefreshes(t *testing.T) {
	vm, _, s := newHarness(t)
	_ = vm.Open(context.Background(), "c1")
	vm.Start()
	defer vm.Stop()
	vm.Take()

	s.Messages.AddMessage("c1", store.Message{ID: "x1", ChatID: "c1", SenderID: "u2", Content: "hey"})
	waitFor(t, vm, RefreshThread)

	s.Messages.AddMessage("g1", store.Message{ID: "x2", ChatID: "g1", SenderID: "u2", Content: "elsewhere"})
	_ = s.Links.Push.Fail(errors.New("stream closed"))
	if seen := waitFor(t, vm, RefreshLinks); seen.Has(RefreshThread) {
		t.Error("a message in another chat refreshed the thread")
	}
	if m := vm.Flash.Current(); m == nil || !strings.Contains(m.Text, "push link lost") {
		t.Errorf("flash = %+v", m)
	}

	s.Bus.Publish(bus.NewEvent(app.KindLoadFailed, &api.StatusError{Method: "GET", Path: "/api/chats", StatusCode: http.StatusUnauthorized}))
	waitFor(t, vm, RefreshLogin)
	if vm.LoginError() == nil {
		t.Error("login error not kept")
	}
}
