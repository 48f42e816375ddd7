package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wppchat/internal/api"
	"github.com/matheus3301/wppchat/internal/attach"
	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/store"
)

// mockAPI records calls and returns configurable results.
type mockAPI struct {
	mu      sync.Mutex
	sends   []api.OutgoingMessage
	reacts  []string
	deletes []string

	err     error
	gate    chan struct{} // when set, SendMessage blocks until it is closed
	entered chan struct{}
	during  func(api.OutgoingMessage)
}

func (m *mockAPI) SendMessage(_ context.Context, out api.OutgoingMessage) (store.Message, error) {
	m.mu.Lock()
	m.sends = append(m.sends, out)
	m.mu.Unlock()
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.gate != nil {
		<-m.gate
	}
	if m.during != nil {
		m.during(out)
	}
	if m.err != nil {
		return store.Message{}, m.err
	}
	return store.Message{
		ID:        "srv-1",
		ChatID:    out.ChatID,
		SenderID:  out.SenderID,
		Content:   out.Content,
		Timestamp: out.Timestamp + 5,
		Status:    store.StatusSent,
	}, nil
}

func (m *mockAPI) React(_ context.Context, chatID, messageID, userID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reacts = append(m.reacts, chatID+"/"+messageID+"/"+userID+"/"+emoji)
	return nil
}

func (m *mockAPI) DeleteMessage(_ context.Context, messageID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, messageID+"/"+userID)
	return nil
}

func (m *mockAPI) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

type fixture struct {
	sender   *Sender
	api      *mockAPI
	messages *store.MessageStore
	chats    *store.ChatStore
}

func newFixture(t *testing.T, mock *mockAPI) *fixture {
	t.Helper()
	policy, err := attach.NewPolicy(config.Profile{}.WithDefaults().Limits)
	if err != nil {
		t.Fatal(err)
	}
	messages := store.NewMessageStore(nil)
	chats := store.NewChatStore(nil)
	chats.SetChats([]store.Chat{{ID: "c1", Name: "Ana", UnreadCount: 3}, {ID: "c2", Name: "Bia"}})

	logger, _ := zap.NewDevelopment()
	s := NewSender(mock, policy, messages, chats, "u-me", logger)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	s.newID = func() string { return "fixed" }
	return &fixture{sender: s, api: mock, messages: messages, chats: chats}
}

func TestSendReplacesTempWithServerMessage(t *testing.T) {
	f := newFixture(t, &mockAPI{})

	final, err := f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "  hi there "})
	if err != nil {
		t.Fatal(err)
	}
	if final.ID != "srv-1" {
		t.Errorf("final id = %q", final.ID)
	}

	msgs := f.messages.Messages("c1")
	if len(msgs) != 1 || msgs[0].ID != "srv-1" {
		t.Fatalf("messages = %+v, want only srv-1", msgs)
	}
	if _, ok := f.messages.Message("c1", store.TempID("fixed")); ok {
		t.Error("temp message still stored")
	}

	chat, _ := f.chats.Chat("c1")
	if chat.LastMessage != "hi there" || chat.UnreadCount != 0 || chat.Timestamp != 1700000000005 {
		t.Errorf("chat = %+v", chat)
	}
	if f.sender.LastError("c1") != "" {
		t.Errorf("LastError = %q", f.sender.LastError("c1"))
	}
	if f.sender.InFlight("c1") {
		t.Error("slot not released")
	}

	sent := f.api.sends[0]
	if sent.TempID != store.TempID("fixed") || sent.SenderID != store.LocalSender || sent.Content != "hi there" {
		t.Errorf("outgoing = %+v", sent)
	}
}

func TestSendInsertsOptimisticMessageFirst(t *testing.T) {
	mock := &mockAPI{}
	f := newFixture(t, mock)
	var seen []store.Message
	mock.during = func(api.OutgoingMessage) { seen = f.messages.Messages("c1") }

	if _, err := f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "x", ReplyTo: "earlier"}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 {
		t.Fatalf("store during send = %+v", seen)
	}
	m := seen[0]
	if m.ID != store.TempID("fixed") || m.Status != store.StatusSending || !m.FromMe() ||
		m.Timestamp != 1700000000000 || m.ReferencedContent != "earlier" {
		t.Errorf("temp = %+v", m)
	}
}

func TestSendFailureKeepsTemp(t *testing.T) {
	boom := &api.StatusError{Method: "POST", Path: "/api/messages", StatusCode: 500}
	f := newFixture(t, &mockAPI{err: boom})

	_, err := f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "hello"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	msgs := f.messages.Messages("c1")
	if len(msgs) != 1 || msgs[0].ID != store.TempID("fixed") || msgs[0].Status != store.StatusSending {
		t.Errorf("messages = %+v, want the SENDING temp", msgs)
	}
	if got := f.sender.LastError("c1"); got != "Error sending message. Please try again." {
		t.Errorf("LastError = %q", got)
	}
	if f.api.sendCount() != 1 {
		t.Errorf("send calls = %d, want 1", f.api.sendCount())
	}
	if f.sender.InFlight("c1") {
		t.Error("slot not released after failure")
	}

	// The user retries by hand.
	f.api.err = nil
	f.sender.newID = func() string { return "second" }
	if _, err := f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "hello"}); err != nil {
		t.Fatal(err)
	}
	if f.sender.LastError("c1") != "" {
		t.Error("LastError not cleared by a later send")
	}
}

func TestSendIsSingleFlightPerChat(t *testing.T) {
	mock := &mockAPI{gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	f := newFixture(t, mock)

	errc := make(chan error, 1)
	go func() {
		_, err := f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "first"})
		errc <- err
	}()
	<-mock.entered

	if _, err := f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "second"}); !errors.Is(err, ErrSendInFlight) {
		t.Errorf("second send error = %v, want ErrSendInFlight", err)
	}
	if n := len(f.messages.Messages("c1")); n != 1 {
		t.Errorf("store has %d messages during flight, want 1", n)
	}
	if mock.sendCount() != 1 {
		t.Errorf("send calls = %d, want 1", mock.sendCount())
	}

	close(mock.gate)
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if f.sender.InFlight("c1") {
		t.Error("slot not released")
	}
}

func TestSendOtherChatNotBlocked(t *testing.T) {
	mock := &mockAPI{gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	f := newFixture(t, mock)

	var wg sync.WaitGroup
	for _, id := range []string{"c1", "c2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.sender.Send(context.Background(), Request{ChatID: id, Content: "hey"}); err != nil {
				t.Errorf("send %s: %v", id, err)
			}
		}(id)
	}
	<-mock.entered
	<-mock.entered
	close(mock.gate)
	wg.Wait()
}

func TestSendRejections(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no chat", Request{Content: "x"}, ErrNoChat},
		{"unknown chat", Request{ChatID: "nope", Content: "x"}, ErrNoChat},
		{"empty", Request{ChatID: "c1", Content: "   "}, ErrNothingToSend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &mockAPI{})
			if _, err := f.sender.Send(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if f.api.sendCount() != 0 || len(f.messages.Messages("c1")) != 0 {
				t.Error("rejected send had side effects")
			}
			if f.sender.LastError("c1") != "" {
				t.Error("rejected send set an error")
			}
		})
	}
}

func TestOversizedImageRejectedBeforeNetwork(t *testing.T) {
	f := newFixture(t, &mockAPI{})
	blob := &store.LocalBlob{Path: "/tmp/big.png", Name: "big.png", Size: 6_000_000, MIMEType: "image/png"}

	_, err := f.sender.Send(context.Background(), Request{ChatID: "c1", File: blob})
	var verr *attach.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *attach.ValidationError", err)
	}
	if f.api.sendCount() != 0 {
		t.Error("network call made for an oversized image")
	}
	if n := len(f.messages.Messages("c1")); n != 0 {
		t.Errorf("store gained %d messages", n)
	}
	if f.sender.LastError("c1") != verr.Reason {
		t.Errorf("LastError = %q, want %q", f.sender.LastError("c1"), verr.Reason)
	}
	if f.sender.InFlight("c1") {
		t.Error("slot not released")
	}
}

func TestSendWithAttachmentStoresPending(t *testing.T) {
	mock := &mockAPI{}
	f := newFixture(t, mock)
	blob := &store.LocalBlob{Path: "/tmp/notes.pdf", Name: "NOTES.PDF", Size: 1024, MIMEType: "application/pdf"}
	var temp store.Message
	mock.during = func(api.OutgoingMessage) { temp = f.messages.Messages("c1")[0] }

	if _, err := f.sender.Send(context.Background(), Request{ChatID: "c1", File: blob}); err != nil {
		t.Fatal(err)
	}
	if temp.Attachment == nil || temp.Attachment.Kind() != store.AttachmentPending {
		t.Fatalf("temp attachment = %+v", temp.Attachment)
	}
	if got, _ := temp.Attachment.Blob(); got.Name != "NOTES.PDF" {
		t.Errorf("filename changed to %q", got.Name)
	}
	if mock.sends[0].File != blob {
		t.Error("file not passed to the API")
	}
}

func TestShoutingIsTitleCased(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HELLO THERE", "Hello There"},
		{"Hello There", "Hello There"},
		{"hello", "hello"},
		{"OK!", "Ok!"},
		{"123 ...", "123 ..."},
		{"ÓTIMO DIA", "Ótimo Dia"},
	}
	for _, tt := range tests {
		if got := normalizeShout(tt.in); got != tt.want {
			t.Errorf("normalizeShout(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	mock := &mockAPI{}
	f := newFixture(t, mock)
	var temp store.Message
	mock.during = func(api.OutgoingMessage) { temp = f.messages.Messages("c1")[0] }
	if _, err := f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "HELLO THERE", ReplyTo: "WHO IS THIS"}); err != nil {
		t.Fatal(err)
	}
	if temp.Content != "Hello There" || mock.sends[0].Content != "Hello There" {
		t.Errorf("content = %q / %q", temp.Content, mock.sends[0].Content)
	}
	if temp.ReferencedContent != "WHO IS THIS" {
		t.Errorf("reply text was changed to %q", temp.ReferencedContent)
	}
}

func TestPushEchoBeforeResponseDoesNotDuplicate(t *testing.T) {
	mock := &mockAPI{}
	f := newFixture(t, mock)
	mock.during = func(out api.OutgoingMessage) {
		f.messages.AddMessage("c1", store.Message{
			ID: "srv-1", ChatID: "c1", SenderID: out.SenderID, Content: out.Content,
			Timestamp: out.Timestamp, Status: store.StatusDelivered,
		})
	}

	if _, err := f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "echo"}); err != nil {
		t.Fatal(err)
	}
	msgs := f.messages.Messages("c1")
	if len(msgs) != 1 || msgs[0].ID != "srv-1" {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Status != store.StatusDelivered {
		t.Errorf("status = %s, want delivered kept", msgs[0].Status)
	}

	before := len(f.messages.Messages("c1"))
	f.messages.AddMessage("c1", store.Message{ID: "srv-1", ChatID: "c1", Content: "echo"})
	if after := len(f.messages.Messages("c1")); after != before {
		t.Errorf("late echo changed length %d -> %d", before, after)
	}
}

func TestDeleteTombstones(t *testing.T) {
	f := newFixture(t, &mockAPI{})
	orig := store.Message{
		ID: "m1", ChatID: "c1", SenderID: "u2", Content: "secret", Timestamp: 42,
		Status: store.StatusRead, Attachment: store.Uploaded("https://x/y.jpg", "y.jpg"),
		ReferencedContent: "quoted",
	}
	f.messages.SetMessages("c1", []store.Message{orig})

	if !f.sender.Delete("c1", "m1") {
		t.Fatal("Delete reported missing message")
	}
	f.sender.Wait()

	got, _ := f.messages.Message("c1", "m1")
	if got.Content != store.DeletedPlaceholder || got.Attachment != nil || got.ReferencedContent != "" || !got.Deleted {
		t.Errorf("tombstone = %+v", got)
	}
	if got.ID != orig.ID || got.SenderID != orig.SenderID || got.Timestamp != orig.Timestamp {
		t.Errorf("identity changed: %+v", got)
	}
	if chat, _ := f.chats.Chat("c1"); chat.LastMessage != store.DeletedPlaceholder {
		t.Errorf("chat preview = %q", chat.LastMessage)
	}
	if len(f.api.deletes) != 1 || f.api.deletes[0] != "m1/u-me" {
		t.Errorf("delete calls = %v", f.api.deletes)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	f := newFixture(t, &mockAPI{})
	if f.sender.Delete("c1", "ghost") {
		t.Error("Delete of unknown message reported success")
	}
	f.sender.Wait()
	if len(f.api.deletes) != 0 {
		t.Errorf("delete calls = %v", f.api.deletes)
	}
}

func TestReactOnMissingMessageSendsNothing(t *testing.T) {
	f := newFixture(t, &mockAPI{})
	f.messages.SetMessages("c1", []store.Message{{ID: "m1", Content: "x"}})

	if f.sender.React("c1", "ghost", "👍") {
		t.Error("React on unknown message reported success")
	}
	if f.sender.React("c2", "m1", "👍") {
		t.Error("React in the wrong chat reported success")
	}
	f.sender.Wait()
	if len(f.api.reacts) != 0 {
		t.Errorf("react calls = %v", f.api.reacts)
	}
}

func TestReactAppends(t *testing.T) {
	f := newFixture(t, &mockAPI{})
	f.messages.SetMessages("c1", []store.Message{{
		ID: "m1", Content: "nice", Reactions: []store.Reaction{{Emoji: "👍", UserID: "u2"}},
	}})

	if !f.sender.React("c1", "m1", "❤️") {
		t.Fatal("React reported missing message")
	}
	f.sender.Wait()

	got, _ := f.messages.Message("c1", "m1")
	want := []store.Reaction{{Emoji: "👍", UserID: "u2"}, {Emoji: "❤️", UserID: "u-me"}}
	if len(got.Reactions) != len(want) {
		t.Fatalf("reactions = %+v", got.Reactions)
	}
	for i := range want {
		if got.Reactions[i] != want[i] {
			t.Errorf("reaction %d = %+v, want %+v", i, got.Reactions[i], want[i])
		}
	}
	if len(f.api.reacts) != 1 || f.api.reacts[0] != "c1/m1/u-me/❤️" {
		t.Errorf("react calls = %v", f.api.reacts)
	}
}

func TestReactDuringSendIsNotBlocked(t *testing.T) {
	mock := &mockAPI{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	f := newFixture(t, mock)
	f.messages.SetMessages("c1", []store.Message{{ID: "m1", Content: "x"}})

	done := make(chan struct{})
	go func() {
		_, _ = f.sender.Send(context.Background(), Request{ChatID: "c1", Content: "y"})
		close(done)
	}()
	<-mock.entered

	if !f.sender.React("c1", "m1", "😂") {
		t.Error("React blocked or failed while a send was in flight")
	}
	close(mock.gate)
	<-done
	f.sender.Wait()
}
