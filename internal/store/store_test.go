package store

import (
	"testing"
	"time"

	"github.com/matheus3301/wppchat/internal/bus"
)

func ids(list []Message) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.ID
	}
	return out
}

func assertIDs(t *testing.T, got []Message, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, want %v", g, want)
		}
	}
}

func TestAddMessageDeduplicates(t *testing.T) {
	s := NewMessageStore(nil)
	if !s.AddMessage("c", Message{ID: "m1", Content: "hi"}) {
		t.Fatal("first add should append")
	}
	if s.AddMessage("c", Message{ID: "m1", Content: "echo"}) {
		t.Error("second add with same id should be a no-op")
	}
	got := s.Messages("c")
	assertIDs(t, got, "m1")
	if got[0].Content != "hi" {
		t.Errorf("content = %q, want original kept", got[0].Content)
	}
	if got[0].ChatID != "c" {
		t.Errorf("chat id = %q, want c", got[0].ChatID)
	}
}

func TestSetMessagesSkipsIdenticalList(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe(KindMessagesSet, 10)
	defer unsub()

	s := NewMessageStore(b)
	s.SetMessages("c", []Message{{ID: "1"}, {ID: "2"}})
	s.SetMessages("c", []Message{{ID: "1"}, {ID: "2"}})

	count := 0
	timeout := time.After(100 * time.Millisecond)
loop:
	for {
		select {
		case <-ch:
			count++
		case <-timeout:
			break loop
		}
	}
	if count != 1 {
		t.Errorf("set events = %d, want 1", count)
	}

	// Same length, new tail: must not be skipped.
	s.SetMessages("c", []Message{{ID: "1"}, {ID: "3"}})
	assertIDs(t, s.Messages("c"), "1", "3")
}

func TestSetMessagesEmptyMarksLoaded(t *testing.T) {
	s := NewMessageStore(nil)
	if s.Loaded("c") {
		t.Fatal("fresh store should not report loaded")
	}
	s.SetMessages("c", nil)
	if !s.Loaded("c") {
		t.Error("empty history should still mark the chat loaded")
	}
}

func TestReplaceMessageSwapsTemp(t *testing.T) {
	s := NewMessageStore(nil)
	s.AddMessage("c", Message{ID: "a"})
	s.AddMessage("c", Message{ID: "tmp-1", Status: StatusSending})
	s.AddMessage("c", Message{ID: "b"})

	s.ReplaceMessage("c", "tmp-1", Message{ID: "srv-1", Status: StatusSent})
	assertIDs(t, s.Messages("c"), "a", "b", "srv-1")
}

func TestReplaceMessageAfterEchoDoesNotDuplicate(t *testing.T) {
	s := NewMessageStore(nil)
	s.AddMessage("c", Message{ID: "tmp-1", Status: StatusSending, Content: "hi"})
	// Push echo lands before the HTTP response.
	s.AddMessage("c", Message{ID: "srv-1", Status: StatusDelivered, Content: "hi"})

	s.ReplaceMessage("c", "tmp-1", Message{ID: "srv-1", Status: StatusSent, Content: "hi", Timestamp: 42})

	got := s.Messages("c")
	assertIDs(t, got, "srv-1")
	if got[0].Status != StatusDelivered {
		t.Errorf("status = %s, want delivered kept", got[0].Status)
	}
	if got[0].Timestamp != 42 {
		t.Errorf("timestamp = %d, want response value", got[0].Timestamp)
	}
}

func TestAtMostOneMessagePerID(t *testing.T) {
	s := NewMessageStore(nil)
	ops := []func(){
		func() { s.AddMessage("c", Message{ID: "x"}) },
		func() { s.AddMessage("c", Message{ID: "tmp-1"}) },
		func() { s.ReplaceMessage("c", "tmp-1", Message{ID: "x"}) },
		func() { s.AddMessage("c", Message{ID: "x"}) },
		func() { s.ReplaceMessage("c", "tmp-2", Message{ID: "x"}) },
		func() { s.AddMessage("c", Message{ID: "y"}) },
		func() { s.ReplaceMessage("c", "y", Message{ID: "x"}) },
	}
	for _, op := range ops {
		op()
		seen := map[string]bool{}
		for _, m := range s.Messages("c") {
			if seen[m.ID] {
				t.Fatalf("duplicate id %q in %v", m.ID, ids(s.Messages("c")))
			}
			seen[m.ID] = true
		}
	}
}

func TestUpdateMessageMissingIsNoop(t *testing.T) {
	s := NewMessageStore(nil)
	called := false
	if s.UpdateMessage("c", "nope", func(*Message) { called = true }) {
		t.Error("update of missing id should report false")
	}
	if called {
		t.Error("mutator should not run for a missing id")
	}
}

func TestUpdateMessageDoesNotLeakIntoSnapshots(t *testing.T) {
	s := NewMessageStore(nil)
	s.AddMessage("c", Message{ID: "m", Reactions: []Reaction{{Emoji: "👍", UserID: "u1"}}})
	before := s.Messages("c")

	s.UpdateMessage("c", "m", func(m *Message) {
		m.Reactions = append(m.Reactions, Reaction{Emoji: "❤️", UserID: "u2"})
		m.ID = "hijack"
	})

	if len(before[0].Reactions) != 1 {
		t.Errorf("earlier snapshot changed: %v", before[0].Reactions)
	}
	after, ok := s.Message("c", "m")
	if !ok {
		t.Fatal("id must not change through UpdateMessage")
	}
	if len(after.Reactions) != 2 {
		t.Errorf("reactions = %v, want 2", after.Reactions)
	}
}

func TestPrependMessagesSkipsKnown(t *testing.T) {
	s := NewMessageStore(nil)
	s.SetMessages("c", []Message{{ID: "3"}, {ID: "4"}})
	n := s.PrependMessages("c", []Message{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	if n != 2 {
		t.Errorf("prepended %d, want 2", n)
	}
	assertIDs(t, s.Messages("c"), "1", "2", "3", "4")
}

func TestRemoveMessage(t *testing.T) {
	s := NewMessageStore(nil)
	s.SetMessages("c", []Message{{ID: "1"}, {ID: "2"}})
	if !s.RemoveMessage("c", "1") {
		t.Fatal("remove should report true")
	}
	if s.RemoveMessage("c", "1") {
		t.Error("second remove should report false")
	}
	assertIDs(t, s.Messages("c"), "2")
}

func TestChatListOrdering(t *testing.T) {
	s := NewChatStore(nil)
	s.SetChats([]Chat{
		{ID: "old", Timestamp: 100},
		{ID: "new", Timestamp: 300},
		{ID: "pinned-old", Timestamp: 50, IsPinned: true},
		{ID: "mid", Timestamp: 200},
	})
	list := s.List()
	want := []string{"pinned-old", "new", "mid", "old"}
	for i, c := range list {
		if c.ID != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, c.ID, want[i])
		}
	}
}

func TestUpdateChatCreatesMissing(t *testing.T) {
	s := NewChatStore(nil)
	s.UpdateChat("new", func(c *Chat) { c.Name = "New" })
	c, ok := s.Chat("new")
	if !ok || c.Name != "New" {
		t.Errorf("chat = %+v, %v", c, ok)
	}
}

func TestContactsSortedByName(t *testing.T) {
	s := NewContactStore(nil)
	s.SetContacts([]Contact{{ID: "2", Name: "bob"}, {ID: "1", Name: "Alice"}})
	list := s.Contacts()
	if list[0].ID != "1" || list[1].ID != "2" {
		t.Errorf("order = %v", list)
	}
	if got := s.DisplayName("3"); got != "3" {
		t.Errorf("unknown display name = %q, want id", got)
	}
}

func TestAttachmentVariants(t *testing.T) {
	p := Pending(LocalBlob{Path: "/tmp/a.png", Name: "a.png", Size: 10})
	if p.Kind() != AttachmentPending {
		t.Errorf("kind = %v", p.Kind())
	}
	if _, _, ok := p.Remote(); ok {
		t.Error("pending attachment must not expose a remote url")
	}
	if b, ok := p.Blob(); !ok || b.Path != "/tmp/a.png" {
		t.Errorf("blob = %+v, %v", b, ok)
	}

	u := Uploaded("https://cdn/x.pdf", "x.pdf")
	if _, ok := u.Blob(); ok {
		t.Error("uploaded attachment must not expose a blob")
	}
	if url, name, ok := u.Remote(); !ok || url != "https://cdn/x.pdf" || name != "x.pdf" {
		t.Errorf("remote = %s %s %v", url, name, ok)
	}
	if (Message{Attachment: u}).Preview() != "📎 x.pdf" {
		t.Errorf("preview = %q", (Message{Attachment: u}).Preview())
	}
}

func TestStatusProgression(t *testing.T) {
	if MaxStatus(StatusRead, StatusSent) != StatusRead {
		t.Error("read must not regress to sent")
	}
	if MaxStatus(StatusSending, StatusDelivered) != StatusDelivered {
		t.Error("delivered should win over sending")
	}
	if Status("bogus").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestAddMessageDoesNotMarkLoaded(t *testing.T) {
	s := NewMessageStore(nil)
	s.AddMessage("c", Message{ID: "p1"})
	if s.Loaded("c") {
		t.Error("a pushed message marked the history loaded")
	}
	s.MergeHistory("c", nil)
	if !s.Loaded("c") {
		t.Error("merged history did not mark the chat loaded")
	}
	s.Clear()
	if s.Loaded("c") {
		t.Error("Clear kept the loaded mark")
	}
}

func TestMergeHistoryKeepsLaterMessages(t *testing.T) {
	s := NewMessageStore(nil)
	s.AddMessage("c", Message{ID: "h2", Status: StatusRead})
	s.AddMessage("c", Message{ID: "p1", Content: "pushed"})
	s.AddMessage("c", Message{ID: "tmp-1", Status: StatusSending})

	added := s.MergeHistory("c", []Message{
		{ID: "h1", Content: "old"},
		{ID: "h2", Content: "older reply", Status: StatusSent},
		{ID: "h1", Content: "dup"},
	})
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	got := s.Messages("c")
	assertIDs(t, got, "h1", "h2", "p1", "tmp-1")
	if got[0].Content != "old" || got[0].ChatID != "c" {
		t.Errorf("h1 = %+v", got[0])
	}
	if got[1].Status != StatusRead || got[1].Content != "older reply" {
		t.Errorf("h2 = %+v, want server content with the read status kept", got[1])
	}
}

func TestMergeHistoryKeepsTombstones(t *testing.T) {
	s := NewMessageStore(nil)
	s.AddMessage("c", Message{ID: "m1", Content: DeletedPlaceholder, Deleted: true})
	s.MergeHistory("c", []Message{{ID: "m1", Content: "secret"}})
	if got, _ := s.Message("c", "m1"); !got.Deleted || got.Content != DeletedPlaceholder {
		t.Errorf("m1 = %+v", got)
	}
}
