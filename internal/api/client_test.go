package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/status"
	"github.com/matheus3301/wppchat/internal/store"
)

func testClient(t *testing.T, h http.Handler, mutate ...func(*config.Profile)) (*Client, *status.Machine) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p := config.Profile{
		UserID: "me",
		Token:  "tok",
		Server: config.Server{BaseURL: srv.URL, Timeout: "5s"},
		Rate:   config.Rate{PerSecond: 1000, Burst: 1000},
	}
	for _, m := range mutate {
		m(&p)
	}
	link := status.NewMachine(status.LinkAPI, nil)
	c, err := New(p, link, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.retryInitial = time.Millisecond
	return c, link
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestSendMessageJSON(t *testing.T) {
	var got map[string]any
	c, link := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("authorization = %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, map[string]any{
			"id": "srv-1", "chatId": "c1", "senderId": "me", "content": "hi",
			"timestamp": "2023-11-14T22:13:20Z", "status": "sent",
		})
	}))

	msg, err := c.SendMessage(context.Background(), OutgoingMessage{
		TempID: "tmp-1", ChatID: "c1", SenderID: "me", Content: "hi",
		Timestamp: 1700000000000, ReferenceContent: "earlier",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "srv-1" || msg.Status != store.StatusSent || msg.Timestamp != 1700000000000 {
		t.Errorf("msg = %+v", msg)
	}
	if got["tempId"] != "tmp-1" || got["chatId"] != "c1" || got["senderId"] != "me" || got["referenceContent"] != "earlier" {
		t.Errorf("request body = %v", got)
	}
	if link.Current() != status.Connected {
		t.Errorf("link = %s, want CONNECTED", link.Current())
	}
}

func TestSendMessageMultipart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, []byte("PNGDATA"), 0600); err != nil {
		t.Fatal(err)
	}

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("chatId") != "c1" || r.FormValue("tempId") != "tmp-9" || r.FormValue("content") != "look" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer func() { _ = f.Close() }()
		data, _ := io.ReadAll(f)
		if string(data) != "PNGDATA" || hdr.Filename != "photo.png" || hdr.Header.Get("Content-Type") != "image/png" {
			t.Errorf("file = %q %q %q", data, hdr.Filename, hdr.Header.Get("Content-Type"))
		}
		writeJSON(w, map[string]any{
			"id": "srv-9", "chatId": "c1", "senderId": "me", "content": "look",
			"timestamp": 1700000000000, "file": "https://cdn.example.com/photo.png", "fileName": "photo.png",
		})
	}))

	msg, err := c.SendMessage(context.Background(), OutgoingMessage{
		TempID: "tmp-9", ChatID: "c1", SenderID: "me", Content: "look", Timestamp: 1,
		File: &store.LocalBlob{Path: path, Name: "photo.png", Size: 7, MIMEType: "image/png"},
	})
	if err != nil {
		t.Fatal(err)
	}
	link, name, ok := msg.Attachment.Remote()
	if !ok || link != "https://cdn.example.com/photo.png" || name != "photo.png" {
		t.Errorf("attachment = %s %s %v", link, name, ok)
	}
}

func TestSendMessageIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	c, link := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.SendMessage(context.Background(), OutgoingMessage{ChatID: "c1", Content: "x"})
	var serr *StatusError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusInternalServerError || serr.Body != "boom" {
		t.Fatalf("err = %v, want 500 StatusError", err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
	if link.Current() != status.Error {
		t.Errorf("link = %s, want ERROR", link.Current())
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/api/messages/5511 9999" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(w, []map[string]any{
			{"id": "1", "senderId": "x", "content": "a", "timestamp": 1700000000},
			{"id": "", "content": "no id is skipped"},
			{"id": "2", "senderId": "me", "content": "b", "timestamp": 1700000001000, "status": "read"},
		})
	}))

	msgs, err := c.FetchMessages(context.Background(), "5511 9999")
	if err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
	if len(msgs) != 2 || msgs[0].ChatID != "5511 9999" || msgs[0].Timestamp != 1700000000000 || msgs[1].Status != store.StatusRead {
		t.Errorf("msgs = %+v", msgs)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	c, link := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "who are you", http.StatusUnauthorized)
	}))

	_, err := c.FetchChats(context.Background())
	var serr *StatusError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
	if link.Current() != status.Connected {
		t.Errorf("link = %s, want CONNECTED (server answered)", link.Current())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), func(p *config.Profile) {
		p.Breaker = config.Breaker{MaxFailures: 2, OpenTimeout: "1m", Interval: "1m"}
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := c.React(ctx, "c1", "m1", "me", "👍"); err == nil {
			t.Fatal("expected failure")
		}
	}
	err := c.React(ctx, "c1", "m1", "me", "👍")
	if !IsUnavailable(err) {
		t.Fatalf("err = %v, want breaker open", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2 (third call short-circuited)", hits.Load())
	}
	if UserMessage(err) != "Server unavailable. Try again in a moment." {
		t.Errorf("user message = %q", UserMessage(err))
	}
}

func TestChatEndpoints(t *testing.T) {
	type call struct {
		path string
		body map[string]string
	}
	var calls []call
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, call{r.URL.Path, body})
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := context.Background()
	if err := c.Chat(ctx, ActionPin, "c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddParticipant(ctx, "g1", "u2"); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveParticipant(ctx, "g1", "u3"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteMessage(ctx, "m1", "me"); err != nil {
		t.Fatal(err)
	}
	if err := c.Chat(ctx, "archive", "c1"); err == nil {
		t.Error("unknown action should fail before any request")
	}

	want := []call{
		{"/api/chat/pin", map[string]string{"waId": "c1"}},
		{"/api/chat/add-participant", map[string]string{"groupWaId": "g1", "participantWaId": "u2"}},
		{"/api/chat/remove-participant", map[string]string{"groupWaId": "g1", "participantWaId": "u3"}},
		{"/api/messages/m1/delete", map[string]string{"userId": "me"}},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %+v", calls)
	}
	for i := range want {
		if calls[i].path != want[i].path {
			t.Errorf("call %d path = %s, want %s", i, calls[i].path, want[i].path)
		}
		for k, v := range want[i].body {
			if calls[i].body[k] != v {
				t.Errorf("call %d body[%s] = %q, want %q", i, k, calls[i].body[k], v)
			}
		}
	}
}

func TestFetchContacts(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"id": "u1", "name": "Ana"}, {"name": "ghost"}})
	}))
	contacts, err := c.FetchContacts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Ana" {
		t.Errorf("contacts = %+v", contacts)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(config.Profile{Server: config.Server{BaseURL: "ftp://x"}}, nil, nil); err == nil {
		t.Error("New() expected error for non-http url")
	}
}

func TestRejectedTokenIsUnauthorized(t *testing.T) {
	c, link := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	_, err := c.FetchChats(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v", err)
	}
	if link.Current() != status.Connected {
		t.Errorf("link = %s, a 401 still proves the server is up", link.Current())
	}
	if IsUnauthorized(errors.New("plain")) {
		t.Error("plain error reported as unauthorized")
	}
}
