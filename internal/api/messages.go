package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"

	"github.com/matheus3301/wppchat/internal/store"
	"github.com/matheus3301/wppchat/internal/wire"
)

// OutgoingMessage is everything the send endpoint needs. File, when set,
// makes the request multipart.
type OutgoingMessage struct {
	TempID           string
	ChatID           string
	SenderID         string
	Content          string
	Timestamp        int64
	ReferenceContent string
	File             *store.LocalBlob
}

// FetchMessages loads the history of one chat, oldest first.
func (c *Client) FetchMessages(ctx context.Context, chatID string) ([]store.Message, error) {
	var raw []wire.Message
	if err := c.getJSON(ctx, &raw, "api", "messages", chatID); err != nil {
		return nil, err
	}
	msgs := make([]store.Message, 0, len(raw))
	for _, m := range raw {
		if m.ID == "" {
			continue
		}
		sm := m.ToStore()
		if sm.ChatID == "" {
			sm.ChatID = chatID
		}
		msgs = append(msgs, sm)
	}
	return msgs, nil
}

// SendMessage posts a new message and returns the server's copy of it.
// It is never retried.
func (c *Client) SendMessage(ctx context.Context, m OutgoingMessage) (store.Message, error) {
	var saved wire.Message
	var err error
	if m.File != nil {
		err = c.sendMultipart(ctx, m, &saved)
	} else {
		err = c.postJSON(ctx, wire.Message{
			TempID:           m.TempID,
			ChatID:           m.ChatID,
			SenderID:         m.SenderID,
			Content:          m.Content,
			Timestamp:        wire.Timestamp(m.Timestamp),
			Status:           string(store.StatusSending),
			ReferenceContent: m.ReferenceContent,
		}, &saved, "api", "messages")
	}
	if err != nil {
		return store.Message{}, err
	}
	if saved.ID == "" {
		return store.Message{}, fmt.Errorf("send message: response has no id")
	}
	out := saved.ToStore()
	if out.ChatID == "" {
		out.ChatID = m.ChatID
	}
	return out, nil
}

func (c *Client) sendMultipart(ctx context.Context, m OutgoingMessage, out *wire.Message) error {
	f, err := os.Open(m.File.Path)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}
	defer func() { _ = f.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, m, f))
	}()
	// Unblocks the writer if the request never reads the body.
	defer func() { _ = pr.Close() }()

	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        []string{"api", "messages"},
		body:        pr,
		contentType: mw.FormDataContentType(),
	}, out)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeMultipart(mw *multipart.Writer, m OutgoingMessage, file io.Reader) error {
	fields := [][2]string{
		{"tempId", m.TempID},
		{"chatId", m.ChatID},
		{"senderId", m.SenderID},
		{"content", m.Content},
		{"timestamp", strconv.FormatInt(m.Timestamp, 10)},
		{"referenceContent", m.ReferenceContent},
	}
	for _, kv := range fields {
		if kv[1] == "" && kv[0] == "referenceContent" {
			continue
		}
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(m.File.Name)))
	ct := m.File.MIMEType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return mw.Close()
}

type reactBody struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
	Emoji  string `json:"emoji"`
}

// React adds an emoji reaction on the server.
func (c *Client) React(ctx context.Context, chatID, messageID, userID, emoji string) error {
	return c.postJSON(ctx, reactBody{ChatID: chatID, UserID: userID, Emoji: emoji}, nil, "api", "messages", messageID, "react")
}

type deleteBody struct {
	UserID string `json:"userId"`
}

// DeleteMessage asks the server to tombstone a message.
func (c *Client) DeleteMessage(ctx context.Context, messageID, userID string) error {
	return c.postJSON(ctx, deleteBody{UserID: userID}, nil, "api", "messages", messageID, "delete")
}
