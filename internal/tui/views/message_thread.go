package views

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/wppchat/internal/store"
	"github.com/matheus3301/wppchat/internal/tui/ui"
)

// MessageThread shows one conversation above its composer. Messages are
// numbered from 1 so composer commands can refer to them.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	status   *tview.TextView
	composer *tview.InputField

	chat     store.Chat
	msgs     []store.Message
	self     string
	names    func(id string) string
	now      func() time.Time
	onSubmit func(text string)
}

// NewMessageThread creates an empty thread.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	status := tview.NewTextView().
		SetDynamicColors(true)
	status.SetBackgroundColor(theme.BgColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(status, 1, 0, false).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		status:   status,
		composer: composer,
		names:    func(id string) string { return id },
		now:      time.Now,
	}
	mt.SetComposerState("", false, "")

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSubmit == nil {
			return
		}
		if text := composer.GetText(); strings.TrimSpace(text) != "" {
			mt.onSubmit(text)
		}
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.chat.ID == "" {
		return "Chat"
	}
	return chatTitle(mt.chat)
}

// Init implements Component.
func (mt *MessageThread) Init() {}

// Start implements Component.
func (mt *MessageThread) Start() {}

// Stop implements Component.
func (mt *MessageThread) Stop() {}

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "/cmd", Description: "Composer commands"},
	}
}

// SetOnSubmit sets the callback for Enter in the composer. The callback
// decides whether to clear the input.
func (mt *MessageThread) SetOnSubmit(fn func(text string)) {
	mt.onSubmit = fn
}

// SetIdentity sets the local user id and the resolver for sender names.
func (mt *MessageThread) SetIdentity(self string, names func(id string) string) {
	mt.self = self
	if names != nil {
		mt.names = names
	}
}

// ChatID returns the chat on screen.
func (mt *MessageThread) ChatID() string { return mt.chat.ID }

// Update redraws the thread and jumps to the newest message, unless a
// search hit is highlighted in the same chat.
func (mt *MessageThread) Update(chat store.Chat, msgs []store.Message) {
	switched := chat.ID != mt.chat.ID
	mt.chat = chat
	mt.msgs = msgs

	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(chatTitle(chat)))))
	mt.messages.Clear()
	renderThread(mt.messages, threadOptions{
		theme: mt.theme,
		chat:  chat,
		msgs:  msgs,
		self:  mt.self,
		names: mt.names,
		now:   mt.now(),
	})
	if switched {
		mt.messages.Highlight()
	}
	if len(mt.messages.GetHighlights()) == 0 {
		mt.messages.ScrollToEnd()
	}
}

// SetComposerState shows the pending reply, the in-flight marker and the
// last send error of the chat.
func (mt *MessageThread) SetComposerState(reply string, sending bool, lastErr string) {
	mt.status.Clear()
	switch {
	case lastErr != "":
		_, _ = fmt.Fprintf(mt.status, " [%s]%s[-]", ui.Tag(mt.theme.FlashErrColor), tview.Escape(lastErr))
	case reply != "":
		_, _ = fmt.Fprintf(mt.status, " [%s]replying to: %s[-]", ui.Tag(mt.theme.QuoteColor),
			tview.Escape(sanitizeForTerminal(oneLine(reply))))
	}

	title := " Compose "
	if sending {
		title = " Sending... "
	}
	mt.composer.SetTitle(title)
}

// ClearComposer empties the input.
func (mt *MessageThread) ClearComposer() {
	mt.composer.SetText("")
}

// Highlight scrolls to the message with id and marks it.
func (mt *MessageThread) Highlight(id string) bool {
	for i, m := range mt.msgs {
		if m.ID == id {
			mt.messages.Highlight(regionID(i))
			mt.messages.ScrollToHighlight()
			return true
		}
	}
	return false
}

// ClearHighlight drops the search mark and follows the bottom again.
func (mt *MessageThread) ClearHighlight() {
	mt.messages.Highlight()
	mt.messages.ScrollToEnd()
}

// Messages returns the message pane, for focus handling.
func (mt *MessageThread) Messages() *tview.TextView { return mt.messages }

// Composer returns the input field, for focus handling.
func (mt *MessageThread) Composer() *tview.InputField { return mt.composer }

func regionID(i int) string { return fmt.Sprintf("m%d", i+1) }

type threadOptions struct {
	theme *ui.Theme
	chat  store.Chat
	msgs  []store.Message
	self  string
	names func(id string) string
	now   time.Time
}

func renderThread(w io.Writer, o threadOptions) {
	if len(o.msgs) == 0 {
		_, _ = fmt.Fprintf(w, "\n  [%s]No messages yet.[-]", ui.Tag(o.theme.MutedColor))
		return
	}

	colors := ParticipantColors(o.chat.Participants, o.theme.Participants)
	loc := o.now.Location()
	for i, m := range o.msgs {
		if i == 0 || !sameDay(o.msgs[i-1].Timestamp, m.Timestamp, loc) {
			_, _ = fmt.Fprintf(w, "\n[%s]          ── %s ──[-]\n\n", ui.Tag(o.theme.ChipColor), DateChip(m.Timestamp, o.now))
		}

		own := m.FromMe() || (o.self != "" && m.SenderID == o.self)
		sender, senderColor := "You", o.theme.OwnMessageColor
		if !own {
			sender = o.names(m.SenderID)
			senderColor = o.theme.TitleColor
			if c, ok := colors[m.SenderID]; ok && o.chat.IsGroup {
				senderColor = c
			}
		}

		_, _ = fmt.Fprintf(w, "[\"%s\"][%s]%3d[-] [%s::b]%s[-:-:-] [%s]%s[-]",
			regionID(i), ui.Tag(o.theme.MutedColor), i+1,
			ui.Tag(senderColor), tview.Escape(sanitizeForTerminal(sender)),
			ui.Tag(o.theme.MutedColor), formatClock(m.Timestamp))
		if own {
			tick := o.theme.TickColor
			if m.Status == store.StatusRead {
				tick = o.theme.ReadTickColor
			}
			_, _ = fmt.Fprintf(w, " [%s]%s[-]", ui.Tag(tick), Tick(m.Status))
		}
		_, _ = fmt.Fprint(w, "[\"\"]\n")

		if m.ReferencedContent != "" && !m.Deleted {
			_, _ = fmt.Fprintf(w, "    [%s]│ %s[-]\n", ui.Tag(o.theme.QuoteColor),
				tview.Escape(sanitizeForTerminal(oneLine(m.ReferencedContent))))
		}

		switch {
		case m.Deleted:
			_, _ = fmt.Fprintf(w, "    [%s::i]%s[-:-:-]\n", ui.Tag(o.theme.MutedColor), store.DeletedPlaceholder)
		case m.Content != "":
			body := tview.Escape(sanitizeForTerminal(m.Content))
			body = strings.ReplaceAll(body, "\n", "\n    ")
			_, _ = fmt.Fprintf(w, "    %s\n", body)
		}

		if a := m.Attachment; a != nil && !m.Deleted {
			state := "sent"
			if a.Kind() == store.AttachmentPending {
				state = "uploading"
			}
			_, _ = fmt.Fprintf(w, "    [%s]📎 %s (%s)[-]\n", ui.Tag(o.theme.CounterColor),
				tview.Escape(sanitizeForTerminal(a.Filename())), state)
		}

		if len(m.Reactions) > 0 {
			_, _ = fmt.Fprintf(w, "    %s\n", tview.Escape(SummarizeReactions(m.Reactions)))
		}
		_, _ = fmt.Fprintln(w)
	}
}
