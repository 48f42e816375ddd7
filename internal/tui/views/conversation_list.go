package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/wppchat/internal/store"
	"github.com/matheus3301/wppchat/internal/tui/ui"
)

// ConversationList is the table of chats, pinned first.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []store.Chat
	visible []store.Chat
	filter  string
	now     func() time.Time
}

// NewConversationList creates the chat table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
		now:   time.Now,
	}
	cl.render()
	return cl
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Chats" }

// Init implements Component.
func (cl *ConversationList) Init() {}

// Start implements Component.
func (cl *ConversationList) Start() {}

// Stop implements Component.
func (cl *ConversationList) Stop() {}

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the chats and keeps the cursor on the same chat when it
// is still listed.
func (cl *ConversationList) Update(chats []store.Chat) {
	selected := cl.SelectedChat()
	cl.chats = chats
	cl.render()
	cl.selectChat(selected)
}

// SetFilter shows only chats whose name or preview contains filter.
func (cl *ConversationList) SetFilter(filter string) {
	selected := cl.SelectedChat()
	cl.filter = strings.TrimSpace(filter)
	cl.render()
	cl.selectChat(selected)
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string { return cl.filter }

func (cl *ConversationList) matches(c store.Chat) bool {
	if cl.filter == "" {
		return true
	}
	return containsFold(chatTitle(c), cl.filter) || containsFold(c.LastMessage, cl.filter)
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 2},
		{" LAST MESSAGE", 4},
		{" TIME", 0},
		{" ", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := cl.now()
	cl.visible = cl.visible[:0]
	for _, c := range cl.chats {
		if !cl.matches(c) {
			continue
		}
		cl.visible = append(cl.visible, c)
		row := len(cl.visible)

		fg := cl.theme.FgColor
		name := chatTitle(c)
		if c.UnreadCount > 0 {
			name = fmt.Sprintf("(%d) %s", c.UnreadCount, name)
			fg = cl.theme.UnreadColor
		}
		if c.IsBlocked {
			fg = cl.theme.MutedColor
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).
			SetExpansion(2).SetMaxWidth(32).SetTextColor(fg))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(oneLine(c.LastMessage)))).
			SetExpansion(4).SetTextColor(cl.theme.MutedColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+formatListTime(c.Timestamp, now)).
			SetAlign(tview.AlignRight).SetTextColor(cl.theme.MutedColor))
		cl.SetCell(row, 3, tview.NewTableCell(" "+chatFlags(c)+" ").
			SetTextColor(cl.theme.CounterColor))
	}

	switch {
	case cl.filter != "":
		cl.SetTitle(fmt.Sprintf(" Chats (%d/%d) filter: %s ", len(cl.visible), len(cl.chats), tview.Escape(cl.filter)))
	default:
		cl.SetTitle(fmt.Sprintf(" Chats (%d) ", len(cl.chats)))
	}
}

func chatTitle(c store.Chat) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

func chatFlags(c store.Chat) string {
	var flags []string
	if c.IsPinned {
		flags = append(flags, "P")
	}
	if c.IsMuted {
		flags = append(flags, "M")
	}
	if c.IsBlocked {
		flags = append(flags, "B")
	}
	if c.IsGroup {
		flags = append(flags, "G")
	}
	return strings.Join(flags, "")
}

// SelectedChat returns the id of the chat under the cursor.
func (cl *ConversationList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the id of the nth visible chat, counting from 1.
func (cl *ConversationList) ChatByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ID
}

func (cl *ConversationList) selectChat(id string) {
	for i, c := range cl.visible {
		if c.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
	if len(cl.visible) > 0 {
		cl.Select(1, 0)
	}
}
