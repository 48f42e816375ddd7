package views

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/rivo/tview"

	"github.com/matheus3301/wppchat/internal/store"
	"github.com/matheus3301/wppchat/internal/tui/ui"
)

// ConversationInfo shows the details of a chat: flags, activity and, for
// groups, the coloured participant list.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates the details page.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Init implements Component.
func (ci *ConversationInfo) Init() {}

// Start implements Component.
func (ci *ConversationInfo) Start() {}

// Stop implements Component.
func (ci *ConversationInfo) Stop() {}

// Hints implements Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint { return nil }

// Update renders chat.
func (ci *ConversationInfo) Update(chat store.Chat) {
	ci.Clear()
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(chatTitle(chat)))))

	label := ui.Tag(ci.theme.FgColor)
	value := ui.Tag(ci.theme.CounterColor)
	row := func(name, v string) {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", label, name+":", value, tview.Escape(v))
	}

	kind := "Direct message"
	if chat.IsGroup {
		kind = fmt.Sprintf("Group, %d participants", len(chat.Participants))
	}

	_, _ = fmt.Fprintln(ci)
	row("Name", sanitizeForTerminal(chatTitle(chat)))
	row("ID", chat.ID)
	row("Type", kind)
	row("Unread", fmt.Sprint(chat.UnreadCount))
	row("Last active", lastActive(chat.Timestamp))
	row("Last message", sanitizeForTerminal(oneLine(chat.LastMessage)))
	row("Pinned", yesNo(chat.IsPinned))
	row("Muted", yesNo(chat.IsMuted))
	row("Blocked", yesNo(chat.IsBlocked))

	if !chat.IsGroup {
		return
	}

	_, _ = fmt.Fprintf(ci, "\n [%s::b]Participants[-:-:-]\n", label)
	colors := ParticipantColors(chat.Participants, ci.theme.Participants)
	ps := slices.Clone(chat.Participants)
	slices.SortFunc(ps, func(a, b store.Participant) int { return cmp.Compare(a.ID, b.ID) })
	for _, p := range ps {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		admin := ""
		if p.IsAdmin {
			admin = fmt.Sprintf(" [%s](admin)[-]", ui.Tag(ci.theme.MutedColor))
		}
		_, _ = fmt.Fprintf(ci, "   [%s]●[-] %s [%s]%s[-]%s\n",
			ui.Tag(colors[p.ID]), tview.Escape(sanitizeForTerminal(name)),
			ui.Tag(ci.theme.MutedColor), tview.Escape(p.ID), admin)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
