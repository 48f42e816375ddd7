package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/wppchat/internal/tui/ui"
)

// HelpView lists the keys and the composer commands.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Init implements Component.
func (hv *HelpView) Init() {}

// Start implements Component.
func (hv *HelpView) Start() { hv.ScrollToBeginning() }

// Stop implements Component.
func (hv *HelpView) Stop() {}

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint { return nil }

type helpEntry struct{ key, what string }

var helpSections = []struct {
	title   string
	entries []helpEntry
}{
	{"Everywhere", []helpEntry{
		{":", "command prompt (:search, :chat, :reconnect, :refresh, :help, :quit)"},
		{"Esc", "back"},
		{"?", "this help"},
		{"Ctrl-R", "reconnect push"},
		{"Up Down", "walk the history of the open prompt"},
		{"q", "back, or quit from the chat list"},
		{"Ctrl-C", "quit"},
	}},
	{"Chat list", []helpEntry{
		{"Enter", "open chat"},
		{"1-9", "open the nth chat"},
		{"/", "filter by name or last message"},
		{"p m b", "pin, mute, block the chat under the cursor"},
		{"R", "reload chats and contacts"},
	}},
	{"Conversation", []helpEntry{
		{"i", "focus the composer"},
		{"Enter", "send (in the composer)"},
		{"Esc", "leave the composer"},
		{"d", "details"},
		{"s", "search this conversation"},
		{"r", "retry: put the failed text back in the composer"},
	}},
	{"Composer commands", []helpEntry{
		{"/attach <path> [caption]", "send a file"},
		{"/reply <n>", "quote message n in the next send; /reply alone cancels"},
		{"/react <n> <emoji>", "react to message n"},
		{"/delete <n>", "delete message n"},
		{"/pin /mute /block", "toggle a chat option"},
		{"/add <contact>", "add a participant to the group"},
		{"/remove <contact>", "remove a participant from the group"},
		{"/search <query>", "search this conversation"},
		{"/help", "this help"},
		{"//text", "send text starting with a slash"},
	}},
}

func (hv *HelpView) render() {
	key := ui.Tag(hv.theme.MenuKeyColor)
	for _, s := range helpSections {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, e := range s.entries {
			pad := strings.Repeat(" ", max(1, 26-len(e.key)))
			_, _ = fmt.Fprintf(hv, "  [%s]%s[-]%s%s\n", key, tview.Escape(e.key), pad, e.what)
		}
	}
}
