package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData is what the header shows about the running session.
type SessionData struct {
	Profile  string
	User     string
	Server   string
	API      string
	Push     string
	Chats    int
	Unread   int
	Uptime   time.Duration
}

// SessionInfo is the header panel next to the logo.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates the panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders data.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	label := Tag(si.theme.FgColor)
	value := Tag(si.theme.CounterColor)
	row := func(name, v string) {
		_, _ = fmt.Fprintf(si, "[%s::b]%-8s[-:-:-] [%s]%s[-]\n", label, name+":", value, tview.Escape(v))
	}

	row("Profile", orDash(data.Profile))
	row("User", orDash(data.User))
	row("Server", orDash(data.Server))
	row("Links", fmt.Sprintf("api %s, push %s", orDash(data.API), orDash(data.Push)))
	row("Chats", fmt.Sprintf("%d (%d unread)", data.Chats, data.Unread))
	row("Uptime", formatDuration(data.Uptime))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
