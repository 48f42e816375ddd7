package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/wppchat/internal/status"
	"github.com/matheus3301/wppchat/internal/tui/ui"
)

// StatusBar is the bottom line: profile, link states and clock.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	profile string
	links   map[status.Link]status.State
	now     func() time.Time
}

// NewStatusBar creates the bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	sb := &StatusBar{
		TextView: tv,
		theme:    theme,
		links:    make(map[status.Link]status.State),
		now:      time.Now,
	}
	sb.render()
	return sb
}

// SetProfile sets the profile name.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetLink records the state of one link.
func (sb *StatusBar) SetLink(link status.Link, st status.State) {
	sb.links[link] = st
	sb.render()
}

// Tick redraws the clock.
func (sb *StatusBar) Tick() { sb.render() }

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprintf(sb, " [::b]%s[-:-:-]", tview.Escape(sb.profile))
	for _, l := range []status.Link{status.LinkAPI, status.LinkPush} {
		st, ok := sb.links[l]
		if !ok {
			st = status.Disconnected
		}
		_, _ = fmt.Fprintf(sb, " | %s [%s]%s[-]", l, ui.Tag(sb.stateColor(st)), stateLabel(st))
	}
	_, _ = fmt.Fprintf(sb, " | %s", sb.now().Format("15:04"))
}

func (sb *StatusBar) stateColor(st status.State) tcell.Color {
	switch st {
	case status.Connected:
		return sb.theme.UnreadColor
	case status.Connecting:
		return sb.theme.FlashWarnColor
	case status.Error:
		return sb.theme.FlashErrColor
	}
	return sb.theme.MutedColor
}

func stateLabel(st status.State) string {
	switch st {
	case status.Connected:
		return "● online"
	case status.Connecting:
		return "◌ connecting"
	case status.Error:
		return "✕ error"
	}
	return "○ offline"
}
