package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo is the ASCII banner in the header.
type Logo struct {
	*tview.TextView
	theme *Theme
}

// NewLogo creates the banner.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	l := &Logo{
		TextView: tv,
		theme:    theme,
	}
	l.render()
	return l
}

func (l *Logo) render() {
	title := Tag(l.theme.TitleColor)
	muted := Tag(l.theme.MutedColor)

	_, _ = fmt.Fprintf(l,
		"[%s::b]╦ ╦╔═╗╔═╗ ┌─┐┬ ┬┌─┐┌┬┐[-:-:-]\n"+
			"[%s::b]║║║╠═╝╠═╝ │  ├─┤├─┤ │ [-:-:-]\n"+
			"[%s::b]╚╩╝╩  ╩   └─┘┴ ┴┴ ┴ ┴ [-:-:-]\n"+
			"[%s]terminal chat client[-:-:-]",
		title, title, title, muted,
	)
}
