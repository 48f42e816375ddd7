package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/wppchat/internal/tui/ui"
)

// LoginView replaces the chat list when the server rejects the profile's
// token. Logging in happens outside the TUI.
type LoginView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewLoginView creates the page.
func NewLoginView(theme *ui.Theme) *LoginView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.FlashErrColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Login required ")
	tv.SetTitleColor(theme.FlashErrColor)

	return &LoginView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (lv *LoginView) Name() string { return "Login" }

// Init implements Component.
func (lv *LoginView) Init() {}

// Start implements Component.
func (lv *LoginView) Start() {}

// Stop implements Component.
func (lv *LoginView) Stop() {}

// Hints implements Component.
func (lv *LoginView) Hints() []ui.MenuHint { return nil }

// Show explains how to log profile back in. reason is the server's answer.
func (lv *LoginView) Show(profile, user, reason string) {
	lv.Clear()
	_, _ = fmt.Fprintf(lv,
		"\n\nThe server rejected the token of profile [::b]%s[-:-:-].\n\n"+
			"[%s]%s[-]\n\n"+
			"Log in again from a shell:\n\n"+
			"[%s]wppchatctl login -profile %s -user %s -token <token>[-]\n\n"+
			"then restart wppchat.",
		tview.Escape(profile),
		ui.Tag(lv.theme.MutedColor), tview.Escape(reason),
		ui.Tag(lv.theme.MenuKeyColor), tview.Escape(profile), tview.Escape(orPlaceholder(user)),
	)
}

func orPlaceholder(user string) string {
	if user == "" {
		return "<user>"
	}
	return user
}
