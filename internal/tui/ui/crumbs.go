package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs is the breadcrumb bar above the page area.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders one crumb per page title, the last one highlighted.
func (c *Crumbs) Update(titles []string) {
	c.Clear()
	if len(titles) == 0 {
		return
	}

	parts := make([]string, 0, len(titles))
	for i, title := range titles {
		title = tview.Escape(title)
		if i == len(titles)-1 {
			parts = append(parts, fmt.Sprintf("[%s:%s:b] <%s> [-:-:-]",
				Tag(c.theme.CrumbActiveFg), Tag(c.theme.CrumbActiveBg), title))
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:] <%s> [-:-:-]",
			Tag(c.theme.CrumbInactiveFg), Tag(c.theme.CrumbInactiveBg), title))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}
