package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// MenuRows is how many hints fit in one menu column.
const MenuRows = 5

const menuGap = 3

// Menu lists the key hints of the current page in columns of MenuRows.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a hint list.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints column by column.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, layoutHints(hints, Tag(m.theme.MenuKeyColor), Tag(m.theme.CounterColor)))
}

func hintWidth(h MenuHint) int {
	return utf8.RuneCountInString(h.Key) + 3 + utf8.RuneCountInString(h.Description)
}

func layoutHints(hints []MenuHint, keyColor, numColor string) string {
	cols := (len(hints) + MenuRows - 1) / MenuRows
	widths := make([]int, cols)
	for i, h := range hints {
		widths[i/MenuRows] = max(widths[i/MenuRows], hintWidth(h))
	}

	var b strings.Builder
	for row := 0; row < MenuRows && row < len(hints); row++ {
		for col := 0; col < cols; col++ {
			i := col*MenuRows + row
			if i >= len(hints) {
				break
			}
			h := hints[i]
			kc := keyColor
			if h.Numeric {
				kc = numColor
			}
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] %s", kc, tview.Escape(h.Key), h.Description)
			if col < cols-1 && i+MenuRows < len(hints) {
				b.WriteString(strings.Repeat(" ", widths[col]-hintWidth(h)+menuGap))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
