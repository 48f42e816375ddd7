package views

import (
	"strings"
	"unicode/utf8"
)

// sanitizeForTerminal drops code points that tcell cannot lay out inside a
// single cell: skin tone modifiers, zero width joiners and variation
// selectors. A toned thumbs up becomes a plain one.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == utf8.RuneError || isProblematicRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	}
	return false
}

// oneLine collapses newlines so a preview fits a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
