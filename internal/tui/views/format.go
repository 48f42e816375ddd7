package views

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/cases"

	"github.com/matheus3301/wppchat/internal/store"
)

// DateChip labels the day a message was sent, relative to now.
func DateChip(ms int64, now time.Time) string {
	t := time.UnixMilli(ms).In(now.Location())
	switch days := dayNumber(now) - dayNumber(t); {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 7:
		return t.Weekday().String()
	default:
		return t.Format("02/01/2006")
	}
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func sameDay(a, b int64, loc *time.Location) bool {
	return dayNumber(time.UnixMilli(a).In(loc)) == dayNumber(time.UnixMilli(b).In(loc))
}

// Tick is the delivery marker drawn after an outgoing message.
func Tick(s store.Status) string {
	switch s {
	case store.StatusSending:
		return "◷"
	case store.StatusSent:
		return "✓"
	case store.StatusDelivered, store.StatusRead:
		return "✓✓"
	}
	return ""
}

// ParticipantColors gives every participant a palette colour. Participants
// are sorted by id first, so the assignment does not depend on list order.
func ParticipantColors(ps []store.Participant, palette []tcell.Color) map[string]tcell.Color {
	colors := make(map[string]tcell.Color, len(ps))
	if len(palette) == 0 {
		return colors
	}
	sorted := slices.Clone(ps)
	slices.SortFunc(sorted, func(a, b store.Participant) int { return cmp.Compare(a.ID, b.ID) })
	for i, p := range sorted {
		colors[p.ID] = palette[i%len(palette)]
	}
	return colors
}

// SummarizeReactions collapses reactions into "emoji count" pairs in the
// order each emoji first appeared.
func SummarizeReactions(rs []store.Reaction) string {
	var order []string
	counts := make(map[string]int)
	for _, r := range rs {
		if counts[r.Emoji] == 0 {
			order = append(order, r.Emoji)
		}
		counts[r.Emoji]++
	}
	parts := make([]string, len(order))
	for i, e := range order {
		parts[i] = fmt.Sprintf("%s %d", sanitizeForTerminal(e), counts[e])
	}
	return strings.Join(parts, "  ")
}

func formatClock(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).Format("15:04")
}

// formatListTime is the chat list column: the time for today, the date
// otherwise.
func formatListTime(ms int64, now time.Time) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms).In(now.Location())
	if dayNumber(t) == dayNumber(now) {
		return t.Format("15:04")
	}
	return t.Format("02/01")
}

func lastActive(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return humanize.Time(time.UnixMilli(ms))
}

var fold = cases.Fold()

func containsFold(s, substr string) bool {
	return strings.Contains(fold.String(s), fold.String(substr))
}

func formatSearchDate(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).Format("02/01/2006 15:04")
}
