package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds the colours of the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	MutedColor       tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TitleColor       tcell.Color
	TableHeaderFg    tcell.Color
	TableCursorFg    tcell.Color
	TableCursorBg    tcell.Color
	CrumbActiveFg    tcell.Color
	CrumbActiveBg    tcell.Color
	CrumbInactiveFg  tcell.Color
	CrumbInactiveBg  tcell.Color
	MenuKeyColor     tcell.Color
	CounterColor     tcell.Color
	UnreadColor      tcell.Color
	OwnMessageColor  tcell.Color
	QuoteColor       tcell.Color
	ChipColor        tcell.Color
	TickColor        tcell.Color
	ReadTickColor    tcell.Color
	FlashInfoColor   tcell.Color
	FlashWarnColor   tcell.Color
	FlashErrColor    tcell.Color
	PromptColor      tcell.Color

	// Participants colours group senders. Index with ParticipantColor.
	Participants []tcell.Color
}

// DefaultTheme is a dark theme with green accents.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorWhiteSmoke,
		MutedColor:       tcell.ColorGray,
		BorderColor:      tcell.ColorSeaGreen,
		BorderFocusColor: tcell.ColorMediumSpringGreen,
		TitleColor:       tcell.ColorMediumSpringGreen,
		TableHeaderFg:    tcell.ColorWhite,
		TableCursorFg:    tcell.ColorBlack,
		TableCursorBg:    tcell.ColorMediumSeaGreen,
		CrumbActiveFg:    tcell.ColorBlack,
		CrumbActiveBg:    tcell.ColorMediumSpringGreen,
		CrumbInactiveFg:  tcell.ColorBlack,
		CrumbInactiveBg:  tcell.ColorDarkSeaGreen,
		MenuKeyColor:     tcell.ColorMediumSpringGreen,
		CounterColor:     tcell.ColorPapayaWhip,
		UnreadColor:      tcell.ColorLimeGreen,
		OwnMessageColor:  tcell.ColorPaleGreen,
		QuoteColor:       tcell.ColorDarkGray,
		ChipColor:        tcell.ColorLightSlateGray,
		TickColor:        tcell.ColorGray,
		ReadTickColor:    tcell.ColorDeepSkyBlue,
		FlashInfoColor:   tcell.ColorNavajoWhite,
		FlashWarnColor:   tcell.ColorOrange,
		FlashErrColor:    tcell.ColorOrangeRed,
		PromptColor:      tcell.ColorSeaGreen,
		Participants: []tcell.Color{
			tcell.ColorCoral,
			tcell.ColorGold,
			tcell.ColorDeepSkyBlue,
			tcell.ColorOrchid,
			tcell.ColorSpringGreen,
			tcell.ColorSandyBrown,
			tcell.ColorTurquoise,
			tcell.ColorHotPink,
		},
	}
}

// Tag returns c as a tview colour tag value.
func Tag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
