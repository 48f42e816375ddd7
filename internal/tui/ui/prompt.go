package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode is what the prompt's text is used for.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
	PromptSearch
)

var promptLabels = map[PromptMode]struct{ label, title string }{
	PromptCommand: {":", " Command "},
	PromptFilter:  {"/", " Filter chats "},
	PromptSearch:  {"?", " Search conversation "},
}

const historySize = 50

// history keeps recent entries, newest last. pos walks it on Up and Down;
// pos == len(entries) is the empty line below the newest entry.
type history struct {
	entries []string
	pos     int
}

func (h *history) add(s string) {
	if s == "" {
		h.pos = len(h.entries)
		return
	}
	if n := len(h.entries); n == 0 || h.entries[n-1] != s {
		h.entries = append(h.entries, s)
		if len(h.entries) > historySize {
			h.entries = h.entries[len(h.entries)-historySize:]
		}
	}
	h.pos = len(h.entries)
}

func (h *history) prev() (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.pos--
	return h.entries[h.pos], true
}

func (h *history) next() string {
	if h.pos < len(h.entries) {
		h.pos++
	}
	if h.pos == len(h.entries) {
		return ""
	}
	return h.entries[h.pos]
}

// Prompt is the single-line input bar shown above the pages. Each mode
// remembers what was submitted in it; Up and Down walk that history.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	past     map[PromptMode]*history
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a prompt bar.
func NewPrompt(theme *Theme) *Prompt {
	p := &Prompt{
		InputField: tview.NewInputField(),
		past:       make(map[PromptMode]*history),
	}
	p.SetBorder(true)
	p.SetBorderColor(theme.PromptColor)
	p.SetBackgroundColor(theme.BgColor)
	p.SetFieldBackgroundColor(theme.BgColor)
	p.SetFieldTextColor(theme.FgColor)
	p.SetLabelColor(theme.MenuKeyColor)

	p.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		h := p.history()
		switch ev.Key() {
		case tcell.KeyUp:
			if s, ok := h.prev(); ok {
				p.SetText(s)
			}
			return nil
		case tcell.KeyDown:
			p.SetText(h.next())
			return nil
		}
		return ev
	})
	p.SetDoneFunc(p.done)
	return p
}

func (p *Prompt) history() *history {
	h, ok := p.past[p.mode]
	if !ok {
		h = &history{}
		p.past[p.mode] = h
	}
	return h
}

func (p *Prompt) done(key tcell.Key) {
	if key != tcell.KeyEnter && key != tcell.KeyEscape {
		return
	}
	text := p.GetText()
	p.SetText("")
	switch key {
	case tcell.KeyEnter:
		// Filters submit empty text to clear themselves.
		p.history().add(text)
		if p.onSubmit != nil {
			p.onSubmit(p.mode, text)
		}
	case tcell.KeyEscape:
		p.history().add("")
		if p.onCancel != nil {
			p.onCancel()
		}
	}
}

// SetOnSubmit sets the callback run on Enter.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback run on Esc.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate prepares the prompt for mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.SetText("")
	l := promptLabels[mode]
	p.SetLabel(l.label)
	p.SetTitle(l.title)
}

// Mode returns the current mode.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}
