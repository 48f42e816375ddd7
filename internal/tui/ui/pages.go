package ui

import "github.com/rivo/tview"

// Pages is a stack of components over tview.Pages. The top component is
// the only visible one; the bottom one is never popped.
type Pages struct {
	*tview.Pages
	comps    map[string]Component
	stack    []string
	onChange func(top Component, stack []string)
}

// NewPages creates an empty stack.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
		comps: make(map[string]Component),
	}
}

// Add registers c under id. The page starts hidden.
func (p *Pages) Add(id string, c Component, prim tview.Primitive) {
	p.comps[id] = c
	p.AddPage(id, prim, true, false)
	c.Init()
}

// SetOnChange sets a callback run after every stack change.
func (p *Pages) SetOnChange(fn func(top Component, stack []string)) {
	p.onChange = fn
}

// Push shows id on top of the stack. Pushing the current top is a no-op.
func (p *Pages) Push(id string) {
	if _, ok := p.comps[id]; !ok || p.Current() == id {
		return
	}
	if top := p.Current(); top != "" {
		p.comps[top].Stop()
		p.HidePage(top)
	}
	p.stack = append(p.stack, id)
	p.show(id)
}

// Pop removes the top page and returns its id. The root page stays.
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.comps[top].Stop()
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	p.show(p.Current())
	return top
}

// Reset empties the stack and shows id alone.
func (p *Pages) Reset(id string) {
	if _, ok := p.comps[id]; !ok {
		return
	}
	if top := p.Current(); top != "" {
		p.comps[top].Stop()
	}
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{id}
	p.show(id)
}

// Current returns the id of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Top returns the top component, or nil.
func (p *Pages) Top() Component {
	return p.comps[p.Current()]
}

// Depth returns the stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Titles returns the names of the stacked components, bottom first.
func (p *Pages) Titles() []string {
	titles := make([]string, len(p.stack))
	for i, id := range p.stack {
		titles[i] = p.comps[id].Name()
	}
	return titles
}

func (p *Pages) show(id string) {
	p.ShowPage(id)
	p.SendToFront(id)
	p.comps[id].Start()
	if p.onChange != nil {
		stack := make([]string, len(p.stack))
		copy(stack, p.stack)
		p.onChange(p.comps[id], stack)
	}
}
