package ui

// MenuHint is one key shortcut shown in the header menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // digit shortcuts are drawn in the counter colour
}

// Component is a page the shell can push on its stack.
type Component interface {
	Name() string
	Init()
	Start()
	Stop()
	Hints() []MenuHint
}
