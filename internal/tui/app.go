// Package tui is the terminal front end of wppchat.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/wppchat/internal/outbox"
	"github.com/matheus3301/wppchat/internal/status"
	"github.com/matheus3301/wppchat/internal/tui/keys"
	"github.com/matheus3301/wppchat/internal/tui/model"
	"github.com/matheus3301/wppchat/internal/tui/ui"
	"github.com/matheus3301/wppchat/internal/tui/views"
)

const (
	pageList    = "chats"
	pageThread  = "thread"
	pageSearch  = "search"
	pageDetails = "details"
	pageHelp    = "help"
	pageLogin   = "login"
)

const tickInterval = 2 * time.Second

// App is the TUI shell: header, page stack, prompt and status lines.
type App struct {
	app      *tview.Application
	vm       *model.ViewModel
	theme    *ui.Theme
	registry *keys.Registry

	main    *tview.Flex
	pages   *ui.Pages
	prompt  *ui.Prompt
	info    *ui.SessionInfo
	menu    *ui.Menu
	crumbs  *ui.Crumbs
	flash   *ui.FlashBar
	status  *views.StatusBar
	list    *views.ConversationList
	thread  *views.MessageThread
	search  *views.SearchView
	details *views.ConversationInfo
	help    *views.HelpView
	login   *views.LoginView

	promptShown bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewApp builds the TUI over vm.
func NewApp(vm *model.ViewModel) *App {
	theme := ui.DefaultTheme()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:      tview.NewApplication(),
		vm:       vm,
		theme:    theme,
		registry: keys.NewRegistry(),
		pages:    ui.NewPages(),
		prompt:   ui.NewPrompt(theme),
		info:     ui.NewSessionInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flash:    ui.NewFlashBar(theme),
		status:   views.NewStatusBar(theme),
		list:     views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme),
		search:   views.NewSearchView(theme),
		details:  views.NewConversationInfo(theme),
		help:     views.NewHelpView(theme),
		login:    views.NewLoginView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.thread.SetIdentity(vm.SelfID(), vm.Name)
	a.status.SetProfile(vm.Profile())

	a.setupPages()
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupPages() {
	a.pages.Add(pageList, a.list, a.list)
	a.pages.Add(pageThread, a.thread, a.thread)
	a.pages.Add(pageSearch, a.search, a.search)
	a.pages.Add(pageDetails, a.details, a.details)
	a.pages.Add(pageHelp, a.help, a.help)
	a.pages.Add(pageLogin, a.login, a.login)

	a.pages.SetOnChange(func(top ui.Component, _ []string) {
		a.crumbs.Update(a.pages.Titles())
		a.menu.Update(append(top.Hints(), a.registry.Hints(a.pages.Current())...))
		a.app.SetFocus(a.focusFor(a.pages.Current()))
	})
}

func (a *App) focusFor(page string) tview.Primitive {
	switch page {
	case pageThread:
		return a.thread.Messages()
	case pageSearch:
		return a.search.Input()
	case pageDetails:
		return a.details
	case pageHelp:
		return a.help
	case pageLogin:
		return a.login
	}
	return a.list
}

func (a *App) setupBindings() {
	press := func(r rune, desc string, visible bool, fn func()) *keys.Action {
		return &keys.Action{Key: tcell.KeyRune, Rune: r, Description: desc, Visible: visible, Handler: fn}
	}
	key := func(k tcell.Key, desc string, visible bool, fn func()) *keys.Action {
		return &keys.Action{Key: k, Description: desc, Visible: visible, Handler: fn}
	}

	a.registry.AddGlobal(press(':', "Command", true, func() { a.showPrompt(ui.PromptCommand) }))
	a.registry.AddGlobal(press('?', "Help", true, func() { a.pages.Push(pageHelp) }))
	a.registry.AddGlobal(key(tcell.KeyCtrlR, "Reconnect", true, a.reconnect))
	a.registry.AddGlobal(press('q', "Quit", true, a.Stop))

	a.registry.AddView(pageList, key(tcell.KeyEnter, "Open", true, func() { a.openChat(a.list.SelectedChat(), "") }))
	a.registry.AddView(pageList, press('/', "Filter", true, func() { a.showPrompt(ui.PromptFilter) }))
	a.registry.AddView(pageList, press('p', "Pin", true, func() { a.toggle(a.list.SelectedChat(), model.OptionPin) }))
	a.registry.AddView(pageList, press('m', "Mute", true, func() { a.toggle(a.list.SelectedChat(), model.OptionMute) }))
	a.registry.AddView(pageList, press('b', "Block", true, func() { a.toggle(a.list.SelectedChat(), model.OptionBlock) }))
	a.registry.AddView(pageList, press('R', "Reload", true, a.reload))

	a.registry.AddView(pageThread, press('i', "Compose", true, func() { a.app.SetFocus(a.thread.Composer()) }))
	a.registry.AddView(pageThread, press('d', "Details", true, a.showDetails))
	a.registry.AddView(pageThread, press('s', "Search", true, func() { a.showPrompt(ui.PromptSearch) }))
	a.registry.AddView(pageThread, press('r', "Retry", true, a.retry))
	a.registry.AddView(pageThread, press('q', "Back", false, a.back))

	a.registry.AddView(pageSearch, press('q', "Back", false, a.back))
	a.registry.AddView(pageDetails, press('q', "Back", false, a.back))
	a.registry.AddView(pageHelp, press('q', "Back", false, a.back))
}

func (a *App) setupCallbacks() {
	a.list.SetSelectedFunc(func(row, _ int) {
		a.openChat(a.list.ChatByIndex(row), "")
	})

	a.thread.SetOnSubmit(a.submit)

	a.search.SetOnQuery(func(q string) {
		go func() {
			results, err := a.vm.Search(q)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.vm.Flash.Err(err)
					return
				}
				a.search.Update(q, results, a.vm.Name)
				if len(results) > 0 {
					a.app.SetFocus(a.search.Results())
				}
			})
		}()
	})
	a.search.Results().SetSelectedFunc(func(int, int) {
		chatID, msgID := a.search.SelectedResult()
		if chatID == "" {
			return
		}
		a.pages.Pop()
		if a.thread.ChatID() != chatID {
			a.openChat(chatID, msgID)
			return
		}
		a.thread.Highlight(msgID)
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.list.SetFilter(text)
		case ui.PromptSearch:
			a.showSearch(text)
		case ui.PromptCommand:
			if text != "" {
				a.runAsync(func(ctx context.Context) (outcome, error) {
					return runPrompt(ctx, a.vm, ParseCommand(text))
				})
			}
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.info, 44, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 26, 0, false)

	a.main = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flash, 1, 0, false).
		AddItem(a.status, 1, 0, false)

	a.app.SetRoot(a.main, true)
	a.app.SetInputCapture(a.capture)
	a.pages.Reset(pageList)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	current := a.pages.Current()
	focus := a.app.GetFocus()

	if current == pageSearch && ev.Key() == tcell.KeyTab {
		if focus == a.search.Input() {
			a.app.SetFocus(a.search.Results())
		} else {
			a.app.SetFocus(a.search.Input())
		}
		return nil
	}

	if focus == a.prompt {
		return ev
	}
	if _, ok := focus.(*tview.InputField); ok {
		if focus == a.thread.Composer() && ev.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		if focus == a.search.Input() && ev.Key() == tcell.KeyEscape {
			a.back()
			return nil
		}
		return ev
	}

	if ev.Key() == tcell.KeyEscape {
		a.back()
		return nil
	}
	if current == pageList && ev.Key() == tcell.KeyRune && ev.Rune() >= '1' && ev.Rune() <= '9' {
		a.openChat(a.list.ChatByIndex(int(ev.Rune()-'0')), "")
		return nil
	}
	if a.registry.HandleEvent(current, ev) {
		return nil
	}
	return ev
}

func (a *App) back() {
	switch a.pages.Current() {
	case pageThread:
		a.vm.Close()
		a.pages.Pop()
		a.list.Update(a.vm.Chats())
	case pageList:
		if a.list.Filter() != "" {
			a.list.SetFilter("")
		}
	default:
		a.pages.Pop()
	}
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if !a.promptShown {
		a.main.ResizeItem(a.prompt, 3, 0)
		a.promptShown = true
	}
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	if a.promptShown {
		a.main.ResizeItem(a.prompt, 0, 0)
		a.promptShown = false
	}
	a.app.SetFocus(a.focusFor(a.pages.Current()))
}

func (a *App) openChat(chatID, highlight string) {
	if chatID == "" {
		return
	}
	go func() {
		err := a.vm.Open(a.ctx, chatID)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.vm.Flash.Err(err)
			}
			a.refreshThread()
			if a.pages.Current() != pageThread {
				a.pages.Reset(pageList)
				a.pages.Push(pageThread)
			}
			if highlight != "" {
				a.thread.Highlight(highlight)
			}
		})
	}()
}

func (a *App) submit(text string) {
	cmd, body, isCmd := ParseComposer(text)
	if !isCmd {
		if a.vm.Busy() {
			a.vm.Flash.Warn("Still sending the previous message")
			return
		}
		a.thread.ClearComposer()
		go func() {
			err := a.vm.Send(a.ctx, body)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.vm.Flash.Err(err)
			}
		}()
		return
	}
	a.thread.ClearComposer()
	a.runAsync(func(ctx context.Context) (outcome, error) {
		return runComposer(ctx, a.vm, cmd)
	})
}

// runAsync runs fn off the UI goroutine and applies its outcome.
func (a *App) runAsync(fn func(ctx context.Context) (outcome, error)) {
	go func() {
		out, err := fn(a.ctx)
		a.app.QueueUpdateDraw(func() { a.apply(out, err) })
	}()
}

func (a *App) apply(out outcome, err error) {
	switch {
	case errors.Is(err, outbox.ErrSendInFlight):
		a.vm.Flash.Warn(err.Error())
	case err != nil:
		a.vm.Flash.Err(err)
	case out.info != "":
		a.vm.Flash.Info(out.info)
	}
	if out.quit {
		a.Stop()
		return
	}
	if out.open != "" {
		a.openChat(out.open, "")
	}
	switch out.page {
	case pageSearch:
		a.showSearch(out.query)
	case pageHelp:
		a.pages.Push(pageHelp)
	}
	if out.compose != "" {
		a.thread.Composer().SetText(out.compose)
	}
}

func (a *App) showSearch(query string) {
	if _, ok := a.vm.ActiveChat(); !ok {
		a.vm.Flash.Warn("Open a chat to search it")
		return
	}
	a.search.SetQuery(query)
	a.pages.Push(pageSearch)
	if query != "" {
		a.search.Input().SetText(query)
		go func() {
			results, err := a.vm.Search(query)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.vm.Flash.Err(err)
					return
				}
				a.search.Update(query, results, a.vm.Name)
			})
		}()
	}
}

func (a *App) showDetails() {
	chat, ok := a.vm.ActiveChat()
	if !ok {
		return
	}
	a.details.Update(chat)
	a.pages.Push(pageDetails)
}

func (a *App) toggle(chatID string, opt model.ChatOption) {
	if chatID == "" {
		return
	}
	a.runAsync(func(ctx context.Context) (outcome, error) {
		msg, err := a.vm.Toggle(ctx, chatID, opt)
		return outcome{info: msg}, err
	})
}

func (a *App) retry() {
	text, ok := a.vm.Retry()
	if !ok {
		a.vm.Flash.Info("Nothing to retry")
		return
	}
	a.thread.Composer().SetText(text)
	a.app.SetFocus(a.thread.Composer())
}

func (a *App) reconnect() {
	a.runAsync(func(ctx context.Context) (outcome, error) {
		return runPrompt(ctx, a.vm, Command{Name: "reconnect"})
	})
}

func (a *App) reload() {
	a.runAsync(func(ctx context.Context) (outcome, error) {
		return runPrompt(ctx, a.vm, Command{Name: "refresh"})
	})
}

func (a *App) refresh(r model.Refresh) {
	if r.Has(model.RefreshLogin) {
		if err := a.vm.LoginError(); err != nil {
			a.login.Show(a.vm.Profile(), a.vm.SelfID(), err.Error())
			a.pages.Reset(pageLogin)
		}
	}
	if r.Has(model.RefreshChats) {
		a.list.Update(a.vm.Chats())
	}
	if r.Has(model.RefreshThread) {
		a.refreshThread()
	}
	if r.Has(model.RefreshLinks) {
		a.refreshLinks()
	}
	a.info.Update(a.vm.SessionData())
}

func (a *App) refreshThread() {
	chat, ok := a.vm.ActiveChat()
	if !ok {
		return
	}
	a.thread.Update(chat, a.vm.Messages())
	a.thread.SetComposerState(a.vm.ComposerState(chat.ID))
	if a.pages.Current() == pageDetails {
		a.details.Update(chat)
	}
	a.crumbs.Update(a.pages.Titles())
}

func (a *App) refreshLinks() {
	apiState, pushState := a.vm.Links()
	a.status.SetLink(status.LinkAPI, apiState)
	a.status.SetLink(status.LinkPush, pushState)
}

func (a *App) watch() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.Changed():
			r := a.vm.Take()
			a.app.QueueUpdateDraw(func() { a.refresh(r) })
		case msg := <-a.vm.Flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flash.Update(&msg) })
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.flash.Update(a.vm.Flash.Current())
				a.status.Tick()
				a.info.Update(a.vm.SessionData())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Run shows the TUI until the user quits.
func (a *App) Run() error {
	a.vm.Start()
	defer a.vm.Stop()

	a.list.Update(a.vm.Chats())
	a.refreshLinks()
	a.info.Update(a.vm.SessionData())
	go a.watch()

	err := a.app.Run()
	a.cancel()
	return err
}

// Stop ends Run.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
