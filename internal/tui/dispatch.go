package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matheus3301/wppchat/internal/tui/model"
)

// outcome is what the shell does after a command ran.
type outcome struct {
	info    string
	page    string // page to push
	query   string // search to run on the search page
	open    string // chat to open
	compose string // text to put back in the composer
	quit    bool
}

var errUnknownCommand = errors.New("unknown command")

// runComposer executes a '/' command typed in the composer. Arguments are
// checked before the view model is touched.
func runComposer(ctx context.Context, vm *model.ViewModel, cmd Command) (outcome, error) {
	switch cmd.Name {
	case "attach", "a":
		path, caption, err := attachArgs(cmd.Args)
		if err != nil {
			return outcome{}, err
		}
		path = expandHome(path)
		if err := vm.Attach(ctx, path, caption); err != nil {
			return outcome{}, err
		}
		return outcome{info: "Sent " + filepath.Base(path)}, nil

	case "reply", "r":
		if strings.TrimSpace(cmd.Args) == "" {
			return outcome{}, vm.SetReply(0)
		}
		n, _, err := messageRef(cmd.Args)
		if err != nil {
			return outcome{}, err
		}
		return outcome{}, vm.SetReply(n)

	case "react":
		n, emoji, err := messageRef(cmd.Args)
		if err != nil {
			return outcome{}, err
		}
		if emoji == "" {
			return outcome{}, errors.New("usage: /react <n> <emoji>")
		}
		return outcome{}, vm.React(n, emoji)

	case "delete", "del":
		n, _, err := messageRef(cmd.Args)
		if err != nil {
			return outcome{}, err
		}
		return outcome{}, vm.Delete(n)

	case "pin", "mute", "block":
		msg, err := vm.Toggle(ctx, "", model.ChatOption(cmd.Name))
		return outcome{info: msg}, err

	case "add", "remove":
		if cmd.Args == "" {
			return outcome{}, fmt.Errorf("usage: /%s <contact>", cmd.Name)
		}
		var (
			msg string
			err error
		)
		if cmd.Name == "add" {
			msg, err = vm.AddParticipant(ctx, cmd.Args)
		} else {
			msg, err = vm.RemoveParticipant(ctx, cmd.Args)
		}
		return outcome{info: msg}, err

	case "search", "s":
		return outcome{page: pageSearch, query: cmd.Args}, nil

	case "help", "h":
		return outcome{page: pageHelp}, nil
	}
	return outcome{}, fmt.Errorf("/%s: %w", cmd.Name, errUnknownCommand)
}

// runPrompt executes a ':' command.
func runPrompt(ctx context.Context, vm *model.ViewModel, cmd Command) (outcome, error) {
	switch cmd.Name {
	case "quit", "q", "q!":
		return outcome{quit: true}, nil
	case "help", "h", "?":
		return outcome{page: pageHelp}, nil
	case "search", "s":
		return outcome{page: pageSearch, query: cmd.Args}, nil
	case "chat", "c":
		if cmd.Args == "" {
			return outcome{}, errors.New("usage: :chat <name>")
		}
		id, err := vm.FindChat(cmd.Args)
		if err != nil {
			return outcome{}, err
		}
		return outcome{open: id}, nil
	case "reconnect":
		if err := vm.Reconnect(ctx); err != nil {
			return outcome{}, err
		}
		return outcome{info: "Push reconnected"}, nil
	case "refresh", "reload":
		if err := vm.Reload(ctx); err != nil {
			return outcome{}, err
		}
		return outcome{info: "Chats reloaded"}, nil
	case "pin", "mute", "block":
		msg, err := vm.Toggle(ctx, "", model.ChatOption(cmd.Name))
		return outcome{info: msg}, err
	}
	return outcome{}, fmt.Errorf(":%s: %w", cmd.Name, errUnknownCommand)
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
