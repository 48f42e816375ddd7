package tui

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a parsed ':' prompt entry or '/' composer command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a prompt entry without its leading ':'.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	name, args, _ := strings.Cut(input, " ")
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
}

// ParseComposer tells composer commands from text to send. Input starting
// with a single '/' is a command; "//" sends the rest with one slash.
func ParseComposer(input string) (cmd Command, text string, isCmd bool) {
	trimmed := strings.TrimLeft(input, " \t")
	switch {
	case strings.HasPrefix(trimmed, "//"):
		return Command{}, trimmed[1:], false
	case strings.HasPrefix(trimmed, "/") && len(trimmed) > 1:
		return ParseCommand(trimmed[1:]), "", true
	}
	return Command{}, input, false
}

// messageRef splits "<n> rest" into the message number and the rest.
func messageRef(args string) (int, string, error) {
	num, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	if num == "" {
		return 0, "", fmt.Errorf("missing message number")
	}
	n, err := strconv.Atoi(strings.TrimPrefix(num, "#"))
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("bad message number %q", num)
	}
	return n, strings.TrimSpace(rest), nil
}

// attachArgs splits "<path> [caption]". A path with spaces can be quoted.
func attachArgs(args string) (path, caption string, err error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", "", fmt.Errorf("usage: /attach <path> [caption]")
	}
	if args[0] == '"' || args[0] == '\'' {
		end := strings.IndexByte(args[1:], args[0])
		if end < 0 {
			return "", "", fmt.Errorf("unterminated quote in %q", args)
		}
		return args[1 : end+1], strings.TrimSpace(args[end+2:]), nil
	}
	path, caption, _ = strings.Cut(args, " ")
	return path, strings.TrimSpace(caption), nil
}
