package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"

	"github.com/matheus3301/wppchat/internal/app"
	"github.com/matheus3301/wppchat/internal/attach"
	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/outbox"
	"github.com/matheus3301/wppchat/internal/session"
	"github.com/matheus3301/wppchat/internal/store"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	name := session.Resolve(*profileFlag)
	if err := session.ValidateName(name); err != nil {
		fatal(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "login":
		cmdLogin(name, args[1:])
	case "profiles":
		cmdProfiles(*jsonFlag)
	case "chats":
		withSession(name, false, func(ctx context.Context, s *app.Session) error {
			return cmdChats(ctx, s, *jsonFlag)
		})
	case "messages":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: wppchatctl messages <chat>")
			os.Exit(1)
		}
		withSession(name, false, func(ctx context.Context, s *app.Session) error {
			return cmdMessages(ctx, s, args[1], *jsonFlag)
		})
	case "send":
		req, err := parseSend(args[1:])
		if err != nil {
			fatal(err)
		}
		withSession(name, false, func(ctx context.Context, s *app.Session) error {
			return cmdSend(ctx, s, req, *jsonFlag)
		})
	case "watch":
		withSession(name, true, func(ctx context.Context, s *app.Session) error {
			return cmdWatch(ctx, s)
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: wppchatctl [-profile <name>] [-json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  login -user <id> -token <token> [-server <url>] [-name <display>]")
	fmt.Fprintln(os.Stderr, "                               Store credentials for the profile")
	fmt.Fprintln(os.Stderr, "  profiles                     List configured profiles")
	fmt.Fprintln(os.Stderr, "  chats                        List chats")
	fmt.Fprintln(os.Stderr, "  messages <chat>              Show the history of a chat")
	fmt.Fprintln(os.Stderr, "  send [-file <path>] [-reply <text>] <chat> [text]")
	fmt.Fprintln(os.Stderr, "                               Send a message")
	fmt.Fprintln(os.Stderr, "  watch                        Print incoming messages until interrupted")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func cmdLogin(name string, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	token := fs.String("token", "", "bearer token")
	server := fs.String("server", "", "server base URL")
	display := fs.String("name", "", "display name")
	_ = fs.Parse(args)

	if *user == "" || *token == "" {
		fmt.Fprintln(os.Stderr, "usage: wppchatctl login -user <id> -token <token> [-server <url>] [-name <display>]")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := session.UpdateConfig(ctx, func(cfg *config.Config) error {
		p := cfg.Profiles[name]
		p.UserID = *user
		p.Token = *token
		if *server != "" {
			p.Server.BaseURL = *server
		}
		if *display != "" {
			p.DisplayName = *display
		}
		if err := p.Validate(); err != nil {
			return err
		}
		cfg.SetProfile(name, p)
		if cfg.DefaultProfile == "" {
			cfg.DefaultProfile = name
		}
		return nil
	})
	if err != nil {
		fatal(err)
	}
	if err := session.EnsureDir(name); err != nil {
		fatal(err)
	}
	fmt.Printf("Logged in as %s on profile %q.\n", *user, name)
}

type profileInfo struct {
	Name    string `json:"name"`
	UserID  string `json:"user_id"`
	Server  string `json:"server"`
	Default bool   `json:"default"`
}

func cmdProfiles(jsonOut bool) {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		fatal(err)
	}
	names := make([]string, 0, len(cfg.Profiles))
	for n := range cfg.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)

	list := make([]profileInfo, 0, len(names))
	for _, n := range names {
		p, _ := cfg.Profile(n)
		list = append(list, profileInfo{
			Name:    n,
			UserID:  p.UserID,
			Server:  p.Server.BaseURL,
			Default: n == cfg.DefaultProfile,
		})
	}
	if jsonOut {
		outputJSON(list)
		return
	}
	if len(list) == 0 {
		fmt.Println("No profiles found.")
		return
	}
	for _, p := range list {
		mark := " "
		if p.Default {
			mark = "*"
		}
		fmt.Printf("%s %-16s %-24s %s\n", mark, p.Name, p.UserID, p.Server)
	}
}

// withSession starts a session for the profile, runs fn and stops it.
func withSession(name string, push bool, fn func(ctx context.Context, s *app.Session) error) {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		fatal(err)
	}
	profile, ok := cfg.Profile(name)
	if !ok {
		fatal(fmt.Errorf("profile %q not found; run wppchatctl login", name))
	}
	if err := profile.Validate(); err != nil {
		fatal(err)
	}

	var s *app.Session
	application := fx.New(
		app.Module(app.Params{
			ProfileName:  name,
			Profile:      profile,
			ConsoleLevel: zapcore.ErrorLevel,
			Push:         push,
		}),
		fx.Populate(&s),
		fx.NopLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		fatal(err)
	}

	runErr := fn(ctx, s)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = application.Stop(stopCtx)
	if runErr != nil {
		fatal(runErr)
	}
}

type chatInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"last_message"`
	Timestamp   int64  `json:"timestamp"`
	Unread      int    `json:"unread"`
	Group       bool   `json:"group"`
	Pinned      bool   `json:"pinned"`
	Muted       bool   `json:"muted"`
	Blocked     bool   `json:"blocked"`
}

func cmdChats(ctx context.Context, s *app.Session, jsonOut bool) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	chats := s.Chats.List()
	if jsonOut {
		list := make([]chatInfo, 0, len(chats))
		for _, c := range chats {
			list = append(list, chatInfo{
				ID:          c.ID,
				Name:        c.Name,
				LastMessage: c.LastMessage,
				Timestamp:   c.Timestamp,
				Unread:      c.UnreadCount,
				Group:       c.IsGroup,
				Pinned:      c.IsPinned,
				Muted:       c.IsMuted,
				Blocked:     c.IsBlocked,
			})
		}
		outputJSON(list)
		return nil
	}
	if len(chats) == 0 {
		fmt.Println("No chats.")
		return nil
	}
	for _, c := range chats {
		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprintf("(%d) ", c.UnreadCount)
		}
		fmt.Printf("%-24s %s%-24s %s\n", c.ID, unread, c.Name, ago(c.Timestamp))
	}
	return nil
}

type messageInfo struct {
	ID        string `json:"id"`
	ChatID    string `json:"chat_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Status    string `json:"status"`
	ReplyTo   string `json:"reply_to,omitempty"`
	File      string `json:"file,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

func toInfo(m store.Message) messageInfo {
	info := messageInfo{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Status:    string(m.Status),
		ReplyTo:   m.ReferencedContent,
		Deleted:   m.Deleted,
	}
	if m.Attachment != nil {
		info.File = m.Attachment.Filename()
	}
	return info
}

func cmdMessages(ctx context.Context, s *app.Session, chatID string, jsonOut bool) error {
	if err := s.OpenChat(ctx, chatID); err != nil {
		return err
	}
	msgs := s.Messages.Messages(chatID)
	if jsonOut {
		list := make([]messageInfo, 0, len(msgs))
		for _, m := range msgs {
			list = append(list, toInfo(m))
		}
		outputJSON(list)
		return nil
	}
	for _, m := range msgs {
		printMessage(s, m)
	}
	return nil
}

func printMessage(s *app.Session, m store.Message) {
	who := s.Contacts.DisplayName(m.SenderID)
	if m.FromMe() || m.SenderID == s.Params.Profile.UserID {
		who = "you"
	}
	text := m.Preview()
	if m.Deleted {
		text = "(deleted)"
	}
	fmt.Printf("[%s] %s: %s\n", time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04"), who, text)
}

func parseSend(args []string) (outbox.Request, error) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	file := fs.String("file", "", "attachment path")
	reply := fs.String("reply", "", "text of the message being answered")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) == 0 {
		return outbox.Request{}, fmt.Errorf("usage: wppchatctl send [-file <path>] [-reply <text>] <chat> [text]")
	}
	req := outbox.Request{
		ChatID:  rest[0],
		Content: strings.Join(rest[1:], " "),
		ReplyTo: *reply,
	}
	if *file != "" {
		blob, err := attach.Inspect(*file)
		if err != nil {
			return outbox.Request{}, err
		}
		req.File = &blob
	}
	if req.Content == "" && req.File == nil {
		return outbox.Request{}, fmt.Errorf("nothing to send")
	}
	return req, nil
}

func cmdSend(ctx context.Context, s *app.Session, req outbox.Request, jsonOut bool) error {
	msg, err := s.Sender.Send(ctx, req)
	if err != nil {
		return err
	}
	if jsonOut {
		outputJSON(toInfo(msg))
		return nil
	}
	fmt.Printf("Sent %s (%s)\n", msg.ID, msg.Status)
	return nil
}

// cmdWatch prints every message added to the store as one JSON line.
func cmdWatch(ctx context.Context, s *app.Session) error {
	events, unsubscribe := s.Bus.Subscribe(store.KindMessageAdded, 64)
	defer unsubscribe()

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-events:
			change, ok := evt.Payload.(store.MessageChange)
			if !ok {
				continue
			}
			if err := enc.Encode(toInfo(change.Message)); err != nil {
				return err
			}
		}
	}
}

func ago(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return humanize.Time(time.UnixMilli(ms))
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
