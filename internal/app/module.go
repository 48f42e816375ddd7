// Package app assembles a client session with fx: stores, REST client,
// sender, sync engine, push listener and search index.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matheus3301/wppchat/internal/api"
	"github.com/matheus3301/wppchat/internal/attach"
	"github.com/matheus3301/wppchat/internal/bus"
	"github.com/matheus3301/wppchat/internal/chatops"
	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/logging"
	"github.com/matheus3301/wppchat/internal/outbox"
	"github.com/matheus3301/wppchat/internal/push"
	"github.com/matheus3301/wppchat/internal/search"
	"github.com/matheus3301/wppchat/internal/session"
	"github.com/matheus3301/wppchat/internal/status"
	"github.com/matheus3301/wppchat/internal/store"
	intsync "github.com/matheus3301/wppchat/internal/sync"
)

// Params holds the resolved profile passed to the fx module.
type Params struct {
	ProfileName string
	Profile     config.Profile
	// ConsoleLevel is the lowest level echoed to stderr. The TUI raises it
	// so log lines do not paint over the screen.
	ConsoleLevel zapcore.Level
	// Push disables the push subscription when false.
	Push bool
}

// Links holds one state machine per connection.
type Links struct {
	API  *status.Machine
	Push *status.Machine
}

// Module returns the fx module for a client session.
func Module(p Params) fx.Option {
	return fx.Module("wppchat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			bus.New,
			provideLinks,
			store.NewMessageStore,
			store.NewChatStore,
			store.NewContactStore,
			provideClient,
			providePolicy,
			provideSender,
			provideEngine,
			provideChatOps,
			provideListener,
			provideIndex,
			search.NewIndexer,
			NewSession,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := session.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	return logging.New(session.LogPath(p.ProfileName), p.ProfileName, p.ConsoleLevel)
}

func provideLinks(b *bus.Bus) Links {
	return Links{
		API:  status.NewMachine(status.LinkAPI, b),
		Push: status.NewMachine(status.LinkPush, b),
	}
}

func provideClient(p Params, links Links, logger *zap.Logger) (*api.Client, error) {
	return api.New(p.Profile, links.API, logger.Named("api"))
}

func providePolicy(p Params) (*attach.Policy, error) {
	return attach.NewPolicy(p.Profile.WithDefaults().Limits)
}

func provideSender(p Params, client *api.Client, policy *attach.Policy, messages *store.MessageStore, chats *store.ChatStore, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(client, policy, messages, chats, p.Profile.UserID, logger.Named("outbox"))
}

func provideEngine(p Params, client *api.Client, messages *store.MessageStore, chats *store.ChatStore, contacts *store.ContactStore, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(client, messages, chats, contacts, p.Profile.UserID, logger.Named("sync"))
}

func provideChatOps(client *api.Client, chats *store.ChatStore, contacts *store.ContactStore, logger *zap.Logger) *chatops.Service {
	return chatops.NewService(client, chats, contacts, logger.Named("chatops"))
}

func provideListener(p Params, client *api.Client, links Links, logger *zap.Logger) (*push.Listener, error) {
	src, err := push.NewSource(p.Profile.WithDefaults().Push, client.BaseURL(), client.AuthHeader())
	if err != nil {
		return nil, err
	}
	return push.NewListener(src, links.Push, logger.Named("push")), nil
}

func provideIndex(logger *zap.Logger) (*search.Index, error) {
	ix, err := search.Open(search.MemoryDSN)
	if err != nil {
		return nil, err
	}
	result, err := ix.Migrate()
	if err != nil {
		_ = ix.Close()
		return nil, err
	}
	logger.Debug("search index ready", zap.Uint("version", result.Version))
	return ix, nil
}

func registerLifecycle(lc fx.Lifecycle, p Params, s *Session, ix *search.Index, indexer *search.Indexer, logger *zap.Logger) {
	var cancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			indexer.Start(ctx)

			go func() {
				if err := s.Refresh(ctx); err != nil {
					logger.Error("initial load failed", zap.Error(err))
				}
			}()

			if p.Push {
				if err := s.Connect(ctx); err != nil {
					logger.Warn("push unavailable, continuing without it", zap.Error(err))
				}
			}
			logger.Info("session started", zap.String("profile", p.ProfileName))
			return nil
		},
		OnStop: func(context.Context) error {
			s.Disconnect()
			if cancel != nil {
				cancel()
			}
			s.Sender.Wait()
			indexer.Stop()
			if err := ix.Close(); err != nil {
				logger.Warn("error closing search index", zap.Error(err))
			}
			logger.Info("session stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
