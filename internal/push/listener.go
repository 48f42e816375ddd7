// Package push keeps the one-way server push subscription and decodes its
// payloads into events.
package push

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/wppchat/internal/status"
)

// ErrAlreadySubscribed is returned when a session opens a second subscription.
var ErrAlreadySubscribed = errors.New("push subscription already open")

// Source is a push transport. Stream blocks, calling opened once the
// connection is up and deliver for each raw payload in arrival order, until
// ctx ends or the transport fails. It never reconnects.
type Source interface {
	Stream(ctx context.Context, opened func(), deliver func(name string, data []byte)) error
}

// Listener owns the single push subscription of a session.
type Listener struct {
	src    Source
	link   *status.Machine
	logger *zap.Logger

	mu     sync.Mutex
	active *Subscription
}

// NewListener creates a listener over src. link may be nil.
func NewListener(src Source, link *status.Machine, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{src: src, link: link, logger: logger}
}

// Subscribe opens the stream. Events arrive in the order the transport
// delivered them; undecodable payloads are logged and skipped. The stream
// ends on transport error, server close, ctx cancellation or Close.
func (l *Listener) Subscribe(ctx context.Context) (*Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		select {
		case <-l.active.done:
		default:
			return nil, ErrAlreadySubscribed
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		events: make(chan Event),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.active = sub
	l.transition(status.Connecting)

	go l.run(ctx, sub)
	return sub, nil
}

func (l *Listener) run(ctx context.Context, sub *Subscription) {
	defer close(sub.done)
	defer close(sub.events)

	delivered, dropped := 0, 0
	err := l.src.Stream(ctx,
		func() {
			l.transition(status.Connected)
			l.logger.Info("push stream open")
		},
		func(name string, data []byte) {
			evt, err := Decode(name, data)
			if err != nil {
				dropped++
				l.logger.Warn("dropping malformed push event", zap.String("event", name), zap.Error(err))
				return
			}
			select {
			case sub.events <- evt:
				delivered++
			case <-ctx.Done():
			}
		},
	)

	fields := []zap.Field{zap.Int("delivered", delivered), zap.Int("dropped", dropped)}
	switch {
	case ctx.Err() != nil:
		l.transition(status.Disconnected)
		l.logger.Info("push stream closed", fields...)
	case err != nil:
		sub.err = err
		if l.link != nil {
			_ = l.link.Fail(err)
		}
		l.logger.Error("push stream failed", append(fields, zap.Error(err))...)
	default:
		l.transition(status.Disconnected)
		l.logger.Info("push stream ended by server", fields...)
	}
}

func (l *Listener) transition(to status.State) {
	if l.link != nil {
		_ = l.link.Transition(to)
	}
}

// Subscription is a live push stream. The owner must call Close.
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
}

// Events yields decoded events and is closed when the stream ends.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed once the transport has been released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err is the transport error that ended the stream, if any. Valid after Done.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Close tears the stream down and waits for the transport to be released.
// It is safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}
