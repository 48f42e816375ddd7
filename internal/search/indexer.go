package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/matheus3301/wppchat/internal/bus"
	"github.com/matheus3301/wppchat/internal/store"
)

// Indexer keeps an Index in step with the message store by following
// "store.messages." events on the bus.
type Indexer struct {
	index  *Index
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewIndexer creates an indexer. Call Start to begin following the bus.
func NewIndexer(ix *Index, b *bus.Bus, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{index: ix, bus: b, logger: logger}
}

// Start subscribes to message store events.
func (x *Indexer) Start(ctx context.Context) {
	ctx, x.cancel = context.WithCancel(ctx)
	x.done = make(chan struct{})
	ch, unsub := x.bus.Subscribe("store.messages.", 1024)

	go func() {
		defer close(x.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				x.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops following the bus and waits for the loop to exit.
func (x *Indexer) Stop() {
	if x.cancel != nil {
		x.cancel()
		<-x.done
	}
}

func (x *Indexer) handleEvent(evt bus.Event) {
	change, ok := evt.Payload.(store.MessageChange)
	if !ok {
		return
	}
	var err error
	switch evt.Kind {
	case store.KindMessagesSet:
		err = x.index.ReplaceChat(change.ChatID, change.Messages)
	case store.KindMessageAdded, store.KindMessageUpdated:
		err = x.index.Upsert(change.Message)
	case store.KindMessageReplaced:
		if err = x.index.Remove(change.ChatID, change.PreviousID); err == nil {
			err = x.index.Upsert(change.Message)
		}
	case store.KindMessageRemoved:
		err = x.index.Remove(change.ChatID, change.PreviousID)
	}
	if err != nil {
		x.logger.Error("failed to index message event", zap.String("kind", evt.Kind), zap.String("chat_id", change.ChatID), zap.Error(err))
	}
}
