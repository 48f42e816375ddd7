package sync

import (
	"go.uber.org/zap"

	"github.com/matheus3301/wppchat/internal/store"
)

// Reconciler merges server-side facts into the stores by message id. It
// never creates a second entry for an id and never moves a status back.
type Reconciler struct {
	messages *store.MessageStore
	logger   *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(messages *store.MessageStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{messages: messages, logger: logger}
}

// Message adds m, or if its id is already stored, advances the stored
// status. It reports whether m was new.
func (r *Reconciler) Message(m store.Message) bool {
	if m.Status == store.StatusSending && !store.IsTempID(m.ID) {
		m.Status = store.StatusSent
	}
	if r.messages.AddMessage(m.ChatID, m) {
		return true
	}
	r.Status(m.ChatID, m.ID, m.Status)
	return false
}

// Status advances a message's status. Going backwards, or to SENDING, is
// ignored. Unknown ids are ignored.
func (r *Reconciler) Status(chatID, id string, status store.Status) bool {
	if !status.Valid() || status == store.StatusSending {
		return false
	}
	return r.messages.UpdateMessage(chatID, id, func(m *store.Message) {
		m.Status = store.MaxStatus(m.Status, status)
	})
}

// Reaction appends a reaction without touching the ones already there.
func (r *Reconciler) Reaction(chatID, id string, reaction store.Reaction) bool {
	return r.messages.UpdateMessage(chatID, id, func(m *store.Message) {
		m.Reactions = append(m.Reactions, reaction)
	})
}

// Deleted tombstones a message.
func (r *Reconciler) Deleted(chatID, id string) bool {
	ok := r.messages.UpdateMessage(chatID, id, func(m *store.Message) {
		m.Content = store.DeletedPlaceholder
		m.Attachment = nil
		m.ReferencedContent = ""
		m.Deleted = true
	})
	if !ok {
		r.logger.Debug("delete for unknown message", zap.String("chat_id", chatID), zap.String("msg_id", id))
	}
	return ok
}
