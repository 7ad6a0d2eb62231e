package repositories

import (
	"context"
	"log/slog"

	"listing-chat/contract"
	"listing-chat/domain"
)

// IndexedMessageStore persists messages, then feeds them to the full-text index.
// The index is best effort: a failure is logged and the stored message is still returned.
type IndexedMessageStore struct {
	store contract.MessageStore
	index contract.MessageIndex
	log   *slog.Logger
}

func NewIndexedMessageStore(store contract.MessageStore, index contract.MessageIndex, log *slog.Logger) IndexedMessageStore {
	return IndexedMessageStore{store: store, index: index, log: log}
}

func (s IndexedMessageStore) Create(ctx context.Context, conversationID, senderID, content string) (domain.Message, error) {
	message, err := s.store.Create(ctx, conversationID, senderID, content)
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.index.Index(context.WithoutCancel(ctx), message); err != nil {
		s.log.Warn("Unable to index message", "message_id", message.ID, "conversation_id", conversationID, "error", err)
	}
	return message, nil
}
