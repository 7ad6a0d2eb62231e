//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"listing-chat/domain"
	apperrors "listing-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Create(ctx context.Context, conversationID, senderID, content string) (domain.Message, error)
	GetMessages(ctx context.Context, conversationID string, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Create persists a new message in the given conversation.
// The conversation must exist and the content must not be blank.
func (m MessageRepository) Create(ctx context.Context, conversationID, senderID, content string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, apperrors.ErrEmptyContent
	}
	if !validKeyPart(conversationID) {
		return domain.Message{}, fmt.Errorf("%w: %q", apperrors.ErrConversationNotFound, conversationID)
	}

	message := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	err := m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(conversationKey(conversationID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %q", apperrors.ErrConversationNotFound, conversationID)
			}
			return err
		}
		return txn.Set(messageKey(message), EncodeMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetMessages returns a conversation's messages, oldest first.
// Thanks to the padded timestamp in the key, a prefix scan is already sorted.
// The returned cursor resumes after the last message of the page; it is nil
// once the history is exhausted.
func (m MessageRepository) GetMessages(ctx context.Context, conversationID string, cursor *string) ([]domain.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if !validKeyPart(conversationID) {
		return nil, nil, nil
	}

	var (
		messages []domain.Message
		lastKey  string
		full     bool
	)
	prefix := messagePrefixFor(conversationID)
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seekKey := prefix
		if cursor != nil {
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				full = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				message, err := DecodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !full {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}
