//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"listing-chat/domain"
	apperrors "listing-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const maxConflictRetries = 5

type IConversationRepository interface {
	FindByID(ctx context.Context, id string) (domain.Conversation, error)
	FindOrCreate(ctx context.Context, listingID, inquirerID, ownerID string) (domain.Conversation, bool, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

func (c ConversationRepository) FindByID(ctx context.Context, id string) (domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Conversation{}, err
	}
	if !validKeyPart(id) {
		return domain.Conversation{}, fmt.Errorf("%w: %q", apperrors.ErrConversationNotFound, id)
	}
	var conversation domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		conversation, err = getConversation(txn, id)
		return err
	})
	return conversation, err
}

// FindOrCreate returns the conversation for (listingID, inquirerID), creating it
// when absent. The boolean reports whether a new conversation was created.
// Two concurrent calls for the same pair conflict at commit time; the loser
// retries and finds the winner's conversation.
func (c ConversationRepository) FindOrCreate(ctx context.Context, listingID, inquirerID, ownerID string) (domain.Conversation, bool, error) {
	if !validKeyPart(listingID) || !validKeyPart(inquirerID) || !validKeyPart(ownerID) {
		return domain.Conversation{}, false, apperrors.ErrInvalidConversation
	}
	if inquirerID == ownerID {
		return domain.Conversation{}, false, fmt.Errorf("%w: inquirer and owner are the same user", apperrors.ErrInvalidConversation)
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Conversation{}, false, err
		}
		conversation, created, err := c.findOrCreate(listingID, inquirerID, ownerID)
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			c.log.Debug("Conversation creation conflict, retrying",
				"listing_id", listingID, "inquirer_id", inquirerID, "attempt", attempt)
			continue
		}
		return conversation, created, err
	}
}

func (c ConversationRepository) findOrCreate(listingID, inquirerID, ownerID string) (domain.Conversation, bool, error) {
	var (
		conversation domain.Conversation
		created      bool
	)
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(listingIndexKey(listingID, inquirerID))
		switch {
		case err == nil:
			id, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			conversation, err = getConversation(txn, string(id))
			return err
		case errors.Is(err, badger.ErrKeyNotFound):
			conversation = domain.Conversation{
				ID:         uuid.NewString(),
				ListingID:  listingID,
				InquirerID: inquirerID,
				OwnerID:    ownerID,
				CreatedAt:  time.Now().UTC(),
			}
			created = true
			return putConversation(txn, conversation)
		default:
			return err
		}
	})
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return conversation, created, nil
}

// ListForUser returns every conversation the user takes part in, newest first.
func (c ConversationRepository) ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validKeyPart(userID) {
		return nil, nil
	}
	var conversations []domain.Conversation
	prefix := userIndexPrefixFor(userID)
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			conversation, err := getConversation(txn, id)
			if err != nil {
				return err
			}
			conversations = append(conversations, conversation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(conversations, func(a, b domain.Conversation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return conversations, nil
}

func getConversation(txn *badger.Txn, id string) (domain.Conversation, error) {
	item, err := txn.Get(conversationKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, fmt.Errorf("%w: %q", apperrors.ErrConversationNotFound, id)
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	var conversation domain.Conversation
	err = item.Value(func(value []byte) error {
		conversation, err = DecodeConversation(value)
		return err
	})
	return conversation, err
}

func putConversation(txn *badger.Txn, conversation domain.Conversation) error {
	if err := txn.Set(conversationKey(conversation.ID), EncodeConversation(conversation)); err != nil {
		return err
	}
	if err := txn.Set(listingIndexKey(conversation.ListingID, conversation.InquirerID), []byte(conversation.ID)); err != nil {
		return err
	}
	if err := txn.Set(userIndexKey(conversation.InquirerID, conversation.ID), nil); err != nil {
		return err
	}
	return txn.Set(userIndexKey(conversation.OwnerID, conversation.ID), nil)
}
