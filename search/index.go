// Package search keeps a full-text index of chat messages in bluge.
// Badger stays the source of truth; the index can be rebuilt from it.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"listing-chat/domain"

	"github.com/blugelabs/bluge"
)

const (
	fieldID             = "_id"
	fieldConversationID = "conversation_id"
	fieldSenderID       = "sender_id"
	fieldContent        = "content"
	fieldCreatedAt      = "created_at"

	DefaultLimit = 20
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Index adds or replaces the document of a message.
func (i *Index) Index(ctx context.Context, message domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(fieldConversationID, message.ConversationID).StoreValue()).
		AddField(bluge.NewKeywordField(fieldSenderID, message.SenderID).StoreValue()).
		AddField(bluge.NewTextField(fieldContent, message.Content).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, message.CreatedAt).StoreValue())

	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", message.ID, err)
	}
	return nil
}

// Search returns the best matching messages of a single conversation.
func (i *Index) Search(ctx context.Context, conversationID, query string, limit int) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" || conversationID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(conversationID).SetField(fieldConversationID)).
		AddMust(bluge.NewMatchQuery(query).SetField(fieldContent))

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("search conversation %s: %w", conversationID, err)
	}

	var hits []domain.SearchHit
	match, err := matches.Next()
	for err == nil && match != nil {
		hit := domain.SearchHit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				hit.MessageID = string(value)
			case fieldSenderID:
				hit.SenderID = string(value)
			case fieldContent:
				hit.Content = string(value)
			case fieldCreatedAt:
				if at, decodeErr := bluge.DecodeDateTime(value); decodeErr == nil {
					hit.CreatedAt = at.UTC()
				} else {
					i.log.Debug("Unable to decode indexed date", "message_id", hit.MessageID, "error", decodeErr)
				}
			}
			return true
		})
		if err != nil {
			break
		}
		hits = append(hits, hit)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return hits, nil
}
