package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"listing-chat/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewIndex(writer, slog.Default())
}

func message(conversationID, senderID, content string) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestIndex_Search_Finds_Message_In_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	index := newTestIndex(t)

	wanted := message("c1", "alice", "Is the apartment still available?")
	req.NoError(index.Index(ctx, wanted))
	req.NoError(index.Index(ctx, message("c1", "bob", "Yes, come visit on Monday")))

	hits, err := index.Search(ctx, "c1", "available", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(wanted.ID.String(), hits[0].MessageID)
	req.Equal("alice", hits[0].SenderID)
	req.Equal(wanted.Content, hits[0].Content)
	req.True(wanted.CreatedAt.Equal(hits[0].CreatedAt))
	req.Positive(hits[0].Score)
}

func TestIndex_Search_Is_Scoped_To_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	index := newTestIndex(t)

	req.NoError(index.Index(ctx, message("c1", "alice", "what is the contact number")))
	req.NoError(index.Index(ctx, message("c2", "carol", "contact me later")))

	hits, err := index.Search(ctx, "c2", "contact", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("carol", hits[0].SenderID)
}

func TestIndex_Search_Empty_Query(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)

	hits, err := index.Search(context.Background(), "c1", "   ", 10)
	req.NoError(err)
	req.Empty(hits)
}

func TestIndex_Update_Replaces_Document(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	index := newTestIndex(t)

	m := message("c1", "alice", "first draft")
	req.NoError(index.Index(ctx, m))
	req.NoError(index.Index(ctx, m))

	hits, err := index.Search(ctx, "c1", "draft", 10)
	req.NoError(err)
	req.Len(hits, 1)
}

func TestIndex_Canceled_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newTestIndex(t).Index(ctx, message("c1", "alice", "hello"))
	require.ErrorIs(t, err, context.Canceled)
}
