package repositories

import (
	"fmt"
	"time"

	"listing-chat/domain"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored as protobuf wire messages so that fields can be added
// without rewriting existing values. Field numbers must never be reused.
const (
	messageFieldID             protowire.Number = 1
	messageFieldConversationID protowire.Number = 2
	messageFieldSenderID       protowire.Number = 3
	messageFieldContent        protowire.Number = 4
	messageFieldCreatedAt      protowire.Number = 5

	conversationFieldID         protowire.Number = 1
	conversationFieldListingID  protowire.Number = 2
	conversationFieldInquirerID protowire.Number = 3
	conversationFieldOwnerID    protowire.Number = 4
	conversationFieldCreatedAt  protowire.Number = 5
)

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(t.UnixNano()))
}

// decodeRecord walks every field of a wire message. Unknown fields are skipped.
func decodeRecord(b []byte, onString func(protowire.Number, string), onVarint func(protowire.Number, uint64)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			onString(num, v)
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			onVarint(num, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func EncodeMessage(m domain.Message) []byte {
	var b []byte
	b = appendString(b, messageFieldID, m.ID.String())
	b = appendString(b, messageFieldConversationID, m.ConversationID)
	b = appendString(b, messageFieldSenderID, m.SenderID)
	b = appendString(b, messageFieldContent, m.Content)
	return appendTime(b, messageFieldCreatedAt, m.CreatedAt)
}

func DecodeMessage(b []byte) (domain.Message, error) {
	var (
		m     domain.Message
		rawID string
	)
	err := decodeRecord(b,
		func(num protowire.Number, v string) {
			switch num {
			case messageFieldID:
				rawID = v
			case messageFieldConversationID:
				m.ConversationID = v
			case messageFieldSenderID:
				m.SenderID = v
			case messageFieldContent:
				m.Content = v
			}
		},
		func(num protowire.Number, v uint64) {
			if num == messageFieldCreatedAt {
				m.CreatedAt = time.Unix(0, int64(v)).UTC()
			}
		})
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message id: %w", err)
	}
	m.ID = id
	return m, nil
}

func EncodeConversation(c domain.Conversation) []byte {
	var b []byte
	b = appendString(b, conversationFieldID, c.ID)
	b = appendString(b, conversationFieldListingID, c.ListingID)
	b = appendString(b, conversationFieldInquirerID, c.InquirerID)
	b = appendString(b, conversationFieldOwnerID, c.OwnerID)
	return appendTime(b, conversationFieldCreatedAt, c.CreatedAt)
}

func DecodeConversation(b []byte) (domain.Conversation, error) {
	var c domain.Conversation
	err := decodeRecord(b,
		func(num protowire.Number, v string) {
			switch num {
			case conversationFieldID:
				c.ID = v
			case conversationFieldListingID:
				c.ListingID = v
			case conversationFieldInquirerID:
				c.InquirerID = v
			case conversationFieldOwnerID:
				c.OwnerID = v
			}
		},
		func(num protowire.Number, v uint64) {
			if num == conversationFieldCreatedAt {
				c.CreatedAt = time.Unix(0, int64(v)).UTC()
			}
		})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("decode conversation: %w", err)
	}
	if c.ID == "" {
		return domain.Conversation{}, fmt.Errorf("decode conversation: missing id")
	}
	return c, nil
}
