package repositories

import (
	"fmt"
	"strings"

	"listing-chat/domain"
)

// Key layout:
//
//	conv:{id}                                  conversation record
//	idx:conv:listing:{listing_id}:{inquirer_id} -> conversation id (uniqueness)
//	idx:conv:user:{user_id}:{conversation_id}   -> empty (participant lookup)
//	msg:{conversation_id}:{unix_nano_padded}:{message_id}
const (
	ConversationPrefix = "conv:"
	listingIndexPrefix = "idx:conv:listing:"
	userIndexPrefix    = "idx:conv:user:"
	MessagePrefix      = "msg:"
)

// validKeyPart rejects ids that would break the ':' separated key layout.
func validKeyPart(s string) bool {
	return s != "" && !strings.Contains(s, ":")
}

func conversationKey(id string) []byte {
	return []byte(ConversationPrefix + id)
}

func listingIndexKey(listingID, inquirerID string) []byte {
	return []byte(listingIndexPrefix + listingID + ":" + inquirerID)
}

func userIndexPrefixFor(userID string) []byte {
	return []byte(userIndexPrefix + userID + ":")
}

func userIndexKey(userID, conversationID string) []byte {
	return []byte(userIndexPrefix + userID + ":" + conversationID)
}

func messagePrefixFor(conversationID string) []byte {
	return []byte(MessagePrefix + conversationID + ":")
}

// messageKey uses a 19-digit zero padded timestamp so that lexicographical
// order is chronological. The message id breaks ties on the same nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s",
		MessagePrefix,
		m.ConversationID,
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}
