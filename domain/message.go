// Package domain contains core concepts of the listing chat.
// This file defines the persisted Conversation and Message entities.
// Messages are immutable once stored.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the thread linking one inquirer, one owner and one listing.
// At most one conversation exists per (ListingID, InquirerID).
type Conversation struct {
	ID         string
	ListingID  string
	InquirerID string
	OwnerID    string
	CreatedAt  time.Time
}

// HasParticipant reports whether userID is the inquirer or the owner.
func (c Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.InquirerID == userID || c.OwnerID == userID)
}

// Message represents an immutable chat event.
type Message struct {
	ID             uuid.UUID // unique identifier
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
}
