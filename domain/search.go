package domain

import "time"

// SearchHit is a message matched by a full-text query.
type SearchHit struct {
	MessageID string
	SenderID  string
	Content   string
	CreatedAt time.Time
	Score     float64
}
