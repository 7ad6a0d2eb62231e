// Package domain contains core concepts of the listing chat.
// This file defines the frames exchanged over a live connection.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"listing-chat/errors"

	"github.com/go-playground/validator/v10"
)

type FrameKind string

const (
	KindAuth       FrameKind = "auth"
	KindMessage    FrameKind = "message"
	KindNewMessage FrameKind = "newMessage"
)

// Frame is the closed set of inbound frames: AuthFrame, ChatFrame or Unrecognized.
type Frame interface {
	frame()
}

type AuthFrame struct {
	Credential     string `validate:"required"`
	ConversationID string `validate:"required"`
}

type ChatFrame struct {
	ConversationID string `validate:"required"`
	Content        string `validate:"required"`
}

// Unrecognized carries why a payload could not be turned into a known frame.
type Unrecognized struct {
	Reason error
}

func (AuthFrame) frame()    {}
func (ChatFrame) frame()    {}
func (Unrecognized) frame() {}

type envelope struct {
	Kind           FrameKind `json:"kind"`
	Credential     string    `json:"credential"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
}

// FrameParser decodes raw inbound payloads. It never fails: anything it cannot
// make sense of comes back as Unrecognized.
type FrameParser struct {
	validate         *validator.Validate
	maxContentLength int
}

// NewFrameParser builds a parser. A maxContentLength of zero disables the limit.
func NewFrameParser(maxContentLength int) FrameParser {
	return FrameParser{validate: validator.New(), maxContentLength: maxContentLength}
}

func (p FrameParser) Parse(data []byte) Frame {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Unrecognized{Reason: fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)}
	}

	switch env.Kind {
	case KindAuth:
		f := AuthFrame{Credential: env.Credential, ConversationID: env.ConversationID}
		if err := p.validate.Struct(f); err != nil {
			return Unrecognized{Reason: fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)}
		}
		return f
	case KindMessage:
		f := ChatFrame{ConversationID: env.ConversationID, Content: env.Content}
		if err := p.validate.Struct(f); err != nil {
			return Unrecognized{Reason: fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)}
		}
		if p.maxContentLength > 0 {
			if err := p.validate.Var(f.Content, fmt.Sprintf("max=%d", p.maxContentLength)); err != nil {
				return Unrecognized{Reason: fmt.Errorf("%w: content too long", errors.ErrMalformedFrame)}
			}
		}
		return f
	default:
		return Unrecognized{Reason: fmt.Errorf("%w: %q", errors.ErrUnknownFrameKind, env.Kind)}
	}
}

// MessagePayload is the wire shape of a Message.
type MessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

type NewMessageFrame struct {
	Kind    FrameKind      `json:"kind"`
	Message MessagePayload `json:"message"`
}

func ToPayload(m Message) MessagePayload {
	return MessagePayload{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// EncodeNewMessage renders the outbound broadcast frame for a stored message.
func EncodeNewMessage(m Message) ([]byte, error) {
	return json.Marshal(NewMessageFrame{Kind: KindNewMessage, Message: ToPayload(m)})
}
