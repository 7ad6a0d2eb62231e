package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidToken         = fmt.Errorf("invalid or expired token")
	ErrUnknownRole          = fmt.Errorf("unknown role")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrInvalidConversation  = fmt.Errorf("invalid conversation")
	ErrNotParticipant       = fmt.Errorf("user is not a participant in this conversation")
	ErrInquirerOnly         = fmt.Errorf("only an inquirer can start a conversation")
	ErrEmptyContent         = fmt.Errorf("message content is empty")
	ErrMalformedFrame       = fmt.Errorf("malformed frame")
	ErrUnknownFrameKind     = fmt.Errorf("unknown frame kind")
	ErrConnectionClosed     = fmt.Errorf("connection closed")
	ErrSendBufferFull       = fmt.Errorf("connection send buffer exceeded")
	ErrInvalidConfig        = fmt.Errorf("invalid configuration")
)
