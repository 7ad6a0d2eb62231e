//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"listing-chat/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// TokenVerifier resolves an opaque credential into an identity.
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// ConversationStore returns errors.ErrConversationNotFound for unknown ids.
type ConversationStore interface {
	FindByID(ctx context.Context, id string) (domain.Conversation, error)
}

type MessageStore interface {
	Create(ctx context.Context, conversationID, senderID, content string) (domain.Message, error)
}

// Peer is the remote end of one live connection.
// Send must not block; Done is closed once the peer is closed.
type Peer interface {
	Send(payload []byte) error
	Close(reason string)
	Done() <-chan struct{}
}

type AutoReplier interface {
	Consider(ctx context.Context, conversationID, content string)
}

// Deliverer persists a message and broadcasts it to every subscriber of the conversation.
type Deliverer interface {
	Deliver(ctx context.Context, conversationID, senderID, content string) (domain.Message, error)
}

// MessageIndex is the full-text side of message storage.
type MessageIndex interface {
	Index(ctx context.Context, message domain.Message) error
	Search(ctx context.Context, conversationID, query string, limit int) ([]domain.SearchHit, error)
}
