package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"listing-chat/contract"
	"listing-chat/domain"
)

// Outcome describes what happened to a routed message.
type Outcome struct {
	Message   domain.Message
	Persisted bool
	Delivered int // number of sessions the frame was queued to
}

// MessageRouter persists a message, then fans it out to the sessions
// subscribed to its conversation.
type MessageRouter struct {
	log          *slog.Logger
	store        contract.MessageStore
	registry     *Registry
	replier      contract.AutoReplier
	storeTimeout time.Duration
}

func NewMessageRouter(log *slog.Logger, store contract.MessageStore, registry *Registry, storeTimeout time.Duration) *MessageRouter {
	return &MessageRouter{log: log, store: store, registry: registry, storeTimeout: storeTimeout}
}

// UseAutoReplier must be called before the router handles traffic.
func (r *MessageRouter) UseAutoReplier(replier contract.AutoReplier) {
	r.replier = replier
}

// Route handles a message written by an authenticated human.
// conversationID is always the sender's subscribed conversation: Hub.Handle
// drops chat frames naming any other conversation before they get here.
// Nothing is reported back to the sender: a storage failure is logged and the
// message is dropped. The sender does not receive its own message.
func (r *MessageRouter) Route(ctx context.Context, sender *Session, conversationID, content string) Outcome {
	identity := sender.Identity()
	message, err := r.persist(ctx, conversationID, identity.SubjectID, content)
	if err != nil {
		r.log.Warn("Unable to persist message, dropped",
			"session_id", sender.ID,
			"conversation_id", conversationID,
			"error", err)
		return Outcome{}
	}

	delivered := r.broadcast(message, sender)
	if identity.Role == domain.RoleInquirer && r.replier != nil {
		r.considerReply(ctx, message)
	}
	return Outcome{Message: message, Persisted: true, Delivered: delivered}
}

// Deliver persists and broadcasts to every subscriber, with no exclusion.
// It is the path taken by automated replies.
func (r *MessageRouter) Deliver(ctx context.Context, conversationID, senderID, content string) (domain.Message, error) {
	message, err := r.persist(ctx, conversationID, senderID, content)
	if err != nil {
		return domain.Message{}, fmt.Errorf("deliver to conversation %s: %w", conversationID, err)
	}
	r.broadcast(message, nil)
	return message, nil
}

func (r *MessageRouter) persist(ctx context.Context, conversationID, senderID, content string) (domain.Message, error) {
	if r.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.storeTimeout)
		defer cancel()
	}
	return r.store.Create(ctx, conversationID, senderID, content)
}

// broadcast skips exclude when it is not nil. A session that cannot take the
// frame is left to its transport, which closes it.
func (r *MessageRouter) broadcast(message domain.Message, exclude *Session) int {
	payload, err := domain.EncodeNewMessage(message)
	if err != nil {
		r.log.Error("Unable to encode message", "message_id", message.ID, "error", err)
		return 0
	}

	delivered := 0
	for s := range r.registry.ForEachSubscribedTo(message.ConversationID) {
		if s == exclude {
			continue
		}
		if err := s.Send(payload); err != nil {
			r.log.Debug("Message not queued", "session_id", s.ID, "message_id", message.ID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// considerReply does not wait for the replier and outlives ctx.
func (r *MessageRouter) considerReply(ctx context.Context, message domain.Message) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("Auto reply panicked", "conversation_id", message.ConversationID, "error", fmt.Sprintf("%v", rec))
			}
		}()
		r.replier.Consider(ctx, message.ConversationID, message.Content)
	}()
}
