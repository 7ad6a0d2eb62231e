package autoreply

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"listing-chat/contract"
	apperrors "listing-chat/errors"
)

// Engine decides whether an inquirer message deserves an automated reply
// and schedules it. The reply is authored by the conversation's owner.
type Engine struct {
	log           *slog.Logger
	conversations contract.ConversationStore
	deliverer     contract.Deliverer
	matcher       *Matcher
	scheduler     *Scheduler
	delay         time.Duration
	storeTimeout  time.Duration
}

// NewEngine falls back to DefaultDelay when delay is not positive.
func NewEngine(
	log *slog.Logger,
	conversations contract.ConversationStore,
	deliverer contract.Deliverer,
	matcher *Matcher,
	scheduler *Scheduler,
	delay time.Duration,
	storeTimeout time.Duration,
) *Engine {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Engine{
		log:           log,
		conversations: conversations,
		deliverer:     deliverer,
		matcher:       matcher,
		scheduler:     scheduler,
		delay:         delay,
		storeTimeout:  storeTimeout,
	}
}

// Consider must only be called for messages written by an inquirer.
func (e *Engine) Consider(ctx context.Context, conversationID, content string) {
	lookupCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	conversation, err := e.conversations.FindByID(lookupCtx, conversationID)
	if errors.Is(err, apperrors.ErrConversationNotFound) {
		e.log.Debug("No conversation for auto reply", "conversation_id", conversationID)
		return
	}
	if err != nil {
		e.log.Warn("Unable to resolve conversation for auto reply", "conversation_id", conversationID, "error", err)
		return
	}

	rule, ok := e.matcher.Match(content)
	if !ok {
		return
	}

	payload := Payload{ConversationID: conversationID, SenderID: conversation.OwnerID, Content: rule.Reply}
	id := e.scheduler.Schedule(e.delay, payload, e.fire)
	e.log.Debug("Auto reply scheduled", "conversation_id", conversationID, "task_id", id, "delay", e.delay)
}

// fire runs detached from any connection, so failures can only be logged.
func (e *Engine) fire(payload Payload) {
	ctx, cancel := e.withTimeout(context.Background())
	defer cancel()

	message, err := e.deliverer.Deliver(ctx, payload.ConversationID, payload.SenderID, payload.Content)
	if err != nil {
		e.log.Warn("Auto reply dropped", "conversation_id", payload.ConversationID, "error", err)
		return
	}
	e.log.Debug("Auto reply delivered", "conversation_id", payload.ConversationID, "message_id", message.ID)
}

// Pending is the number of replies waiting for their delay.
func (e *Engine) Pending() int {
	return e.scheduler.Pending()
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.storeTimeout)
}
