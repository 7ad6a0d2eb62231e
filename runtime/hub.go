package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"listing-chat/contract"
	"listing-chat/domain"
)

const (
	reasonAuthTimeout = "authentication timeout"
	reasonShutdown    = "server shutting down"
)

// Hub is the entry point of the transport: it owns the lifecycle of every
// session and dispatches the frames they receive.
type Hub struct {
	log         *slog.Logger
	registry    *Registry
	handshake   *Handshake
	router      *MessageRouter
	parser      domain.FrameParser
	authTimeout time.Duration
}

func NewHub(
	log *slog.Logger,
	registry *Registry,
	handshake *Handshake,
	router *MessageRouter,
	parser domain.FrameParser,
	authTimeout time.Duration,
) *Hub {
	return &Hub{
		log:         log,
		registry:    registry,
		handshake:   handshake,
		router:      router,
		parser:      parser,
		authTimeout: authTimeout,
	}
}

// Open registers a new Unauthenticated session for peer.
// With a positive auth timeout, a session still Unauthenticated when it
// expires is closed.
func (h *Hub) Open(peer contract.Peer) *Session {
	s := NewSession(peer)
	h.registry.Register(s)
	h.log.Debug("Connection opened", "session_id", s.ID)

	if h.authTimeout > 0 {
		timer := time.AfterFunc(h.authTimeout, func() {
			if !s.Authenticated() && !s.Closed() {
				h.log.Info("Connection not authenticated in time", "session_id", s.ID, "timeout", h.authTimeout)
				h.registry.Unregister(s)
				s.Close(reasonAuthTimeout)
			}
		})
		go func() {
			<-s.Done()
			timer.Stop()
		}()
	}
	return s
}

// Handle processes one inbound frame. The transport calls it from the
// connection's read loop, so frames of a session are handled in order.
// A chat frame is only routed to the session's subscribed conversation;
// one naming another conversation is logged and dropped, never persisted.
func (h *Hub) Handle(ctx context.Context, s *Session, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Frame handling panicked", "session_id", s.ID, "error", fmt.Sprintf("%v", r))
		}
	}()

	if s.Closed() {
		return
	}

	switch frame := h.parser.Parse(raw).(type) {
	case domain.AuthFrame:
		if s.Authenticated() {
			h.log.Debug("Auth frame ignored, session already authenticated", "session_id", s.ID)
			return
		}
		_ = h.handshake.Authenticate(ctx, s, frame)
	case domain.ChatFrame:
		if !s.Authenticated() {
			return
		}
		if frame.ConversationID != s.ConversationID() {
			h.log.Warn("Chat frame for another conversation dropped",
				"session_id", s.ID,
				"subscribed", s.ConversationID(),
				"conversation_id", frame.ConversationID)
			return
		}
		h.router.Route(ctx, s, frame.ConversationID, frame.Content)
	case domain.Unrecognized:
		h.log.Debug("Frame dropped", "session_id", s.ID, "reason", frame.Reason)
	}
}

// Close forgets a session whose connection is gone.
func (h *Hub) Close(s *Session) {
	h.registry.Unregister(s)
	h.log.Debug("Connection closed", "session_id", s.ID, "duration", time.Since(s.OpenedAt))
}

// Shutdown closes every live session.
func (h *Hub) Shutdown() {
	n := h.registry.CloseAll(reasonShutdown)
	h.log.Info("Hub shut down", "closed_sessions", n)
}

// Live is the number of open sessions.
func (h *Hub) Live() int {
	return h.registry.Len()
}
