package runtime

import (
	"context"
	"log/slog"

	"listing-chat/contract"
	"listing-chat/domain"
	"listing-chat/errors"
)

const reasonAuthFailed = "authentication failed"

// Handshake turns an Unauthenticated session into an Authenticated one,
// or closes it for good.
type Handshake struct {
	log      *slog.Logger
	verifier contract.TokenVerifier
	registry *Registry
}

func NewHandshake(log *slog.Logger, verifier contract.TokenVerifier, registry *Registry) *Handshake {
	return &Handshake{log: log, verifier: verifier, registry: registry}
}

// Authenticate verifies the frame's credential. On failure the session is
// unregistered and closed before the error is returned.
func (h *Handshake) Authenticate(ctx context.Context, s *Session, frame domain.AuthFrame) error {
	identity, err := h.verifier.Verify(ctx, frame.Credential)
	if err != nil {
		h.log.Warn("Authentication failed, closing connection", "session_id", s.ID, "error", err)
		h.registry.Unregister(s)
		s.Close(reasonAuthFailed)
		return err
	}

	if !s.authenticate(identity, frame.ConversationID) {
		h.log.Debug("Session already authenticated", "session_id", s.ID)
		return nil
	}
	if !h.registry.Subscribe(s, frame.ConversationID) {
		return errors.ErrConnectionClosed
	}

	h.log.Info("Session authenticated",
		"session_id", s.ID,
		"subject_id", identity.SubjectID,
		"role", identity.Role,
		"conversation_id", frame.ConversationID)
	return nil
}
