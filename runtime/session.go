package runtime

import (
	"sync"
	"time"

	"listing-chat/contract"
	"listing-chat/domain"

	"github.com/google/uuid"
)

// Session is the server side state of one live connection.
// It starts Unauthenticated and becomes Authenticated at most once;
// identity and subscription never change afterwards.
type Session struct {
	ID       string
	OpenedAt time.Time
	peer     contract.Peer

	mu             sync.RWMutex
	authenticated  bool
	identity       domain.Identity
	conversationID string
}

func NewSession(peer contract.Peer) *Session {
	return &Session{ID: uuid.NewString(), OpenedAt: time.Now(), peer: peer}
}

// authenticate returns false when the session was already authenticated.
func (s *Session) authenticate(identity domain.Identity, conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticated {
		return false
	}
	s.authenticated = true
	s.identity = identity
	s.conversationID = conversationID
	return true
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Session) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// ConversationID is empty until the session is authenticated.
func (s *Session) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

func (s *Session) Send(payload []byte) error {
	return s.peer.Send(payload)
}

func (s *Session) Close(reason string) {
	s.peer.Close(reason)
}

func (s *Session) Done() <-chan struct{} {
	return s.peer.Done()
}

func (s *Session) Closed() bool {
	select {
	case <-s.peer.Done():
		return true
	default:
		return false
	}
}
