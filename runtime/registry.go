package runtime

import (
	"iter"
	"sync"
)

type Set map[string]struct{}

// Registry tracks live sessions and, for authenticated ones, the conversation
// they listen to. Both maps are updated under the same lock so that a
// reader never sees a session in one and not the other.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session // session id -> session
	subscribers map[string]Set      // conversation id -> session ids
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		subscribers: make(map[string]Set),
	}
}

func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Subscribe adds a registered session to the listeners of a conversation.
// It returns false when the session is no longer registered, which happens
// when the connection dropped while its credential was being verified.
func (r *Registry) Subscribe(s *Session, conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; !ok {
		return false
	}
	if _, ok := r.subscribers[conversationID]; !ok {
		r.subscribers[conversationID] = make(Set)
	}
	r.subscribers[conversationID][s.ID] = struct{}{}
	return true
}

// Unregister removes the session and its subscription, if any.
// Empty conversation entries are dropped so the index does not grow forever.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, s.ID)

	conversationID := s.ConversationID()
	if members, ok := r.subscribers[conversationID]; ok {
		delete(members, s.ID)
		if len(members) == 0 {
			delete(r.subscribers, conversationID)
		}
	}
}

// ForEachSubscribedTo yields the live sessions subscribed to a conversation.
// The member list is captured when the call is made; a session closed while
// the caller iterates is skipped.
func (r *Registry) ForEachSubscribedTo(conversationID string) iter.Seq[*Session] {
	r.mu.RLock()
	members := r.subscribers[conversationID]
	snapshot := make([]*Session, 0, len(members))
	for id := range members {
		if s, ok := r.sessions[id]; ok {
			snapshot = append(snapshot, s)
		}
	}
	r.mu.RUnlock()

	return func(yield func(*Session) bool) {
		for _, s := range snapshot {
			if s.Closed() {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Len counts every registered session, authenticated or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Subscribed(conversationID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[conversationID])
}

func (r *Registry) Contains(s *Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[s.ID]
	return ok
}

// CloseAll closes and forgets every session.
func (r *Registry) CloseAll(reason string) int {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.subscribers = make(map[string]Set)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close(reason)
	}
	return len(sessions)
}
