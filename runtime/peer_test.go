package runtime

import (
	"encoding/json"
	"sync"
	"testing"

	"listing-chat/domain"
	"listing-chat/errors"

	"github.com/stretchr/testify/require"
)

// fakePeer records what the hub sends and how it was closed.
type fakePeer struct {
	mu       sync.Mutex
	sent     [][]byte
	reason   string
	done     chan struct{}
	once     sync.Once
	failSend bool
}

func newFakePeer() *fakePeer {
	return &fakePeer{done: make(chan struct{})}
}

func (p *fakePeer) Send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		return errors.ErrConnectionClosed
	default:
	}
	if p.failSend {
		return errors.ErrSendBufferFull
	}
	p.sent = append(p.sent, payload)
	return nil
}

func (p *fakePeer) Close(reason string) {
	p.once.Do(func() {
		p.mu.Lock()
		p.reason = reason
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *fakePeer) Done() <-chan struct{} {
	return p.done
}

func (p *fakePeer) closeReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

func (p *fakePeer) messages(t *testing.T) []domain.MessagePayload {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MessagePayload, 0, len(p.sent))
	for _, raw := range p.sent {
		var frame domain.NewMessageFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		require.Equal(t, domain.KindNewMessage, frame.Kind)
		out = append(out, frame.Message)
	}
	return out
}

func (p *fakePeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func authFrame(credential, conversationID string) []byte {
	raw, _ := json.Marshal(map[string]string{
		"kind":           string(domain.KindAuth),
		"credential":     credential,
		"conversationId": conversationID,
	})
	return raw
}

func chatFrame(conversationID, content string) []byte {
	raw, _ := json.Marshal(map[string]string{
		"kind":           string(domain.KindMessage),
		"conversationId": conversationID,
		"content":        content,
	})
	return raw
}

// authenticated returns a registered, subscribed session without going through a verifier.
func authenticated(registry *Registry, peer *fakePeer, identity domain.Identity, conversationID string) *Session {
	s := NewSession(peer)
	registry.Register(s)
	s.authenticate(identity, conversationID)
	registry.Subscribe(s, conversationID)
	return s
}
