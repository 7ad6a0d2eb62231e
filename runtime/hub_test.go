package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"listing-chat/autoreply"
	"listing-chat/domain"
	"listing-chat/errors"
	"listing-chat/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type hubFixture struct {
	hub       *Hub
	registry  *Registry
	verifier  *mocks.MockTokenVerifier
	store     *mocks.MockMessageStore
	convStore *mocks.MockConversationStore
	scheduler *autoreply.Scheduler
}

func newHubFixture(t *testing.T, authTimeout, replyDelay time.Duration) hubFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	f := hubFixture{
		registry:  NewRegistry(),
		verifier:  mocks.NewMockTokenVerifier(ctrl),
		store:     mocks.NewMockMessageStore(ctrl),
		convStore: mocks.NewMockConversationStore(ctrl),
		scheduler: autoreply.NewScheduler(log),
	}
	router := NewMessageRouter(log, f.store, f.registry, time.Second)
	matcher, err := autoreply.NewMatcher(autoreply.DefaultRules)
	require.NoError(t, err)
	router.UseAutoReplier(autoreply.NewEngine(log, f.convStore, router, matcher, f.scheduler, replyDelay, time.Second))

	f.hub = NewHub(log, f.registry, NewHandshake(log, f.verifier, f.registry), router, domain.NewFrameParser(1000), authTimeout)
	return f
}

func (f hubFixture) connect(t *testing.T, credential string, identity domain.Identity, conversationID string) (*Session, *fakePeer) {
	t.Helper()
	peer := newFakePeer()
	s := f.hub.Open(peer)
	f.verifier.EXPECT().Verify(gomock.Any(), credential).Return(identity, nil)
	f.hub.Handle(context.Background(), s, authFrame(credential, conversationID))
	require.True(t, s.Authenticated())
	return s, peer
}

func TestHub_Chat_Before_Auth_Is_Ignored(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, time.Millisecond)

	peer := newFakePeer()
	s := f.hub.Open(peer)

	// store has no expectation: routing would fail the test
	f.hub.Handle(context.Background(), s, chatFrame("c1", "still available?"))

	req.False(s.Authenticated())
	req.False(s.Closed())
	req.True(f.registry.Contains(s))
}

func TestHub_Invalid_Credential_Closes_Connection(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, time.Millisecond)

	peer := newFakePeer()
	s := f.hub.Open(peer)
	f.verifier.EXPECT().Verify(gomock.Any(), "forged").
		Return(domain.Identity{}, fmt.Errorf("%w: bad signature", errors.ErrInvalidToken))

	f.hub.Handle(context.Background(), s, authFrame("forged", "c1"))

	req.True(s.Closed())
	req.Equal(reasonAuthFailed, peer.closeReason())
	req.Equal(0, f.hub.Live())

	// No further frame is processed
	f.hub.Handle(context.Background(), s, authFrame("another", "c1"))
	f.hub.Handle(context.Background(), s, chatFrame("c1", "hello"))
}

func TestHub_Malformed_Frames_Keep_Connection_Open(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, time.Millisecond)
	s, _ := f.connect(t, "token", inquirer, "c1")

	for _, raw := range [][]byte{
		[]byte("not json"),
		[]byte(`{"kind":"typing"}`),
		[]byte(`{"kind":"message","conversationId":"c1"}`),
		[]byte(`{"kind":"auth"}`),
	} {
		f.hub.Handle(context.Background(), s, raw)
	}

	req.False(s.Closed())
	req.True(f.registry.Contains(s))
}

func TestHub_Second_Auth_Frame_Is_Ignored(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, time.Millisecond)
	s, _ := f.connect(t, "token", inquirer, "c1")

	// verifier has no second expectation
	f.hub.Handle(context.Background(), s, authFrame("other-token", "c2"))

	req.Equal("c1", s.ConversationID())
	req.Equal(inquirer, s.Identity())
	req.Equal(0, f.registry.Subscribed("c2"))
}

func TestHub_Chat_For_Another_Conversation_Is_Dropped(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, time.Millisecond)
	s, _ := f.connect(t, "t1", inquirer, "c1")
	_, other := f.connect(t, "t2", owner, "c2")

	// Never persisted
	f.store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.hub.Handle(context.Background(), s, chatFrame("c2", "is this still available?"))

	req.Zero(other.count())
	req.False(s.Closed())
	req.Equal(0, f.scheduler.Pending())
}

func TestHub_Auth_Timeout_Closes_Idle_Connection(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 20*time.Millisecond, time.Millisecond)

	peer := newFakePeer()
	s := f.hub.Open(peer)

	req.Eventually(s.Closed, time.Second, 5*time.Millisecond)
	req.Equal(reasonAuthTimeout, peer.closeReason())
	req.False(f.registry.Contains(s))
}

func TestHub_Auth_Timeout_Spares_Authenticated_Connection(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 20*time.Millisecond, time.Millisecond)
	s, _ := f.connect(t, "token", inquirer, "c1")

	time.Sleep(50 * time.Millisecond)
	req.False(s.Closed())
}

func TestHub_Close_Unregisters(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, time.Millisecond)
	s, _ := f.connect(t, "token", inquirer, "c1")

	f.hub.Close(s)

	req.Equal(0, f.hub.Live())
	req.Equal(0, f.registry.Subscribed("c1"))
}

func TestHub_Shutdown_Closes_Every_Session(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, time.Millisecond)
	_, p1 := f.connect(t, "t1", inquirer, "c1")
	p2 := newFakePeer()
	f.hub.Open(p2)

	f.hub.Shutdown()

	req.Equal(reasonShutdown, p1.closeReason())
	req.Equal(reasonShutdown, p2.closeReason())
	req.Equal(0, f.hub.Live())
}

// memoryMessages is a concurrency safe MessageStore stand-in for the scenarios below.
type memoryMessages struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (m *memoryMessages) create(ctx context.Context, conversationID, senderID, content string) (domain.Message, error) {
	message, _ := storedMessage(ctx, conversationID, senderID, content)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return message, nil
}

func (m *memoryMessages) all() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.messages...)
}

func TestHub_Inquiry_Gets_Delayed_Owner_Reply(t *testing.T) {
	req := require.New(t)
	const delay = 50 * time.Millisecond
	f := newHubFixture(t, 0, delay)
	stored := &memoryMessages{}
	f.store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(stored.create).AnyTimes()
	f.convStore.EXPECT().FindByID(gomock.Any(), "c1").
		Return(domain.Conversation{ID: "c1", ListingID: "l1", InquirerID: "s1", OwnerID: "o1"}, nil)

	inquirerSession, inquirerPeer := f.connect(t, "inquirer-token", inquirer, "c1")
	_, ownerPeer := f.connect(t, "owner-token", owner, "c1")

	f.hub.Handle(context.Background(), inquirerSession, chatFrame("c1", "Is this apartment still available?"))

	// The human message reaches the owner right away, never the sender
	got := ownerPeer.messages(t)
	req.Len(got, 1)
	req.Equal("s1", got[0].SenderID)
	req.Equal("Is this apartment still available?", got[0].Content)
	req.Zero(inquirerPeer.count())

	// Then the automated reply reaches both sides, authored by the owner
	req.Eventually(func() bool { return inquirerPeer.count() == 1 && ownerPeer.count() == 2 }, time.Second, 5*time.Millisecond)
	reply := inquirerPeer.messages(t)[0]
	req.Equal("o1", reply.SenderID)
	req.Equal(autoreply.DefaultRules[0].Reply, reply.Content)
	req.Equal(reply, ownerPeer.messages(t)[1])

	messages := stored.all()
	req.Len(messages, 2)
	req.GreaterOrEqual(messages[1].CreatedAt.Sub(messages[0].CreatedAt), delay)
	req.NoError(f.scheduler.Shutdown(context.Background()))
}

func TestHub_Reply_Fires_After_Inquirer_Disconnects(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, 30*time.Millisecond)
	stored := &memoryMessages{}
	f.store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(stored.create).AnyTimes()
	f.convStore.EXPECT().FindByID(gomock.Any(), "c1").
		Return(domain.Conversation{ID: "c1", InquirerID: "s1", OwnerID: "o1"}, nil)

	inquirerSession, inquirerPeer := f.connect(t, "inquirer-token", inquirer, "c1")
	f.hub.Handle(context.Background(), inquirerSession, chatFrame("c1", "what's the contact number"))
	inquirerPeer.Close("client left")
	f.hub.Close(inquirerSession)

	req.Eventually(func() bool { return len(stored.all()) == 2 }, time.Second, 5*time.Millisecond)
	req.Equal(autoreply.DefaultRules[1].Reply, stored.all()[1].Content)
	req.Zero(inquirerPeer.count())
	req.NoError(f.scheduler.Shutdown(context.Background()))
}

func TestHub_Owner_Message_Gets_No_Reply(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, 10*time.Millisecond)
	stored := &memoryMessages{}
	f.store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(stored.create).AnyTimes()

	ownerSession, _ := f.connect(t, "owner-token", owner, "c1")
	_, inquirerPeer := f.connect(t, "inquirer-token", inquirer, "c1")

	f.hub.Handle(context.Background(), ownerSession, chatFrame("c1", "Yes it is still available, need help?"))

	time.Sleep(50 * time.Millisecond)
	req.Len(stored.all(), 1)
	req.Equal(1, inquirerPeer.count())
	req.NoError(f.scheduler.Shutdown(context.Background()))
}

func TestHub_Unmatched_Inquiry_Gets_No_Reply(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 0, 10*time.Millisecond)
	stored := &memoryMessages{}
	f.store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(stored.create).AnyTimes()
	f.convStore.EXPECT().FindByID(gomock.Any(), "c1").
		Return(domain.Conversation{ID: "c1", InquirerID: "s1", OwnerID: "o1"}, nil)

	inquirerSession, _ := f.connect(t, "inquirer-token", inquirer, "c1")
	f.hub.Handle(context.Background(), inquirerSession, chatFrame("c1", "Can I visit on Saturday?"))

	req.Eventually(func() bool { return len(stored.all()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	req.Len(stored.all(), 1)
	req.NoError(f.scheduler.Shutdown(context.Background()))
}
