package websocket

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"listing-chat/auth"
	"listing-chat/autoreply"
	"listing-chat/domain"
	"listing-chat/repositories"
	"listing-chat/runtime"
	"listing-chat/search"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "websocket-test-secret"
	replyDelay = 50 * time.Millisecond
)

type chatServer struct {
	url           string
	registry      *runtime.Registry
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	index         *search.Index
	scheduler     *autoreply.Scheduler
}

func newChatServer(t *testing.T, options Options) chatServer {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	req.NoError(err)
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)

	conversations := repositories.NewConversationRepository(db, log)
	messages := repositories.NewMessageRepository(db, log, nil)
	index := search.NewIndex(writer, log)
	store := repositories.NewIndexedMessageStore(messages, index, log)

	registry := runtime.NewRegistry()
	router := runtime.NewMessageRouter(log, store, registry, time.Second)
	matcher, err := autoreply.NewMatcher(autoreply.DefaultRules)
	req.NoError(err)
	scheduler := autoreply.NewScheduler(log)
	router.UseAutoReplier(autoreply.NewEngine(log, conversations, router, matcher, scheduler, replyDelay, time.Second))

	verifier := auth.NewVerifier([]byte(testSecret))
	hub := runtime.NewHub(log, registry, runtime.NewHandshake(log, verifier, registry), router, domain.NewFrameParser(1000), 0)
	server := httptest.NewServer(NewHandler(log, hub, options))

	t.Cleanup(func() {
		hub.Shutdown()
		server.Close()
		_ = scheduler.Shutdown(context.Background())
		_ = writer.Close()
		_ = db.Close()
	})

	return chatServer{
		url:           "ws" + strings.TrimPrefix(server.URL, "http"),
		registry:      registry,
		conversations: conversations,
		messages:      messages,
		index:         index,
		scheduler:     scheduler,
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken([]byte(testSecret), userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func send(t *testing.T, ws *websocket.Conn, frame map[string]string) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(frame))
}

func receive(t *testing.T, ws *websocket.Conn) domain.MessagePayload {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame domain.NewMessageFrame
	require.NoError(t, ws.ReadJSON(&frame))
	require.Equal(t, domain.KindNewMessage, frame.Kind)
	return frame.Message
}

func TestWebsocket_Inquiry_And_Automated_Reply(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := newChatServer(t, Options{})

	conversation, _, err := server.conversations.FindOrCreate(ctx, "listing-1", "S1", "O1")
	req.NoError(err)

	inquirer := dial(t, server.url)
	owner := dial(t, server.url)
	send(t, inquirer, map[string]string{"kind": "auth", "credential": token(t, "S1", domain.RoleInquirer), "conversationId": conversation.ID})
	send(t, owner, map[string]string{"kind": "auth", "credential": token(t, "O1", domain.RoleOwner), "conversationId": conversation.ID})
	req.Eventually(func() bool { return server.registry.Subscribed(conversation.ID) == 2 }, 2*time.Second, 5*time.Millisecond)

	send(t, inquirer, map[string]string{"kind": "message", "conversationId": conversation.ID, "content": "Is this apartment still available?"})

	// The owner gets the inquiry immediately
	inquiry := receive(t, owner)
	req.Equal("S1", inquiry.SenderID)
	req.Equal("Is this apartment still available?", inquiry.Content)

	// Both sides then get the automated reply authored by the owner; the inquirer gets no echo
	reply := receive(t, inquirer)
	req.Equal("O1", reply.SenderID)
	req.Equal(autoreply.DefaultRules[0].Reply, reply.Content)
	req.GreaterOrEqual(reply.CreatedAt.Sub(inquiry.CreatedAt), replyDelay)
	req.Equal(reply, receive(t, owner))

	// Both messages are persisted in order and searchable
	history, _, err := server.messages.GetMessages(ctx, conversation.ID, nil)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("S1", history[0].SenderID)
	req.Equal("O1", history[1].SenderID)

	hits, err := server.index.Search(ctx, conversation.ID, "apartment", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(inquiry.ID, hits[0].MessageID)
}

func TestWebsocket_Invalid_Credential_Closes_Connection(t *testing.T) {
	req := require.New(t)
	server := newChatServer(t, Options{})

	ws := dial(t, server.url)
	send(t, ws, map[string]string{"kind": "auth", "credential": "forged", "conversationId": "c1"})

	req.NoError(ws.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := ws.ReadMessage()
	req.Error(err)
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
	req.Eventually(func() bool { return server.registry.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWebsocket_Malformed_Frames_Are_Tolerated(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := newChatServer(t, Options{})

	conversation, _, err := server.conversations.FindOrCreate(ctx, "listing-1", "S1", "O1")
	req.NoError(err)

	owner := dial(t, server.url)
	inquirer := dial(t, server.url)
	req.NoError(inquirer.WriteMessage(websocket.TextMessage, []byte("{not json")))
	send(t, inquirer, map[string]string{"kind": "message", "conversationId": conversation.ID, "content": "too early"})
	send(t, owner, map[string]string{"kind": "auth", "credential": token(t, "O1", domain.RoleOwner), "conversationId": conversation.ID})
	send(t, inquirer, map[string]string{"kind": "auth", "credential": token(t, "S1", domain.RoleInquirer), "conversationId": conversation.ID})
	req.Eventually(func() bool { return server.registry.Subscribed(conversation.ID) == 2 }, 2*time.Second, 5*time.Millisecond)
	req.NoError(inquirer.WriteMessage(websocket.TextMessage, []byte(`{"kind":"typing"}`)))

	send(t, inquirer, map[string]string{"kind": "message", "conversationId": conversation.ID, "content": "See you Monday"})

	got := receive(t, owner)
	req.Equal("See you Monday", got.Content)

	// The frame sent before authentication was never stored
	history, _, err := server.messages.GetMessages(ctx, conversation.ID, nil)
	req.NoError(err)
	req.Len(history, 1)
}

func TestWebsocket_Disconnect_Unregisters(t *testing.T) {
	req := require.New(t)
	server := newChatServer(t, Options{})

	ws := dial(t, server.url)
	req.Eventually(func() bool { return server.registry.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	req.NoError(ws.Close())
	req.Eventually(func() bool { return server.registry.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestConnection_Send_After_Close(t *testing.T) {
	req := require.New(t)
	server := newChatServer(t, Options{})
	ws := dial(t, server.url)

	conn := NewConnection(ws, slog.Default(), 1, time.Minute)
	conn.Close("bye")

	req.ErrorContains(conn.Send([]byte("x")), "closed")
	select {
	case <-conn.Done():
	default:
		req.Fail("connection should be done")
	}
}

func TestConnection_Full_Buffer_Closes(t *testing.T) {
	req := require.New(t)
	server := newChatServer(t, Options{})
	ws := dial(t, server.url)

	// The write loop is not started, so the buffer never drains
	conn := NewConnection(ws, slog.Default(), 1, time.Minute)
	req.NoError(conn.Send([]byte("first")))
	req.ErrorContains(conn.Send([]byte("second")), "buffer")
	<-conn.Done()
}
