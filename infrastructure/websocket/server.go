package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"listing-chat/runtime"

	"github.com/gorilla/websocket"
)

const reasonSessionClosed = "session closed"

type Options struct {
	SendBufferSize int
	ReadLimit      int64
	PongWait       time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 128
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 * 1024
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	return o
}

// Handler upgrades HTTP requests and feeds every received frame to the hub.
// Authentication happens in-band through the first auth frame.
type Handler struct {
	log      *slog.Logger
	hub      *runtime.Hub
	options  Options
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, hub *runtime.Hub, options Options) *Handler {
	return &Handler{
		log:     log,
		hub:     hub,
		options: options.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers of any origin may connect, credentials are checked in-band.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response
		h.log.Debug("Websocket upgrade failed", "error", err)
		return
	}

	pingPeriod := h.options.PongWait * 9 / 10
	conn := NewConnection(ws, h.log, h.options.SendBufferSize, pingPeriod)
	conn.Start()
	session := h.hub.Open(conn)
	defer func() {
		h.hub.Close(session)
		conn.Close(reasonSessionClosed)
	}()

	ws.SetReadLimit(h.options.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.options.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.options.PongWait))
	})

	ctx := r.Context()
	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.log.Debug("Websocket read failed", "session_id", session.ID, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.hub.Handle(ctx, session, data)
		if session.Closed() {
			return
		}
	}
}
