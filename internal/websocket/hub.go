package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/repositories"
	"github.com/pyronotes/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// cross-origin browsers are expected; the stream token gates access
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub tracks active live-session clients and holds their shared
// dependencies. Each client owns its session exclusively; the hub only
// does bookkeeping.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	live *usecase.LiveService
	stt  repositories.SpeechToText

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(live *usecase.LiveService, stt repositories.SpeechToText, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		live:       live,
		stt:        stt,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.lectureID] = client
			h.mu.Unlock()
			h.logger.Info("Session client registered", zap.String("lectureID", client.lectureID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.lectureID]; ok {
				delete(h.clients, client.lectureID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Session client unregistered", zap.String("lectureID", client.lectureID))
		}
	}
}

// HandleStream upgrades the request and runs a live session for the
// given lecture until the client finalizes or the transport drops.
func HandleStream(hub *Hub, c echo.Context, lectureID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan writeData, 256),
		lectureID: lectureID,
		session:   hub.live.Open(lectureID),
		logger:    logger,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}
