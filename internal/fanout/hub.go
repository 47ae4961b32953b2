package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub is the in-process fan-out driver: clients connect over WebSocket
// and receive every event published on their game's channel. It stands
// in for the hosted relay in single-node and dev deployments.
type Hub struct {
	gameConnections map[int64]map[*Connection]bool
	mu              sync.RWMutex

	upgrader    websocket.Upgrader
	config      HubConfig
	broadcastCh chan broadcast
}

// Connection is one subscribed WebSocket client.
type Connection struct {
	ID       string
	GameCode int64
	Conn     *websocket.Conn
	Send     chan []byte
	hub      *Hub
}

// HubConfig holds WebSocket connection settings.
type HubConfig struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcast struct {
	gameCode int64
	data     []byte
}

// DefaultHubConfig returns default WebSocket settings.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewHub creates a hub.
func NewHub(config HubConfig) *Hub {
	return &Hub{
		gameConnections: make(map[int64]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcast, 1000),
	}
}

// Start processes broadcasts until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("fanout hub started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("fanout hub shutting down")
			h.closeAll()
			return
		case b := <-h.broadcastCh:
			h.handleBroadcast(b)
		}
	}
}

// Send implements Publisher. Events go through the broadcast channel so
// slow clients never block the caller.
func (h *Hub) Send(ctx context.Context, channel int64, event Event) Delivery {
	data, err := json.Marshal(event)
	if err != nil {
		return Delivery{Err: fmt.Errorf("marshal event: %w", err)}
	}

	select {
	case h.broadcastCh <- broadcast{gameCode: channel, data: data}:
		return delivered
	default:
		log.Warn().Int64("game_code", channel).Msg("broadcast channel full, dropping event")
		return Delivery{StatusCode: http.StatusServiceUnavailable, Err: fmt.Errorf("broadcast channel full")}
	}
}

// Subscribe upgrades an HTTP request to a WebSocket subscription on the
// game's channel.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, gameCode int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	c := &Connection{
		ID:       uuid.New().String(),
		GameCode: gameCode,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		hub:      h,
	}
	h.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Int64("game_code", gameCode).
		Msg("websocket subscriber connected")

	return nil
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.gameConnections[c.GameCode] == nil {
		h.gameConnections[c.GameCode] = make(map[*Connection]bool)
	}
	h.gameConnections[c.GameCode][c] = true
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.gameConnections[c.GameCode]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.Send)
			if len(conns) == 0 {
				delete(h.gameConnections, c.GameCode)
			}
		}
	}
}

// handleBroadcast delivers one event to every subscriber of the game.
// Sends happen under the read lock: Send channels are only ever closed
// under the write lock, so a send can never race a close. Connections
// with a full buffer are dropped after the lock is released.
func (h *Hub) handleBroadcast(b broadcast) {
	h.mu.RLock()
	var stale []*Connection
	for c := range h.gameConnections[b.gameCode] {
		select {
		case c.Send <- b.data:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		log.Warn().Str("connection_id", c.ID).Msg("send buffer full, closing connection")
		h.unregister(c)
		c.Conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for code, conns := range h.gameConnections {
		for c := range conns {
			close(c.Send)
			c.Conn.Close()
		}
		delete(h.gameConnections, code)
	}
}

// writePump sends broadcasts and pings to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the channel is push-only. It exists
// to notice closes and answer pongs.
func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.PongTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.PongTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
