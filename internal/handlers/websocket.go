package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/signalhub/config"
	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("send buffer full")
	ErrClosed       = errors.New("connection closed")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client is one websocket connection
type Client struct {
	ID   session.ID
	Conn *websocket.Conn
	cfg  config.WSConfig

	mu     sync.RWMutex
	send   chan []byte
	closed bool
}

func newClient(id session.ID, conn *websocket.Conn, cfg config.WSConfig) *Client {
	return &Client{
		ID:   id,
		Conn: conn,
		cfg:  cfg,
		send: make(chan []byte, cfg.SendQueue),
	}
}

// TrySend queues data without blocking
func (c *Client) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close stops the write pump, which sends a close frame and then closes the
// socket. Safe to call repeatedly.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// SignalingHandler upgrades /ws requests and attaches them to the hub
type SignalingHandler struct {
	hub *Hub
	cfg config.WSConfig
	ctx context.Context
}

func NewSignalingHandler(ctx context.Context, hub *Hub, cfg config.WSConfig) *SignalingHandler {
	return &SignalingHandler{hub: hub, cfg: cfg.WithDefaults(), ctx: ctx}
}

// HandleSignaling handles WebSocket connections for signaling
func (h *SignalingHandler) HandleSignaling(c *gin.Context) {
	origin := requestOrigin(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("failed to upgrade connection")
		return
	}

	client := newClient(h.hub.NewSessionID(), conn, h.cfg)
	if err := h.hub.enqueue(h.ctx, hubOp{kind: opConnect, client: client, origin: origin}); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("hub unavailable, dropping connection")
		client.Close()
		_ = conn.Close()
		return
	}
	log.Debug().Str("module", "ws").Str("sid", string(client.ID)).Str("remote", c.ClientIP()).Msg("connection opened")

	go client.writePump()
	go client.readPump(h.ctx, h.hub)
}

func (c *Client) readPump(ctx context.Context, hub *Hub) {
	defer func() {
		// The hub may already be gone during shutdown; close locally then.
		if err := hub.enqueue(context.Background(), hubOp{kind: opClosed, client: c}); err != nil {
			c.Close()
		}
		log.Debug().Str("module", "ws").Str("sid", string(c.ID)).Msg("connection closed")
	}()

	c.Conn.SetReadLimit(c.cfg.ReadLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("module", "ws").Str("sid", string(c.ID)).Msg("websocket error")
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			log.Debug().Str("module", "ws").Str("sid", string(c.ID)).Msg("ignoring malformed frame")
			continue
		}
		if err := hub.enqueue(ctx, hubOp{kind: opFrame, client: c, env: env}); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("module", "ws").Str("sid", string(c.ID)).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
