package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Artiu/league-voice-backend/domain"
	"github.com/Artiu/league-voice-backend/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	inboxSize      = 16
)

type Conn struct {
	domain.Lifecycle

	id       string
	identity domain.Identity
	ws       *websocket.Conn
	send     chan []byte
	inbox    chan []byte
	handler  domain.MessageHandler
	limiter  *rate.Limiter
	onClose  func(domain.Connection)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConn wraps an upgraded socket. A nil limiter disables the inbound
// flood guard.
func NewConn(id string, ws *websocket.Conn, h domain.MessageHandler, limiter *rate.Limiter) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, 256),
		inbox:   make(chan []byte, inboxSize),
		handler: h,
		limiter: limiter,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Conn) ID() string                { return c.id }
func (c *Conn) Identity() domain.Identity { return c.identity }
func (c *Conn) Context() context.Context  { return c.ctx }

// bind attaches the authenticated identity. It is called once, before
// Start, and never changes afterwards.
func (c *Conn) bind(id domain.Identity) {
	c.identity = id
}

func (c *Conn) Send(data []byte) error {
	if c.ctx.Err() != nil {
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Close() error {
	c.cancel()
	return c.ws.Close()
}

// Start runs the pumps. onClose is called exactly once, after the
// connection's context has been cancelled and on the goroutine that runs
// the handler, so it never overlaps an event of the same connection.
func (c *Conn) Start(onClose func(domain.Connection)) {
	c.onClose = onClose
	go c.writePump()
	go c.processLoop()
	go c.readPump()
}

// reject answers a failed handshake and closes the socket. Nothing else
// is ever written to a rejected connection.
func (c *Conn) reject(reason string) {
	defer c.ws.Close()
	defer c.cancel()
	_ = c.Transition(domain.StateDisconnected)

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, protocol.RejectEvent(reason)); err != nil {
		return
	}
	c.closeWith(websocket.ClosePolicyViolation, reason)
}

func (c *Conn) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (c *Conn) readPump() {
	defer func() {
		c.cancel()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "connectionId", c.id, "error", err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			slog.Warn("message rate exceeded", "connectionId", c.id, "identity", c.identity.Name)
			c.closeWith(websocket.ClosePolicyViolation, domain.ReasonRateLimit)
			return
		}

		select {
		case c.inbox <- data:
		case <-c.ctx.Done():
			return
		}
	}
}

// processLoop hands messages to the handler one at a time, so a
// connection's events are applied in the order they arrived. The
// disconnect is the last of them.
func (c *Conn) processLoop() {
	defer func() {
		if c.onClose != nil {
			c.onClose(c)
		}
	}()

	for {
		select {
		case data := <-c.inbox:
			if c.ctx.Err() != nil {
				return
			}
			c.handler.Handle(c, data)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
