// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package websocket

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minglehq/mingle/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// inboundFrameLimit caps client frames per sliding 10s window.
	inboundFrameLimit = 50

	// actionTimeout bounds one chat engine call made on behalf of a frame.
	actionTimeout = 10 * time.Second
)

// clientIDCounter hands out monotonically increasing client ids so fan-out
// can iterate subscribers in a reproducible order.
var clientIDCounter atomic.Uint64

// Client owns one WebSocket connection for one authenticated user.
type Client struct {
	id     uint64
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan OutboundFrame

	// channels this client is subscribed to, guarded by the hub mutex.
	channels map[string]bool
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		userID:   userID,
		hub:      hub,
		conn:     conn,
		send:     make(chan OutboundFrame, 64),
		channels: make(map[string]bool),
	}
}

// Start registers the client with the hub and begins the pumps.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *Client) throttleKey() string {
	return strconv.FormatUint(c.id, 10)
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame InboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("user_id", c.userID).Msg("Unexpected WebSocket close")
			}
			return
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame InboundFrame) {
	if frame.Action == ActionPing {
		c.reply(OutboundFrame{Type: FrameTypePong})
		return
	}

	if !c.hub.allowInbound(c) {
		c.reply(errorFrame("rate limit exceeded"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch frame.Action {
	case ActionSubscribe:
		if err := c.hub.engine.CheckMembership(ctx, frame.RoomID, c.userID); err != nil {
			c.reply(errorFrame(publicError(err)))
			return
		}
		c.hub.subscribe(c, frame.RoomID)
		c.reply(ackFrame(ActionSubscribe, frame.RoomID))

	case ActionUnsubscribe:
		c.hub.unsubscribe(c, frame.RoomID)
		c.reply(ackFrame(ActionUnsubscribe, frame.RoomID))

	case ActionSend:
		// The resulting event arrives through the broadcast channel like
		// everyone else's copy; only failures are replied directly.
		if _, err := c.hub.engine.SendText(ctx, frame.RoomID, c.userID, frame.Content); err != nil {
			c.reply(errorFrame(publicError(err)))
		}

	case ActionRead:
		if err := c.hub.engine.MarkRead(ctx, frame.RoomID, c.userID); err != nil {
			c.reply(errorFrame(publicError(err)))
		}

	default:
		c.reply(errorFrame("unknown action"))
	}
}

// reply queues a direct frame to this client, dropping it if the buffer is
// full; the write pump owns disconnect decisions.
func (c *Client) reply(frame OutboundFrame) {
	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// publicError maps engine errors to client-safe strings. Unexpected errors
// are reported generically so internals never leak onto the socket.
func publicError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "operation timed out"
	default:
		if msg := knownErrorMessage(err); msg != "" {
			return msg
		}
		return "internal error"
	}
}
