// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minglehq/mingle/internal/cache"
	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/metrics"
	"github.com/minglehq/mingle/internal/models"
	"github.com/minglehq/mingle/internal/presence"
)

// Engine is the slice of the chat service the realtime layer needs.
type Engine interface {
	CheckMembership(ctx context.Context, roomID int64, userID string) error
	SendText(ctx context.Context, roomID int64, senderID, content string) (*models.ChatEvent, error)
	MarkRead(ctx context.Context, roomID int64, userID string) error
}

// Hub maintains the connected clients and their channel subscriptions and
// fans broadcast frames out to subscribers. It is the delivery sink for the
// fan-out bridge, so events published on any node reach the clients
// connected here.
type Hub struct {
	engine   Engine
	presence *presence.Tracker

	register   chan *Client
	unregister chan *Client
	broadcast  chan OutboundFrame
	stopped    chan struct{}

	// throttle counts inbound frames per connection over a sliding window.
	throttle *cache.SlidingWindowStore

	mu      sync.RWMutex
	clients map[*Client]bool
	subs    map[string]map[*Client]bool
}

// NewHub creates a hub bound to the chat engine and presence tracker.
func NewHub(engine Engine, tracker *presence.Tracker, broadcastBuffer int) *Hub {
	if broadcastBuffer <= 0 {
		broadcastBuffer = 256
	}
	return &Hub{
		engine:     engine,
		presence:   tracker,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan OutboundFrame, broadcastBuffer),
		stopped:    make(chan struct{}),
		throttle:   cache.NewSlidingWindowStore(10*time.Second, 10, 10000),
		clients:    make(map[*Client]bool),
		subs:       make(map[string]map[*Client]bool),
	}
}

// Serve runs the hub loop under supervision. Client lifecycle events are
// drained before broadcast frames so the subscriber set is always settled
// when a frame is fanned out.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.register:
			h.addClient(client)
			continue
		case client := <-h.unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case frame := <-h.broadcast:
			h.fanOut(frame)
		}
	}
}

func (h *Hub) String() string {
	return "websocket-hub"
}

// BroadcastChat delivers a chat event to the room's channel subscribers.
func (h *Hub) BroadcastChat(event *models.ChatEvent) {
	h.enqueue(OutboundFrame{
		Type:    FrameTypeChat,
		Channel: RoomChannel(event.RoomID),
		Data:    event,
	})
}

// BroadcastRead delivers a read receipt to the room's read channel.
func (h *Hub) BroadcastRead(event *models.ReadEvent) {
	h.enqueue(OutboundFrame{
		Type:    FrameTypeRead,
		Channel: ReadChannel(event.RoomID),
		Data:    event,
	})
}

func (h *Hub) enqueue(frame OutboundFrame) {
	select {
	case h.broadcast <- frame:
	default:
		// A wedged hub must not block the bridge; the event is already
		// durable and reachable through history.
		metrics.WSDroppedMessages.Inc()
		logging.Warn().Str("channel", frame.Channel).Msg("Broadcast queue full, frame dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().Str("user_id", client.userID).Int("total_clients", total).
		Msg("WebSocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for channel := range client.channels {
		h.dropSubscriptionLocked(client, channel)
	}
	total := len(h.clients)
	h.mu.Unlock()

	// The read pump has exited by the time its unregister handoff lands
	// here, so this is the only place send may be closed: nothing can
	// call reply for this client anymore.
	close(client.send)
	h.throttle.Remove(client.throttleKey())
	metrics.WSConnections.Dec()

	// The connection was this user's presence anchor; dropping it takes
	// them offline everywhere at once.
	h.presence.DisconnectAll(client.userID)
	logging.Info().Str("user_id", client.userID).Int("total_clients", total).
		Msg("WebSocket client disconnected")
}

// subscribe attaches the client to a room's chat and read channels and marks
// the user online in the room.
func (h *Hub) subscribe(client *Client, roomID int64) {
	h.mu.Lock()
	h.addSubscriptionLocked(client, RoomChannel(roomID))
	h.addSubscriptionLocked(client, ReadChannel(roomID))
	h.mu.Unlock()

	h.presence.Join(roomID, client.userID)
}

// unsubscribe detaches the client from a room's channels and marks the user
// offline in the room.
func (h *Hub) unsubscribe(client *Client, roomID int64) {
	h.mu.Lock()
	h.dropSubscriptionLocked(client, RoomChannel(roomID))
	h.dropSubscriptionLocked(client, ReadChannel(roomID))
	delete(client.channels, RoomChannel(roomID))
	delete(client.channels, ReadChannel(roomID))
	h.mu.Unlock()

	h.presence.Leave(roomID, client.userID)
}

func (h *Hub) addSubscriptionLocked(client *Client, channel string) {
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Client]bool)
	}
	if !h.subs[channel][client] {
		h.subs[channel][client] = true
		client.channels[channel] = true
		metrics.WSSubscriptions.Inc()
	}
}

func (h *Hub) dropSubscriptionLocked(client *Client, channel string) {
	if subscribers, ok := h.subs[channel]; ok && subscribers[client] {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.subs, channel)
		}
		metrics.WSSubscriptions.Dec()
	}
}

// fanOut delivers one frame to the channel's subscribers in client id order
// so delivery order is reproducible. Clients with a full send buffer are
// dropped; a client that cannot drain is better disconnected than a hub
// that cannot broadcast.
func (h *Hub) fanOut(frame OutboundFrame) {
	h.mu.Lock()
	subscribers := make([]*Client, 0, len(h.subs[frame.Channel]))
	for client := range h.subs[frame.Channel] {
		subscribers = append(subscribers, client)
	}
	sort.Slice(subscribers, func(i, j int) bool {
		return subscribers[i].id < subscribers[j].id
	})

	var stalled []*Client
	for _, client := range subscribers {
		select {
		case client.send <- frame:
		default:
			metrics.WSDroppedMessages.Inc()
			stalled = append(stalled, client)
		}
	}

	for _, client := range stalled {
		delete(h.clients, client)
		for channel := range client.channels {
			h.dropSubscriptionLocked(client, channel)
		}
	}
	h.mu.Unlock()

	for _, client := range stalled {
		// The client's read pump may still be running, so send must stay
		// open; closing the connection unwinds both pumps instead. The
		// later unregister handoff is a no-op for an already removed client.
		_ = client.conn.Close()
		h.throttle.Remove(client.throttleKey())
		metrics.WSConnections.Dec()
		h.presence.DisconnectAll(client.userID)
		logging.Warn().Str("user_id", client.userID).Msg("Dropped stalled WebSocket client")
	}
}

// allowInbound applies the per-connection sliding window limit.
func (h *Hub) allowInbound(client *Client) bool {
	key := client.throttleKey()
	if h.throttle.Count(key) >= inboundFrameLimit {
		return false
	}
	h.throttle.Increment(key)
	return true
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, client := range clients {
		delete(h.clients, client)
	}
	h.subs = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	// Announce the stop before touching connections so read pumps that
	// unwind now do not block handing themselves to a dead hub loop.
	close(h.stopped)

	deadline := time.Now().Add(writeWait)
	for _, client := range clients {
		// Read pumps may still be live, so send stays open; a close frame
		// then a hard close unwinds both pumps.
		_ = client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), deadline)
		_ = client.conn.Close()
	}

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().Str("component", "websocket-hub").Str("reason", reason).
		Int("clients_closed", len(clients)).Msg("WebSocket hub stopped")
}
