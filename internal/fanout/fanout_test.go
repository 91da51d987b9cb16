// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package fanout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minglehq/mingle/internal/models"
)

// collectingSink records delivered events for assertions.
type collectingSink struct {
	mu    sync.Mutex
	chats []*models.ChatEvent
	reads []*models.ReadEvent
	seen  chan struct{}
}

func newCollectingSink() *collectingSink {
	return &collectingSink{seen: make(chan struct{}, 16)}
}

func (s *collectingSink) BroadcastChat(event *models.ChatEvent) {
	s.mu.Lock()
	s.chats = append(s.chats, event)
	s.mu.Unlock()
	s.seen <- struct{}{}
}

func (s *collectingSink) BroadcastRead(event *models.ReadEvent) {
	s.mu.Lock()
	s.reads = append(s.reads, event)
	s.mu.Unlock()
	s.seen <- struct{}{}
}

func (s *collectingSink) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
}

func startBridge(t *testing.T) (*Broadcaster, *collectingSink) {
	t.Helper()

	ps := newGoChannelPubSub(16)
	t.Cleanup(func() { _ = ps.Close() })

	sink := newCollectingSink()
	bridge := NewBridge(ps.Subscriber, sink)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = bridge.Serve(ctx) }()

	// Give the bridge a beat to establish subscriptions before publishing
	time.Sleep(50 * time.Millisecond)

	return NewBroadcaster(ps.Publisher), sink
}

func TestChatEventRoundTrip(t *testing.T) {
	broadcaster, sink := startBridge(t)

	event := &models.ChatEvent{
		MessageID:   7,
		RoomID:      42,
		Type:        string(models.MessageTypeText),
		Content:     "hello",
		SenderID:    "alice",
		SenderName:  "Alice",
		UnreadCount: 3,
		SentAt:      time.Now().UTC(),
	}

	require.NoError(t, broadcaster.PublishChatEvent(event))
	sink.waitFor(t, 1)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.chats, 1)
	got := sink.chats[0]
	assert.Equal(t, int64(42), got.RoomID)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, 3, got.UnreadCount)
	assert.Equal(t, "Alice", got.SenderName)
}

func TestReadEventRoundTrip(t *testing.T) {
	broadcaster, sink := startBridge(t)

	require.NoError(t, broadcaster.PublishReadEvent(&models.ReadEvent{
		RoomID:    42,
		UserID:    "alice",
		Timestamp: time.Now().UTC(),
	}))
	sink.waitFor(t, 1)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.reads, 1)
	assert.Equal(t, "alice", sink.reads[0].UserID)
}

func TestOrderingPreservedPerTopic(t *testing.T) {
	broadcaster, sink := startBridge(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, broadcaster.PublishChatEvent(&models.ChatEvent{
			MessageID: int64(i),
			RoomID:    1,
			Type:      string(models.MessageTypeText),
			Content:   "m",
		}))
	}
	sink.waitFor(t, 5)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.chats, 5)
	for i, got := range sink.chats {
		assert.Equal(t, int64(i+1), got.MessageID, "delivery order must match publish order")
	}
}

func TestEncodeRejectsMissingRoom(t *testing.T) {
	_, err := EncodeChatEvent(&models.ChatEvent{Content: "x"})
	assert.Error(t, err)

	_, err = EncodeReadEvent(&models.ReadEvent{UserID: "alice"})
	assert.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeChatEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeReadEvent([]byte("{"))
	assert.Error(t, err)
}

func TestBridgeStopsOnCancel(t *testing.T) {
	ps := newGoChannelPubSub(4)
	t.Cleanup(func() { _ = ps.Close() })

	bridge := NewBridge(ps.Subscriber, newCollectingSink())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop on cancellation")
	}
}
