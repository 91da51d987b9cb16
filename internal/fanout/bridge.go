// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package fanout

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/models"
)

// Sink receives decoded events for delivery to connected clients.
// The WebSocket hub implements it.
type Sink interface {
	BroadcastChat(event *models.ChatEvent)
	BroadcastRead(event *models.ReadEvent)
}

// Bridge subscribes to the internal topics and forwards decoded events to
// the sink. It satisfies suture.Service; the supervisor restarts it if the
// subscription channels close unexpectedly.
type Bridge struct {
	subscriber message.Subscriber
	sink       Sink
}

// NewBridge wires a transport subscriber to a delivery sink.
func NewBridge(subscriber message.Subscriber, sink Sink) *Bridge {
	return &Bridge{subscriber: subscriber, sink: sink}
}

// Serve consumes both topics until ctx is cancelled.
//
// Messages that fail to decode are acked and dropped: a poison event would
// otherwise be redelivered forever on the JetStream transport.
func (b *Bridge) Serve(ctx context.Context) error {
	chatCh, err := b.subscriber.Subscribe(ctx, TopicChatEvents)
	if err != nil {
		return err
	}
	readCh, err := b.subscriber.Subscribe(ctx, TopicReadEvents)
	if err != nil {
		return err
	}

	logging.Info().Msg("Fan-out bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-chatCh:
			if !ok {
				return context.Canceled
			}
			b.handleChat(msg)

		case msg, ok := <-readCh:
			if !ok {
				return context.Canceled
			}
			b.handleRead(msg)
		}
	}
}

func (b *Bridge) handleChat(msg *message.Message) {
	event, err := DecodeChatEvent(msg.Payload)
	if err != nil {
		logging.Warn().Err(err).Str("uuid", msg.UUID).Msg("Dropping undecodable chat event")
		msg.Ack()
		return
	}
	b.sink.BroadcastChat(event)
	msg.Ack()
}

func (b *Bridge) handleRead(msg *message.Message) {
	event, err := DecodeReadEvent(msg.Payload)
	if err != nil {
		logging.Warn().Err(err).Str("uuid", msg.UUID).Msg("Dropping undecodable read event")
		msg.Ack()
		return
	}
	b.sink.BroadcastRead(event)
	msg.Ack()
}

// String identifies the service in supervisor logs.
func (b *Bridge) String() string {
	return "fanout-bridge"
}
