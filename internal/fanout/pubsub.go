// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package fanout

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/logging"
)

// PubSub bundles the publisher and subscriber halves of a transport plus
// its teardown.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	closers []func() error
}

// Close tears down the transport components in reverse creation order.
func (ps *PubSub) Close() error {
	var firstErr error
	for i := len(ps.closers) - 1; i >= 0; i-- {
		if err := ps.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// New selects the transport from configuration: in-process GoChannel by
// default, NATS JetStream when enabled.
func New(cfg *config.NATSConfig, buffer int) (*PubSub, error) {
	if cfg != nil && cfg.Enabled {
		ps, err := newNATSPubSub(cfg)
		if err != nil {
			return nil, fmt.Errorf("create NATS transport: %w", err)
		}
		return ps, nil
	}
	return newGoChannelPubSub(buffer), nil
}

// newGoChannelPubSub creates the in-process transport. Deliveries are FIFO
// per topic, which is what gives a single instance its per-room ordering
// guarantee without any broker.
func newGoChannelPubSub(buffer int) *PubSub {
	if buffer <= 0 {
		buffer = 256
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: int64(buffer),
		},
		NewLoggerAdapter(),
	)

	logging.Info().Int("buffer", buffer).Msg("In-process fan-out transport ready")

	return &PubSub{
		Publisher:  pubSub,
		Subscriber: pubSub,
		closers:    []func() error{pubSub.Close},
	}
}
