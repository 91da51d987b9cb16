// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package fanout

import (
	"context"
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natssrv "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/logging"
)

// EmbeddedServer wraps a NATS server with lifecycle management, giving a
// single-binary deployment a JetStream instance without an external broker.
type EmbeddedServer struct {
	server    *natssrv.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server.
// Returns an error if the server fails to start within 30 seconds.
func NewEmbeddedServer(storeDir string) (*EmbeddedServer, error) {
	opts := &natssrv.Options{
		ServerName: "mingle-chat",
		Host:       "127.0.0.1",
		Port:       4222,
		JetStream:  true,
		StoreDir:   storeDir,
		NoLog:      false,
		MaxPayload: 1 * 1024 * 1024, // chat events are small
	}

	ns, err := natssrv.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{
		server:    ns,
		clientURL: ns.ClientURL(),
	}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server and waits for it to drain.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}

// ensureStream creates or updates the chat event stream. Both internal
// topics fall under the chat.> subject space.
func ensureStream(ctx context.Context, nc *natsgo.Conn, name string) error {
	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := jetstream.StreamConfig{
		Name:        name,
		Subjects:    []string{"chat.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Duplicates:  2 * time.Minute,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	}

	if _, err := js.Stream(ctx, name); err == nil {
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		return nil
	}

	if _, err := js.CreateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

// newNATSPubSub builds the JetStream transport: optional embedded server,
// stream provisioning, then the Watermill publisher and subscriber pair.
func newNATSPubSub(cfg *config.NATSConfig) (*PubSub, error) {
	logger := NewLoggerAdapter()
	ps := &PubSub{}

	natsURL := cfg.URL
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		natsURL = srv.ClientURL()
		ps.closers = append(ps.closers, func() error {
			srv.Shutdown()
			return nil
		})
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := natsgo.Connect(natsURL, natsOpts...)
	if err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	ps.closers = append(ps.closers, func() error {
		nc.Close()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ensureStream(ctx, nc, cfg.StreamName); err != nil {
		_ = ps.Close()
		return nil, err
	}
	logging.Info().Str("stream", cfg.StreamName).Msg("JetStream stream ready")

	publisher, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         natsURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false, // stream pre-created above
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	ps.Publisher = publisher
	ps.closers = append(ps.closers, publisher.Close)

	subscriber, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              natsURL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			AckAsync:      false,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(cfg.StreamName),
				natsgo.DeliverNew(),
				natsgo.MaxAckPending(1024),
			},
		},
	}, logger)
	if err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	ps.Subscriber = subscriber
	ps.closers = append(ps.closers, subscriber.Close)

	logging.Info().Str("url", natsURL).Msg("NATS fan-out transport ready")
	return ps, nil
}
