// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package main is the entry point for the Mingle chat engine.
//
// The chat engine is the real-time messaging service of the Mingle offline
// meetup platform. It owns rooms, messages, presence, polls, bill splits,
// and invitations, and fans events out to connected websocket clients.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered env vars, config.yaml, and defaults (Koanf v2)
//  2. Database: DuckDB for rooms, participants, messages, votes, invitations
//  3. Presence tracker: in-memory online registry with TTL sweeps
//  4. Fan-out: Watermill pub/sub, NATS JetStream or in-process Go channels
//  5. Collab clients: directory, file store, notifier, membership gate
//  6. Chat service: ingest, reads, history, polls, bills, invitations
//  7. WebSocket hub: channel subscriptions and broadcast delivery
//  8. HTTP server: REST API plus the websocket upgrade endpoint
//
// All long-running components run under a Suture supervisor tree, so a
// crashing component is restarted in isolation instead of killing the
// process.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables with the MINGLE_ prefix, then
// config.yaml, then built-in defaults. JWT_SECRET (32+ characters) is the
// only required setting.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the listener
// stops accepting connections, in-flight requests drain under a timeout,
// websocket clients receive close frames, and the database is closed last.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/minglehq/mingle/internal/api"
	"github.com/minglehq/mingle/internal/auth"
	"github.com/minglehq/mingle/internal/chat"
	"github.com/minglehq/mingle/internal/collab"
	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/database"
	"github.com/minglehq/mingle/internal/fanout"
	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/presence"
	"github.com/minglehq/mingle/internal/supervisor"
	ws "github.com/minglehq/mingle/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Mingle chat engine")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	tracker := presence.NewTracker(cfg.Chat.PresenceTTL, cfg.Chat.PresenceSweepInterval)

	pubSub, err := fanout.New(&cfg.NATS, cfg.Chat.BroadcastBuffer)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize pub/sub")
	}
	defer func() {
		if err := pubSub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing pub/sub")
		}
	}()

	// Collab upstreams are optional. A platform service with no configured
	// URL is simply absent and the chat engine degrades accordingly.
	var directory chat.Directory
	if cfg.Collab.DirectoryURL != "" {
		dir, err := collab.NewDirectory(&cfg.Collab)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize directory client")
		}
		defer dir.Close()
		directory = dir
	} else {
		logging.Info().Msg("Directory service not configured, sender names fall back to raw IDs")
	}

	var notifier chat.Notifier
	if cfg.Collab.NotifierURL != "" {
		notifier = collab.NewNotifier(&cfg.Collab)
	}

	var gate chat.Gate
	if cfg.Collab.MembershipURL != "" {
		gate = collab.NewGate(&cfg.Collab)
	}

	var files *collab.FileStore
	if cfg.Collab.FileStoreURL != "" {
		files = collab.NewFileStore(&cfg.Collab)
	}

	broadcaster := fanout.NewBroadcaster(pubSub.Publisher)
	chatSvc := chat.NewService(db, tracker, broadcaster, directory, notifier, gate, &cfg.Chat)
	hub := ws.NewHub(chatSvc, tracker, cfg.Chat.BroadcastBuffer)
	bridge := fanout.NewBridge(pubSub.Subscriber, hub)

	verifier, err := auth.NewVerifier(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token verifier")
	}

	handler := api.NewHandler(chatSvc, files, hub, db.Ping)
	router := api.NewRouter(handler, verifier, &cfg.Security)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(tracker)
	tree.AddMessagingService(bridge)
	tree.AddMessagingService(hub)
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Server listening")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree exited")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Shutdown complete")
}
