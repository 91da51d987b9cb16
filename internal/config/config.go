// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package config loads and validates server configuration with Koanf v2.
// Precedence: environment variables > YAML config file > built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Mingle chat server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	NATS     NATSConfig     `koanf:"nats"`
	Chat     ChatConfig     `koanf:"chat"`
	Security SecurityConfig `koanf:"security"`
	Collab   CollabConfig   `koanf:"collab"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// NATSConfig controls the optional JetStream-backed fan-out transport.
// When disabled the server uses an in-process Watermill Pub/Sub, which is
// correct for a single instance; multi-instance deployments must enable NATS
// so that room broadcasts reach clients connected to other instances.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	StreamName     string `koanf:"stream_name"`
	DurableName    string `koanf:"durable_name"`
	QueueGroup     string `koanf:"queue_group"`
}

// ChatConfig holds chat engine limits and presence tuning.
type ChatConfig struct {
	HistoryPageSize    int `koanf:"history_page_size"`
	MaxHistoryPageSize int `koanf:"max_history_page_size"`
	MaxMessageLength   int `koanf:"max_message_length"`
	MaxPollOptions     int `koanf:"max_poll_options"`
	MaxRoomCapacity    int `koanf:"max_room_capacity"`

	// PresenceTTL bounds how long an entry survives without a heartbeat.
	// A missed transport disconnect would otherwise overcount a room forever.
	PresenceTTL           time.Duration `koanf:"presence_ttl"`
	PresenceSweepInterval time.Duration `koanf:"presence_sweep_interval"`

	BroadcastBuffer int `koanf:"broadcast_buffer"`
}

// SecurityConfig holds authentication and rate limiting settings.
// Mingle verifies JWTs issued by the platform's session service; it does not
// issue tokens itself.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// CollabConfig holds endpoints for external collaborator services.
type CollabConfig struct {
	DirectoryURL  string        `koanf:"directory_url"`
	FileStoreURL  string        `koanf:"file_store_url"`
	NotifierURL   string        `koanf:"notifier_url"`
	MembershipURL string        `koanf:"membership_url"`
	Timeout       time.Duration `koanf:"timeout"`

	// Profile cache for directory lookups.
	ProfileCacheTTL  time.Duration `koanf:"profile_cache_ttl"`
	ProfileCachePath string        `koanf:"profile_cache_path"` // empty = in-memory only
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would prevent a correct
// start. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	if c.NATS.Enabled && c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return fmt.Errorf("nats.url is required when nats is enabled without an embedded server")
	}
	if c.Chat.HistoryPageSize <= 0 || c.Chat.HistoryPageSize > c.Chat.MaxHistoryPageSize {
		return fmt.Errorf("chat.history_page_size %d invalid (max %d)",
			c.Chat.HistoryPageSize, c.Chat.MaxHistoryPageSize)
	}
	if c.Chat.PresenceTTL > 0 && c.Chat.PresenceSweepInterval <= 0 {
		return fmt.Errorf("chat.presence_sweep_interval must be positive when presence_ttl is set")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
