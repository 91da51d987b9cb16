// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	return cfg
}

func TestDefaultsAreValidWithSecret(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with secret should validate: %v", err)
	}
	if cfg.Chat.HistoryPageSize != 50 {
		t.Errorf("history page size default = %d", cfg.Chat.HistoryPageSize)
	}
	if cfg.Chat.PresenceTTL != 5*time.Minute {
		t.Errorf("presence ttl default = %v", cfg.Chat.PresenceTTL)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		errPart string
	}{
		{"missing secret", func(c *Config) { c.Security.JWTSecret = "" }, "jwt_secret"},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "32 characters"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"nats without url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = ""
			c.NATS.EmbeddedServer = false
		}, "nats.url"},
		{"page size above max", func(c *Config) { c.Chat.HistoryPageSize = 500 }, "history_page_size"},
		{"ttl without sweep", func(c *Config) { c.Chat.PresenceSweepInterval = 0 }, "presence_sweep_interval"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.errPart) {
				t.Errorf("error %q does not mention %q", err, tc.errPart)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("CHAT_MAX_POLL_OPTIONS", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Chat.MaxPollOptions != 5 {
		t.Errorf("max poll options = %d, want 5", cfg.Chat.MaxPollOptions)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Security.CORSOrigins)
	}
}

func TestEnvTransformSkipsUnknown(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("unknown env var mapped to %q", got)
	}
	if got := envTransformFunc("NATS_URL"); got != "nats.url" {
		t.Errorf("NATS_URL mapped to %q", got)
	}
}

func TestServerAddr(t *testing.T) {
	sc := ServerConfig{Host: "127.0.0.1", Port: 8470}
	if sc.Addr() != "127.0.0.1:8470" {
		t.Errorf("Addr() = %q", sc.Addr())
	}
}
