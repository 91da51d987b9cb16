// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minglehq/mingle/internal/config"
)

func collabConfig(serverURL string) *config.CollabConfig {
	return &config.CollabConfig{
		DirectoryURL:    serverURL,
		FileStoreURL:    serverURL,
		NotifierURL:     serverURL,
		MembershipURL:   serverURL,
		Timeout:         2 * time.Second,
		ProfileCacheTTL: time.Minute,
	}
}

func TestDirectoryGetProfile(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/api/v1/users/alice", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"alice","username":"alice","nickname":"Allie"}`))
	}))
	defer server.Close()

	dir, err := NewDirectory(collabConfig(server.URL))
	require.NoError(t, err)
	defer func() { _ = dir.Close() }()

	profile, err := dir.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Allie", profile.Nickname)

	// Second lookup is served from memory.
	_, err = dir.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDirectoryNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dir, err := NewDirectory(collabConfig(server.URL))
	require.NoError(t, err)
	defer func() { _ = dir.Close() }()

	_, err = dir.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestDirectoryServesStaleProfileWhenDown(t *testing.T) {
	var down atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"bob","username":"bob"}`))
	}))
	defer server.Close()

	cfg := collabConfig(server.URL)
	cfg.ProfileCachePath = filepath.Join(t.TempDir(), "profiles")
	cfg.ProfileCacheTTL = 10 * time.Millisecond

	dir, err := NewDirectory(cfg)
	require.NoError(t, err)
	defer func() { _ = dir.Close() }()

	_, err = dir.GetProfile(context.Background(), "bob")
	require.NoError(t, err)

	// Upstream dies and the memory tier expires; the persisted copy
	// keeps the name resolvable.
	down.Store(true)
	time.Sleep(20 * time.Millisecond)

	profile, err := dir.GetProfile(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.Username)
}

func TestFileStoreUploadImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, "cat.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://files.example.com/cat.png"}`))
	}))
	defer server.Close()

	fs := NewFileStore(collabConfig(server.URL))
	url, err := fs.UploadImage(context.Background(), "cat.png", strings.NewReader("pngbytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/cat.png", url)
}

func TestFileStoreUploadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInsufficientStorage)
	}))
	defer server.Close()

	fs := NewFileStore(collabConfig(server.URL))
	_, err := fs.UploadImage(context.Background(), "cat.png", strings.NewReader("pngbytes"))
	assert.ErrorIs(t, err, ErrUploadFailure)
}

func TestGateVerdicts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/memberships/alice/"):
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	gate := NewGate(collabConfig(server.URL))
	assert.NoError(t, gate.CanJoin(context.Background(), "alice", 1))
	assert.ErrorIs(t, gate.CanJoin(context.Background(), "mallory", 1), ErrJoinDenied)
}

func TestGateFailsOpenWhenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	server.Close() // connection refused from here on

	gate := NewGate(collabConfig(server.URL))
	assert.NoError(t, gate.CanJoin(context.Background(), "alice", 1))
}

func TestNotifierIsFireAndForget(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewNotifier(collabConfig(server.URL))
	n.NotifyRoomMessage(context.Background(), 7, "Allie", "see you at 7")

	select {
	case path := <-received:
		assert.Equal(t, "/api/v1/notifications/room-message", path)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never arrived")
	}
}
