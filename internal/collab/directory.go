// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package collab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/cache"
	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/metrics"
	"github.com/minglehq/mingle/internal/models"
)

// ErrProfileNotFound is returned when the directory has no such user.
var ErrProfileNotFound = errors.New("profile not found")

const profileKeyPrefix = "profile:"

// Directory resolves user identities against the platform user service.
//
// Lookups go through two cache tiers: a short-TTL in-memory cache absorbs
// the per-page bursts of history rendering, and an optional BadgerDB store
// keeps profiles across restarts so a directory outage does not blank out
// every sender name.
type Directory struct {
	baseURL  string
	upstream *upstream
	memory   cache.Cacher
	store    *badger.DB // nil when persistence is disabled
	ttl      time.Duration
}

// NewDirectory builds the directory client. When cfg.ProfileCachePath is
// empty the persistent tier is skipped.
func NewDirectory(cfg *config.CollabConfig) (*Directory, error) {
	ttl := cfg.ProfileCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	d := &Directory{
		baseURL:  cfg.DirectoryURL,
		upstream: newUpstream("directory", cfg.Timeout),
		memory:   cache.New(ttl),
		ttl:      ttl,
	}

	if cfg.ProfileCachePath != "" {
		opts := badger.DefaultOptions(cfg.ProfileCachePath)
		opts.Logger = nil
		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open profile cache: %w", err)
		}
		d.store = db
	}
	return d, nil
}

// Close releases the persistent cache.
func (d *Directory) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// GetProfile resolves one identity. Memory first, then the persistent tier,
// then the directory service. A fetch failure falls back to a stale
// persisted profile when one exists.
func (d *Directory) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if v, ok := d.memory.Get(userID); ok {
		metrics.ProfileCacheHits.Inc()
		return v.(*models.Profile), nil
	}
	metrics.ProfileCacheMisses.Inc()

	profile, err := d.fetch(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		if stale := d.loadStored(userID); stale != nil {
			logging.Debug().Str("user_id", userID).Msg("Serving stale profile, directory unavailable")
			d.memory.Set(userID, stale)
			return stale, nil
		}
		return nil, err
	}

	d.memory.Set(userID, profile)
	d.persist(profile)
	return profile, nil
}

func (d *Directory) fetch(ctx context.Context, userID string) (*models.Profile, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/%s", d.baseURL, url.PathEscape(userID))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := d.upstream.do(ctx, req, http.StatusNotFound)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	var profile models.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if profile.UserID == "" {
		profile.UserID = userID
	}
	return &profile, nil
}

func (d *Directory) persist(profile *models.Profile) {
	if d.store == nil {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	err = d.store.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKeyPrefix+profile.UserID), data)
	})
	if err != nil {
		logging.Warn().Err(err).Str("user_id", profile.UserID).Msg("Failed to persist profile")
	}
}

func (d *Directory) loadStored(userID string) *models.Profile {
	if d.store == nil {
		return nil
	}
	var profile models.Profile
	err := d.store.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKeyPrefix + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		})
	})
	if err != nil {
		return nil
	}
	return &profile
}
