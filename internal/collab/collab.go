// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package collab holds HTTP clients for the platform services the chat
// engine collaborates with: the user directory, the image file store, the
// push notifier and the meetup membership service. Each client wraps its
// upstream in a circuit breaker and a client-side rate limiter so a slow or
// dead collaborator degrades the chat experience instead of taking it down.
package collab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/metrics"
)

// ErrUnavailable is returned when a collaborator is down, rate limited or
// its circuit is open.
var ErrUnavailable = errors.New("collaborator service unavailable")

// upstream is the shared breaker/limiter harness around one collaborator.
type upstream struct {
	name    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
}

func newUpstream(name string, timeout time.Duration) *upstream {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("service", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Collaborator circuit state change")
		},
		// Passthrough statuses are upstream verdicts, not outages; they
		// must not trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *statusError
			return errors.As(err, &se)
		},
	})

	return &upstream{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(50), 100),
	}
}

// do executes the request through the limiter and breaker and returns the
// response body. Non-2xx statuses are failures except the ones listed in
// passthrough, which return statusError so callers can map them.
func (u *upstream) do(ctx context.Context, req *http.Request, passthrough ...int) ([]byte, error) {
	if !u.limiter.Allow() {
		metrics.RecordCollabRequest(u.name, ErrUnavailable)
		return nil, ErrUnavailable
	}

	body, err := u.breaker.Execute(func() ([]byte, error) {
		resp, err := u.client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return io.ReadAll(resp.Body)
		}
		for _, code := range passthrough {
			if resp.StatusCode == code {
				return nil, &statusError{Code: resp.StatusCode}
			}
		}
		return nil, fmt.Errorf("%s returned status %d", u.name, resp.StatusCode)
	})

	var se *statusError
	if errors.As(err, &se) {
		// An expected upstream verdict, not an outage; count it as a
		// success for availability purposes.
		metrics.RecordCollabRequest(u.name, nil)
		return nil, err
	}
	metrics.RecordCollabRequest(u.name, err)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return body, err
}

// statusError carries a passthrough HTTP status out of the breaker without
// tripping it.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Code)
}
