// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package sources implements the upstream catalog clients: the tag and
// similarity catalog, the two album art services, and the resolver that
// combines them. Every client shares the same protective plumbing: a
// client-side token bucket, a circuit breaker, and per-call metrics.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/nexttrack/internal/logging"
	"github.com/tomtom215/nexttrack/internal/metrics"
)

// maxResponseBytes caps upstream response bodies. The catalog never returns
// payloads near this size; anything larger is malformed or hostile.
const maxResponseBytes = 4 << 20

// ErrNotFound is returned for upstream 404s.
var ErrNotFound = errors.New("sources: not found")

// ErrUpstream is returned for non-2xx upstream responses other than 404.
var ErrUpstream = errors.New("sources: upstream error")

// httpDoer is the shared request path for all upstream clients: rate
// limit, circuit breaker, HTTP round trip, bounded read, JSON decode.
type httpDoer struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// doerSettings configures one upstream's protective plumbing.
type doerSettings struct {
	Name            string
	Timeout         time.Duration
	RatePerSecond   float64
	RateBurst       int
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func newHTTPDoer(s doerSettings) *httpDoer {
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	if s.BreakerFailures == 0 {
		s.BreakerFailures = 5
	}
	if s.BreakerCooldown <= 0 {
		s.BreakerCooldown = 30 * time.Second
	}

	var limiter *rate.Limiter
	if s.RatePerSecond > 0 {
		burst := s.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.RatePerSecond), burst)
	}

	metrics.BreakerState.WithLabelValues(s.Name).Set(0)
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    s.Name,
		Timeout: s.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("upstream", name).
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
		IsSuccessful: func(err error) bool {
			// A 404 is a definitive answer, not an upstream fault.
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &httpDoer{
		name:    s.Name,
		client:  &http.Client{Timeout: s.Timeout},
		limiter: limiter,
		breaker: breaker,
	}
}

// getJSON fetches u and decodes the response body into out.
func (d *httpDoer) getJSON(ctx context.Context, operation string, u string, out any) error {
	start := time.Now()
	err := d.fetch(ctx, u, out)
	metrics.RecordProviderRequest(d.name, operation, err, time.Since(start))
	return err
}

func (d *httpDoer) fetch(ctx context.Context, u string, out any) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit wait: %w", d.name, err)
		}
	}

	body, err := d.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: build request: %w", d.name, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "nexttrack/1.0")

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.name, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, fmt.Errorf("%s: status %d: %w", d.name, resp.StatusCode, ErrUpstream)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("%s: read body: %w", d.name, err)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", d.name, err)
	}
	return nil
}

// buildURL joins base with query parameters.
func buildURL(base string, params url.Values) string {
	if len(params) == 0 {
		return base
	}
	sep := "?"
	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return base + sep + params.Encode()
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
