// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper removes expired entries and reports how many were dropped.
// Satisfied by cache.LRU.
type Sweeper interface {
	Sweep() int
}

// CacheSweepService periodically evicts expired cache entries. The LRU
// drops expired entries lazily on access, so keys that are never read
// again would otherwise sit in memory until capacity pressure pushes
// them out.
type CacheSweepService struct {
	name     string
	sweeper  Sweeper
	interval time.Duration
	logger   zerolog.Logger
}

// NewCacheSweepService builds a sweep service for one cache. A
// non-positive interval defaults to 5 minutes.
func NewCacheSweepService(name string, sweeper Sweeper, interval time.Duration, logger zerolog.Logger) *CacheSweepService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheSweepService{
		name:     name,
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.With().Str("component", "cache-sweep").Str("cache", name).Logger(),
	}
}

// Serve implements suture.Service.
func (s *CacheSweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := s.sweeper.Sweep(); removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("swept expired cache entries")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (s *CacheSweepService) String() string {
	return "cache-sweep-" + s.name
}
