// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nexttrack/internal/cache"
	"github.com/tomtom215/nexttrack/internal/metrics"
	"github.com/tomtom215/nexttrack/internal/recommend"
)

// ArtworkResolver layers a cache over the primary and secondary artwork
// providers. Misses are cached too; artwork lookups run once per track per
// TTL no matter how often the track recurs in recommendation sets.
type ArtworkResolver struct {
	primary   recommend.ArtworkProvider
	secondary recommend.ArtworkProvider
	cache     *cache.LRU[*recommend.Artwork]
	logger    zerolog.Logger
}

// NewArtworkResolver builds the resolver. Secondary may be nil. A
// cacheSize of zero disables caching.
func NewArtworkResolver(primary, secondary recommend.ArtworkProvider, cacheSize int, cacheTTL time.Duration, logger zerolog.Logger) *ArtworkResolver {
	r := &ArtworkResolver{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "artwork").Logger(),
	}
	if cacheSize > 0 {
		r.cache = cache.NewLRU[*recommend.Artwork](cacheSize, cacheTTL)
	}
	return r
}

// AlbumArt implements recommend.ArtworkProvider.
func (r *ArtworkResolver) AlbumArt(ctx context.Context, artist, track string) (*recommend.Artwork, error) {
	key := artworkKey(artist, track)
	if r.cache != nil {
		if art, ok := r.cache.Get(key); ok {
			metrics.RecordCacheLookup("artwork", true)
			if art == nil {
				return nil, ErrNotFound
			}
			return art, nil
		}
		metrics.RecordCacheLookup("artwork", false)
	}

	art, err := r.resolve(ctx, artist, track)
	switch {
	case err == nil:
		if r.cache != nil {
			r.cache.Set(key, art)
		}
		return art, nil
	case errors.Is(err, ErrNotFound):
		// Negative entries stop repeat lookups for tracks no provider has.
		if r.cache != nil {
			r.cache.Set(key, nil)
		}
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (r *ArtworkResolver) resolve(ctx context.Context, artist, track string) (*recommend.Artwork, error) {
	art, err := r.primary.AlbumArt(ctx, artist, track)
	if err == nil {
		return art, nil
	}
	if r.secondary == nil {
		return nil, err
	}
	if !errors.Is(err, ErrNotFound) {
		r.logger.Debug().Err(err).Str("artist", artist).Str("track", track).
			Msg("primary artwork lookup failed, trying secondary")
	}

	art, serr := r.secondary.AlbumArt(ctx, artist, track)
	if serr == nil {
		return art, nil
	}
	if errors.Is(err, ErrNotFound) && errors.Is(serr, ErrNotFound) {
		return nil, ErrNotFound
	}
	return nil, serr
}

// CacheSweeper exposes the artwork cache for periodic expiry sweeps.
// Returns nil when caching is disabled.
func (r *ArtworkResolver) CacheSweeper() *cache.LRU[*recommend.Artwork] {
	return r.cache
}

func artworkKey(artist, track string) string {
	return strings.ToLower(strings.TrimSpace(artist)) + "\x00" + strings.ToLower(strings.TrimSpace(track))
}
