// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

import (
	"fmt"
	"time"
)

// Config holds the pipeline tuning knobs. Zero values are invalid; start
// from DefaultConfig and override.
type Config struct {
	// Alpha weights cosine similarity against Jaccard overlap in the tag
	// similarity blend.
	Alpha float64 `koanf:"alpha" json:"alpha"`

	// MinTagScore is the floor below which tag-pool candidates are dropped.
	MinTagScore float64 `koanf:"min_tag_score" json:"min_tag_score"`

	// ArtistBoost is the flat bonus for candidates by an artist similar to
	// a seed artist.
	ArtistBoost float64 `koanf:"artist_boost" json:"artist_boost"`

	// SimilarArtistMinScore is the floor for similar-artist top tracks to
	// enter the fallback pool.
	SimilarArtistMinScore float64 `koanf:"similar_artist_min_score" json:"similar_artist_min_score"`

	// MaxSeedTags caps the tag profile taken from each seed track.
	MaxSeedTags int `koanf:"max_seed_tags" json:"max_seed_tags"`

	// MaxFallbackTags caps how many union tags fan out to the tag pool.
	MaxFallbackTags int `koanf:"max_fallback_tags" json:"max_fallback_tags"`

	// MaxPerTag caps tracks pulled per tag-pool page.
	MaxPerTag int `koanf:"max_per_tag" json:"max_per_tag"`

	// MaxTagCandidates caps the raw tag pool before scoring.
	MaxTagCandidates int `koanf:"max_tag_candidates" json:"max_tag_candidates"`

	// MaxFallbackResults caps scored fallback candidates after ranking.
	MaxFallbackResults int `koanf:"max_fallback_results" json:"max_fallback_results"`

	// SimilarTracksLimit is how many similar tracks to request per seed.
	SimilarTracksLimit int `koanf:"similar_tracks_limit" json:"similar_tracks_limit"`

	// SimilarTracksWindow is the width of the page-indexed slice taken from
	// the similar-tracks fetch.
	SimilarTracksWindow int `koanf:"similar_tracks_window" json:"similar_tracks_window"`

	// PrimaryLimit caps primary candidates per seed.
	PrimaryLimit int `koanf:"primary_limit" json:"primary_limit"`

	// CandidateTagLimit caps the tags attached to each candidate.
	CandidateTagLimit int `koanf:"candidate_tag_limit" json:"candidate_tag_limit"`

	// FallbackTagLimit caps the all_tags list on fallback candidates.
	FallbackTagLimit int `koanf:"fallback_tag_limit" json:"fallback_tag_limit"`

	// SimilarArtistLimit caps how many similar artists contribute top
	// tracks to the fallback pool.
	SimilarArtistLimit int `koanf:"similar_artist_limit" json:"similar_artist_limit"`

	// TopTracksPerArtist caps top tracks taken per similar artist.
	TopTracksPerArtist int `koanf:"top_tracks_per_artist" json:"top_tracks_per_artist"`

	// OfflineTopN caps offline catalog recommendations.
	OfflineTopN int `koanf:"offline_top_n" json:"offline_top_n"`

	// OfflineTopSemantic caps the cosine prefilter in the offline catalog.
	OfflineTopSemantic int `koanf:"offline_top_semantic" json:"offline_top_semantic"`

	// ArtworkWorkers bounds the album art enrichment pool.
	ArtworkWorkers int `koanf:"artwork_workers" json:"artwork_workers"`

	// CacheSize and CacheTTL bound the response cache. CacheSize <= 0
	// disables caching.
	CacheSize int           `koanf:"cache_size" json:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl" json:"cache_ttl"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:                 0.4,
		MinTagScore:           0.035,
		ArtistBoost:           0.015,
		SimilarArtistMinScore: 0.65,
		MaxSeedTags:           12,
		MaxFallbackTags:       32,
		MaxPerTag:             200,
		MaxTagCandidates:      400,
		MaxFallbackResults:    70,
		SimilarTracksLimit:    20,
		SimilarTracksWindow:   6,
		PrimaryLimit:          16,
		CandidateTagLimit:     5,
		FallbackTagLimit:      8,
		SimilarArtistLimit:    2,
		TopTracksPerArtist:    3,
		OfflineTopN:           90,
		OfflineTopSemantic:    500,
		ArtworkWorkers:        5,
		CacheSize:             256,
		CacheTTL:              10 * time.Minute,
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0,1], got %v", c.Alpha)
	}
	if c.MinTagScore < 0 || c.MinTagScore > 1 {
		return fmt.Errorf("min_tag_score must be in [0,1], got %v", c.MinTagScore)
	}
	if c.ArtistBoost < 0 || c.ArtistBoost > 1 {
		return fmt.Errorf("artist_boost must be in [0,1], got %v", c.ArtistBoost)
	}
	if c.SimilarArtistMinScore < 0 || c.SimilarArtistMinScore > 1 {
		return fmt.Errorf("similar_artist_min_score must be in [0,1], got %v", c.SimilarArtistMinScore)
	}
	for _, p := range []struct {
		name string
		val  int
	}{
		{"max_seed_tags", c.MaxSeedTags},
		{"max_fallback_tags", c.MaxFallbackTags},
		{"max_per_tag", c.MaxPerTag},
		{"max_tag_candidates", c.MaxTagCandidates},
		{"max_fallback_results", c.MaxFallbackResults},
		{"similar_tracks_limit", c.SimilarTracksLimit},
		{"similar_tracks_window", c.SimilarTracksWindow},
		{"primary_limit", c.PrimaryLimit},
		{"candidate_tag_limit", c.CandidateTagLimit},
		{"fallback_tag_limit", c.FallbackTagLimit},
		{"similar_artist_limit", c.SimilarArtistLimit},
		{"top_tracks_per_artist", c.TopTracksPerArtist},
		{"offline_top_n", c.OfflineTopN},
		{"offline_top_semantic", c.OfflineTopSemantic},
		{"artwork_workers", c.ArtworkWorkers},
	} {
		if p.val <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.val)
		}
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive when caching is enabled, got %v", c.CacheTTL)
	}
	return nil
}
