// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

import (
	"context"

	"github.com/tomtom215/nexttrack/internal/recommend/offline"
	"github.com/tomtom215/nexttrack/internal/recommend/similarity"
)

// MetadataProvider resolves seed track IDs to catalog metadata.
type MetadataProvider interface {
	TrackInfo(ctx context.Context, id int64) (*TrackInfo, error)
}

// TagProvider fetches the tag list for a specific track.
type TagProvider interface {
	TrackTags(ctx context.Context, artist, track string) ([]string, error)
}

// SimilarTracksProvider fetches tracks similar to a given track, with
// provider-side match scores.
type SimilarTracksProvider interface {
	SimilarTracks(ctx context.Context, artist, track string, limit int) ([]TrackRef, error)
}

// TagPoolProvider fetches the top tracks for a tag at a given page.
type TagPoolProvider interface {
	TopTracksByTag(ctx context.Context, tag string, limit, page int) ([]TrackRef, error)
}

// ArtistProvider fetches artist-level tags and similar artists.
type ArtistProvider interface {
	ArtistInfo(ctx context.Context, name string) (*ArtistInfo, error)
}

// TopTracksProvider fetches an artist's most popular tracks.
type TopTracksProvider interface {
	ArtistTopTracks(ctx context.Context, artist string, limit int) ([]TrackRef, error)
}

// ArtworkProvider resolves album art and preview links for a track.
type ArtworkProvider interface {
	AlbumArt(ctx context.Context, artist, track string) (*Artwork, error)
}

// OfflineCatalog is the local embedding catalog used when every live
// provider path comes back empty. Implemented by offline.Catalog.
type OfflineCatalog interface {
	Recommend(scorer *similarity.Scorer, p offline.Params) []offline.Recommendation
}

// Providers bundles every external collaborator the engine depends on.
// Metadata, Tags, Similar, TagPool, and Artists are required; TopTracks,
// Artwork, and Offline are optional and their stages are skipped when nil.
type Providers struct {
	Metadata  MetadataProvider
	Tags      TagProvider
	Similar   SimilarTracksProvider
	TagPool   TagPoolProvider
	Artists   ArtistProvider
	TopTracks TopTracksProvider
	Artwork   ArtworkProvider
	Offline   OfflineCatalog
}

func (p *Providers) validate() error {
	switch {
	case p.Metadata == nil:
		return errMissingProvider("metadata")
	case p.Tags == nil:
		return errMissingProvider("tags")
	case p.Similar == nil:
		return errMissingProvider("similar tracks")
	case p.TagPool == nil:
		return errMissingProvider("tag pool")
	case p.Artists == nil:
		return errMissingProvider("artists")
	}
	return nil
}
