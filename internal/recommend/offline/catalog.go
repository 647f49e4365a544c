// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package offline implements the last fallback stage of the recommendation
// pipeline: a read-only, in-memory catalog of tracks paired with a
// precomputed embedding matrix. When the online tag-pool fetch yields no
// raw candidates, the pipeline ranks this corpus against the seed tags
// instead of returning nothing.
//
// The catalog is loaded once at startup (see Store) and never mutated.
package offline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/nexttrack/internal/recommend/similarity"
)

// Default ranking parameters. The semantic cut restricts the expensive
// blended scoring to the rows closest in embedding space.
const (
	DefaultTopN        = 90
	DefaultTopSemantic = 500
)

// Track is one row of the offline catalog.
type Track struct {
	// ID is the catalog track identifier.
	ID int64

	// Name is the track title.
	Name string

	// Artist is the performing artist.
	Artist string

	// Tags is the normalized tag list for the track.
	Tags []string

	// Tier is the popularity tier label ("known", "obscure", "deepcuts"),
	// or empty when untiered.
	Tier string
}

// Recommendation is a catalog row with its blended similarity score.
type Recommendation struct {
	Track Track
	Score float64
}

// Params controls a catalog ranking pass.
type Params struct {
	// SeedTags is the union of normalized seed tags.
	SeedTags []string

	// Subgenre is an optional preference tag; candidates carrying it are
	// blended toward a perfect score.
	Subgenre string

	// Tier restricts candidates to a popularity tier when non-empty.
	Tier string

	// TopN is the maximum number of recommendations returned.
	// Defaults to DefaultTopN when zero.
	TopN int

	// TopSemantic is how many cosine-nearest rows are considered for the
	// blended score. Defaults to DefaultTopSemantic when zero.
	TopSemantic int
}

// Catalog pairs track rows with their embedding matrix, row for row.
// It is immutable after construction and safe for concurrent use.
type Catalog struct {
	tracks []Track
	matrix []similarity.Vector
	dims   int
}

// NewCatalog builds a catalog from parallel row and vector slices.
// Every vector must share the same dimensionality.
func NewCatalog(tracks []Track, matrix []similarity.Vector) (*Catalog, error) {
	if len(tracks) != len(matrix) {
		return nil, fmt.Errorf("catalog rows (%d) and matrix rows (%d) differ", len(tracks), len(matrix))
	}

	dims := 0
	for i, vec := range matrix {
		if i == 0 {
			dims = len(vec)
			continue
		}
		if len(vec) != dims {
			return nil, fmt.Errorf("matrix row %d has %d dimensions, want %d", i, len(vec), dims)
		}
	}

	return &Catalog{tracks: tracks, matrix: matrix, dims: dims}, nil
}

// Len returns the number of catalog rows.
func (c *Catalog) Len() int { return len(c.tracks) }

// Dimensions returns the embedding dimensionality, 0 for an empty catalog.
func (c *Catalog) Dimensions() int { return c.dims }

// Recommend ranks the catalog against the seed tags and returns the top
// rows by blended score. The pass has three steps:
//
//  1. Embed the seed tags; a zero vector (no tag resolvable) returns nil.
//  2. Keep the TopSemantic rows nearest by cosine similarity.
//  3. Rescore those rows with 0.4*cosine + 0.6*jaccard (plus the subgenre
//     blend) and return the TopN best, descending.
//
// When p.Tier is set, rows of other tiers are excluded before ranking;
// an empty post-filter catalog yields nil.
func (c *Catalog) Recommend(scorer *similarity.Scorer, p Params) []Recommendation {
	if p.TopN <= 0 {
		p.TopN = DefaultTopN
	}
	if p.TopSemantic <= 0 {
		p.TopSemantic = DefaultTopSemantic
	}

	seedVec := scorer.EmbedTags(p.SeedTags)
	if seedVec.IsZero() {
		return nil
	}

	// Candidate row indices, optionally restricted by tier.
	indices := make([]int, 0, len(c.tracks))
	for i := range c.tracks {
		if p.Tier != "" && !strings.EqualFold(c.tracks[i].Tier, p.Tier) {
			continue
		}
		indices = append(indices, i)
	}
	if len(indices) == 0 {
		return nil
	}

	cosines := make(map[int]float64, len(indices))
	for _, i := range indices {
		cosines[i] = similarity.Cosine(seedVec, c.matrix[i])
	}

	sort.Slice(indices, func(a, b int) bool {
		return cosines[indices[a]] > cosines[indices[b]]
	})
	if len(indices) > p.TopSemantic {
		indices = indices[:p.TopSemantic]
	}

	recs := make([]Recommendation, 0, len(indices))
	for _, i := range indices {
		track := c.tracks[i]
		score := similarity.DefaultAlpha*cosines[i] +
			(1-similarity.DefaultAlpha)*similarity.Jaccard(p.SeedTags, track.Tags)
		if p.Subgenre != "" && containsFold(track.Tags, p.Subgenre) {
			score = similarity.BlendSubgenre(score)
		}
		recs = append(recs, Recommendation{Track: track, Score: score})
	}

	sort.SliceStable(recs, func(a, b int) bool {
		return recs[a].Score > recs[b].Score
	})
	if len(recs) > p.TopN {
		recs = recs[:p.TopN]
	}
	return recs
}

func containsFold(list []string, tag string) bool {
	for _, t := range list {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
