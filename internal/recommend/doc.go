// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package recommend implements the staged recommendation pipeline.
//
// A request names up to a handful of seed tracks. The engine resolves each
// seed's metadata and tag profile, then runs up to three candidate stages:
//
//   - primary: the provider's directly similar tracks for each seed, scored
//     by blending the provider match score with tag overlap
//   - tag fallback: top tracks pooled across the seed tag union at a
//     popularity-dependent page, scored by embedding-plus-overlap tag
//     similarity, joined by top tracks from artists similar to the seeds
//   - offline: a local embedding catalog, consulted only when the live tag
//     pool returned nothing and the seeds produced tags
//
// Candidates from all stages are pooled, deduplicated first-wins by
// case-insensitive (artist, name), ranked by final score, given a
// deterministic one-sentence explanation, and enriched with album art by a
// bounded worker pool.
//
// The engine is transport-agnostic. Upstream catalogs, artwork resolvers,
// and the offline store plug in through the Providers bundle; scoring math
// lives in the similarity subpackage and the local catalog in offline.
package recommend
