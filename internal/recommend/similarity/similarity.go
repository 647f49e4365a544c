// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package similarity implements the scoring math of the recommendation
// pipeline: inverse-frequency-weighted tag embeddings, cosine and Jaccard
// similarity, and the blended scoring formulas that combine them.
//
// Two distinct blend formulas live here and must not be conflated:
//
//   - TagSimilarity is purely tag-derived: a weighted mix of the cosine
//     similarity between tag-set embeddings and the Jaccard overlap of the
//     raw tag sets.
//   - MatchBlend trusts an upstream relevance score and only nudges it with
//     lexical overlap. It is used exclusively for candidates that arrive
//     from the direct similar-tracks source with a provider match score.
//
// All functions are pure; external state (the embedding vocabulary and the
// corpus tag-frequency table) enters through the Embedder and
// FrequencyTable interfaces.
package similarity

import (
	"math"
	"strings"
)

// DefaultAlpha is the weight of the semantic (cosine) term in TagSimilarity.
// The remainder goes to the Jaccard term.
const DefaultAlpha = 0.4

// subgenreBlend is the weight pulled toward a perfect score when the
// caller's preferred subgenre appears in the candidate's tags. The blend
// form (rather than a multiplicative boost) keeps scores inside [0,1].
const subgenreBlend = 0.15

// Embedder resolves a single tag to its embedding vector. Tags absent from
// the vocabulary return ok=false and are excluded from weighting.
type Embedder interface {
	// Lookup returns the embedding for a tag, or ok=false if the tag is
	// not in the vocabulary.
	Lookup(tag string) (Vector, bool)

	// Dimensions returns the fixed embedding dimensionality.
	Dimensions() int
}

// FrequencyTable exposes corpus-wide tag occurrence counts. A missing tag
// is reported as count 0.
type FrequencyTable interface {
	Count(tag string) int
}

// Scorer computes embedding-based similarity using an embedding vocabulary
// and a tag-frequency table. It is stateless beyond its two collaborators
// and safe for concurrent use.
type Scorer struct {
	embedder Embedder
	freq     FrequencyTable
}

// NewScorer creates a Scorer over the given vocabulary and frequency table.
func NewScorer(embedder Embedder, freq FrequencyTable) *Scorer {
	return &Scorer{embedder: embedder, freq: freq}
}

// EmbedTags builds a track-level vector for a tag list. Each resolvable
// tag contributes its embedding weighted by 1/ln(frequency+2); the result
// is the weighted sum divided by the weight sum. Rare tags therefore pull
// harder than ubiquitous ones. If no tag resolves, the zero vector of the
// embedding dimensionality is returned.
func (s *Scorer) EmbedTags(tagList []string) Vector {
	sum := make(Vector, s.embedder.Dimensions())
	var weightSum float64

	for _, tag := range tagList {
		vec, ok := s.embedder.Lookup(tag)
		if !ok {
			continue
		}
		w := 1 / math.Log(float64(s.freq.Count(tag))+2)
		for i, x := range vec {
			sum[i] += x * w
		}
		weightSum += w
	}

	if weightSum == 0 {
		return sum
	}
	for i := range sum {
		sum[i] /= weightSum
	}
	return sum
}

// TagSimilarity scores a candidate tag set against a seed tag set:
//
//	alpha*cosine(embed(seed), embed(cand)) + (1-alpha)*jaccard(seed, cand)
//
// If subgenre is non-empty and present in the candidate tags, the result is
// blended toward a perfect score: 0.85*combined + 0.15*1.0.
func (s *Scorer) TagSimilarity(seedTags, candidateTags []string, alpha float64, subgenre string) float64 {
	semantic := Cosine(s.EmbedTags(seedTags), s.EmbedTags(candidateTags))
	jaccard := Jaccard(seedTags, candidateTags)
	combined := alpha*semantic + (1-alpha)*jaccard

	if subgenre != "" && containsTag(candidateTags, subgenre) {
		combined = BlendSubgenre(combined)
	}
	return combined
}

// BlendSubgenre pulls a combined score toward a perfect match. Applied when
// the caller's preferred subgenre appears in a candidate's tags.
func BlendSubgenre(score float64) float64 {
	return (1-subgenreBlend)*score + subgenreBlend*1.0
}

// Jaccard returns |a ∩ b| / |a ∪ b| over case-sensitive set semantics,
// or 0 when either set is empty. Inputs are expected to be normalized
// (lowercase, deduplicated) before the call.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	var intersection int
	for t := range setB {
		if _, ok := setA[t]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// MatchBlend combines an upstream provider match score with the Jaccard
// overlap of the seed and candidate tag sets:
//
//	0.7*matchScore + 0.3*jaccard
//
// When either tag set is empty there is no lexical signal and the provider
// score is trusted as-is. The result is rounded to 4 decimals.
func MatchBlend(matchScore float64, seedTags, candidateTags []string) float64 {
	if len(seedTags) == 0 || len(candidateTags) == 0 {
		return Round4(matchScore)
	}
	return Round4(0.7*matchScore + 0.3*Jaccard(seedTags, candidateTags))
}

// Round4 rounds to 4 decimal places.
func Round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func containsTag(list []string, tag string) bool {
	tag = strings.ToLower(tag)
	for _, t := range list {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}
