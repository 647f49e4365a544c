// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

import (
	"fmt"
	"strings"

	"github.com/tomtom215/nexttrack/internal/tags"
)

// defaultExplainScore stands in when a candidate carries no final score,
// placing it in the low-confidence branch of the decision tree.
const defaultExplainScore = 0.2

// Explain produces a one-sentence, human-readable reason for a candidate.
// The output is a pure function of its inputs: same candidate tags, score,
// seed tags, and artist relationship always yield the same sentence.
func Explain(candidateTags []string, finalScore *float64, seedTags []string, artistIsSimilar bool, seedArtist string) string {
	score := defaultExplainScore
	if finalScore != nil {
		score = *finalScore
	}

	if len(candidateTags) == 0 {
		return "A wild card based on your pick."
	}
	if artistIsSimilar && seedArtist != "" {
		return fmt.Sprintf("From a similar artist to %s.", seedArtist)
	}

	shared := sharedTags(candidateTags, seedTags)

	switch {
	case score > 0.7:
		switch {
		case len(shared) == 1:
			if extra := firstExtraTag(candidateTags, shared); extra != "" {
				return fmt.Sprintf("Strong match, sharing %s influences and adding %s.", shared[0], extra)
			}
			return fmt.Sprintf("Strong match, sharing %s influences.", shared[0])
		case len(shared) > 1:
			return fmt.Sprintf("Strong match, sharing %s influences.", strings.Join(shared, ", "))
		default:
			return fmt.Sprintf("Strong match, carrying %s vibes similar to your picks.", displayTag(candidateTags[0]))
		}
	case score > 0.4:
		if len(shared) > 0 {
			return fmt.Sprintf("Builds on %s.", strings.Join(shared, ", "))
		}
		return fmt.Sprintf("Related in spirit, blending %s with your pick.", displayTag(candidateTags[0]))
	default:
		return fmt.Sprintf("A wildcard, leaning into %s for a fresh twist.", displayTag(candidateTags[0]))
	}
}

// sharedTags returns the candidate tags also present in the seed profile,
// in candidate order. Candidate order keeps the sentence deterministic.
func sharedTags(candidateTags, seedTags []string) []string {
	var out []string
	for _, t := range candidateTags {
		if tags.Contains(seedTags, t) {
			out = append(out, t)
		}
	}
	return out
}

// firstExtraTag returns the first candidate tag outside the shared set.
func firstExtraTag(candidateTags, shared []string) string {
	for _, t := range candidateTags {
		if !tags.Contains(shared, t) {
			return t
		}
	}
	return ""
}

// displayTag cleans a raw tag for prose.
func displayTag(t string) string {
	return strings.ReplaceAll(strings.ToLower(t), "_", " ")
}
