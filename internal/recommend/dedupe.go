// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

// Dedupe removes duplicate candidates by case-insensitive (artist, name)
// identity. The first occurrence wins and insertion order is preserved, so
// earlier pipeline stages take precedence over later ones.
func Dedupe(in []Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		key := c.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
