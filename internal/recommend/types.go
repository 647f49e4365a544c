// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

import (
	"sort"
	"strconv"
	"strings"
)

// PopularityTier expresses how deep into a tag's catalog the fallback stage
// should reach. More obscure tiers page further from the popular head.
type PopularityTier string

const (
	TierAny      PopularityTier = ""
	TierKnown    PopularityTier = "known"
	TierDeepCuts PopularityTier = "deepcuts"
	TierObscure  PopularityTier = "obscure"
)

// ParseTier maps a request string to a tier. Unrecognized values degrade to
// TierAny rather than failing the request.
func ParseTier(s string) PopularityTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "known":
		return TierKnown
	case "deepcuts", "deep_cuts", "deep cuts":
		return TierDeepCuts
	case "obscure":
		return TierObscure
	default:
		return TierAny
	}
}

// FallbackPage returns the tag-pool page the fallback stage starts from.
// Obscure listeners start deep in the catalog, deep-cuts listeners partway,
// everyone else at the front.
func (t PopularityTier) FallbackPage() int {
	switch t {
	case TierObscure:
		return 16
	case TierDeepCuts:
		return 8
	default:
		return 1
	}
}

func (t PopularityTier) String() string { return string(t) }

// TrackRef is a provider-supplied reference to a track, before any local
// scoring or enrichment.
type TrackRef struct {
	Artist     string
	Name       string
	URL        string
	MatchScore float64 // provider similarity, 0 when the provider gave none
}

// TrackInfo is catalog metadata for a seed track resolved by ID.
type TrackInfo struct {
	ID     int64
	Title  string
	Artist string
	Album  string
	Cover  string
	URL    string
}

// ArtistInfo carries the tag and relationship data the pipeline needs about
// an artist.
type ArtistInfo struct {
	Name    string
	Tags    []string
	Similar []string
}

// Artwork is resolved album art for a candidate.
type Artwork struct {
	Cover   string
	Preview string
}

// Candidate is one recommended track. MatchScore is a pointer because
// tag-pool and offline candidates have no provider similarity at all, and
// the wire format must distinguish "absent" from zero.
type Candidate struct {
	Artist      string   `json:"artist"`
	Name        string   `json:"name"`
	URL         string   `json:"url,omitempty"`
	MatchScore  *float64 `json:"match_score"`
	Tags        []string `json:"tags"`
	AllTags     []string `json:"all_tags,omitempty"`
	FinalScore  float64  `json:"final_score"`
	Explanation string   `json:"explanation"`
	AlbumCover  string   `json:"album_cover,omitempty"`
	Preview     string   `json:"preview,omitempty"`
}

// Key returns the case-insensitive identity used for deduplication.
func (c *Candidate) Key() string {
	return strings.ToLower(c.Artist) + "\x00" + strings.ToLower(c.Name)
}

// Request is a resolved recommendation request.
type Request struct {
	TrackIDs   []int64
	Popularity PopularityTier
	Subgenre   string
	RequestID  string
}

// CacheKey returns a canonical key for the request: sorted seed IDs plus
// the knobs that change the result. Two requests naming the same seeds in
// different order hit the same cache entry.
func (r *Request) CacheKey() string {
	ids := make([]int64, len(r.TrackIDs))
	copy(ids, r.TrackIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte('|')
	b.WriteString(string(r.Popularity))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(r.Subgenre)))
	return b.String()
}

// Metadata describes how a response was produced.
type Metadata struct {
	RequestID    string `json:"request_id"`
	SeedCount    int    `json:"seed_count"`
	PrimaryCount int    `json:"primary_count"`
	UsedOffline  bool   `json:"used_offline"`
	CacheHit     bool   `json:"cache_hit"`
	ElapsedMS    int64  `json:"elapsed_ms"`
}

// Response is a completed recommendation run.
type Response struct {
	Candidates []Candidate `json:"recommendations"`
	Metadata   Metadata    `json:"metadata"`
}

// ArtistSet is a case-insensitive set of artist names.
type ArtistSet map[string]struct{}

// NewArtistSet builds a set from the given names.
func NewArtistSet(names ...string) ArtistSet {
	s := make(ArtistSet, len(names))
	s.Add(names...)
	return s
}

// Add inserts names into the set, ignoring blanks.
func (s ArtistSet) Add(names ...string) {
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		s[n] = struct{}{}
	}
}

// Contains reports whether name is in the set.
func (s ArtistSet) Contains(name string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// seedContext is the accumulated state shared by every pipeline stage for
// one request. It is built once during the primary stage and read-only
// afterwards.
type seedContext struct {
	seeds          []seedTrack
	tags           []string          // union of per-seed tag lists
	similarArtists ArtistSet         // union of per-seed similar artists
	similarOrdered []string          // similar artists in discovery order
	similarSources map[string]string // lowercased similar artist -> seed artist
	fallbackPage   int
	subgenre       string
	tier           PopularityTier
}

// seedTrack is one resolved seed with its tag profile.
type seedTrack struct {
	info TrackInfo
	tags []string
}
