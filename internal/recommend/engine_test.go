// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nexttrack/internal/recommend/offline"
	"github.com/tomtom215/nexttrack/internal/recommend/similarity"
)

// noVocab is an empty embedding vocabulary; tag similarity degrades to the
// Jaccard term alone, which keeps expected scores easy to compute by hand.
type noVocab struct{}

func (noVocab) Lookup(string) (similarity.Vector, bool) { return nil, false }
func (noVocab) Dimensions() int                         { return 2 }

type flatFreq struct{}

func (flatFreq) Count(string) int { return 0 }

// stubSource implements every provider interface from fixture maps keyed
// by lowercased "artist|name" (or tag, or artist).
type stubSource struct {
	mu        sync.Mutex
	infos     map[int64]TrackInfo
	trackTags map[string][]string
	similar   map[string][]TrackRef
	tagPool   map[string][]TrackRef
	artists   map[string]ArtistInfo
	topTracks map[string][]TrackRef
	art       map[string]Artwork
	poolPages map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{
		infos:     make(map[int64]TrackInfo),
		trackTags: make(map[string][]string),
		similar:   make(map[string][]TrackRef),
		tagPool:   make(map[string][]TrackRef),
		artists:   make(map[string]ArtistInfo),
		topTracks: make(map[string][]TrackRef),
		art:       make(map[string]Artwork),
		poolPages: make(map[string]int),
	}
}

func trackKey(artist, name string) string {
	return strings.ToLower(artist) + "|" + strings.ToLower(name)
}

func (s *stubSource) TrackInfo(_ context.Context, id int64) (*TrackInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.infos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &info, nil
}

func (s *stubSource) TrackTags(_ context.Context, artist, track string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackTags[trackKey(artist, track)], nil
}

func (s *stubSource) SimilarTracks(_ context.Context, artist, track string, _ int) ([]TrackRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.similar[trackKey(artist, track)], nil
}

func (s *stubSource) TopTracksByTag(_ context.Context, tag string, _, page int) ([]TrackRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poolPages[tag] = page
	return s.tagPool[tag], nil
}

func (s *stubSource) ArtistInfo(_ context.Context, name string) (*ArtistInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artists[strings.ToLower(name)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *stubSource) ArtistTopTracks(_ context.Context, artist string, _ int) ([]TrackRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topTracks[strings.ToLower(artist)], nil
}

func (s *stubSource) AlbumArt(_ context.Context, artist, track string) (*Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.art[trackKey(artist, track)]; ok {
		return &a, nil
	}
	return nil, nil
}

type stubOffline struct {
	mu     sync.Mutex
	recs   []offline.Recommendation
	called bool
	params offline.Params
}

func (s *stubOffline) Recommend(_ *similarity.Scorer, p offline.Params) []offline.Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called = true
	s.params = p
	return s.recs
}

func (s *stubOffline) wasCalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.called
}

func newTestEngine(t *testing.T, src *stubSource, off OfflineCatalog, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CacheSize = 0
	if mutate != nil {
		mutate(&cfg)
	}
	providers := Providers{
		Metadata:  src,
		Tags:      src,
		Similar:   src,
		TagPool:   src,
		Artists:   src,
		TopTracks: src,
		Artwork:   src,
		Offline:   off,
	}
	eng, err := NewEngine(cfg, providers, similarity.NewScorer(noVocab{}, flatFreq{}), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() = %v", err)
	}
	return eng
}

// fullFixture assembles a catalog where one seed yields primary, similar
// artist, and tag pool candidates, with one duplicate across stages.
func fullFixture() *stubSource {
	src := newStubSource()
	src.infos[1] = TrackInfo{ID: 1, Title: "Alison", Artist: "Slowdive"}
	src.trackTags[trackKey("Slowdive", "Alison")] = []string{"shoegaze", "dream pop"}
	src.artists["slowdive"] = ArtistInfo{Name: "Slowdive", Similar: []string{"Ride"}}

	src.similar[trackKey("Slowdive", "Alison")] = []TrackRef{
		{Artist: "Lush", Name: "Sweetness and Light", MatchScore: 0.9},
		{Artist: "Ride", Name: "Vapour Trail", MatchScore: 0.8},
	}
	src.trackTags[trackKey("Lush", "Sweetness and Light")] = []string{"shoegaze"}
	src.trackTags[trackKey("Ride", "Vapour Trail")] = []string{"shoegaze", "dream pop"}

	src.tagPool["shoegaze"] = []TrackRef{
		{Artist: "Lush", Name: "Sweetness and Light"}, // duplicate of a primary candidate
		{Artist: "Chapterhouse", Name: "Pearl"},
		{Artist: "Darkthrone", Name: "Transilvanian Hunger"},
	}
	src.tagPool["dream pop"] = []TrackRef{
		{Artist: "Beach House", Name: "Myth"},
	}
	src.trackTags[trackKey("Chapterhouse", "Pearl")] = []string{"shoegaze", "dream pop"}
	src.trackTags[trackKey("Darkthrone", "Transilvanian Hunger")] = []string{"black metal"}
	src.trackTags[trackKey("Beach House", "Myth")] = []string{"dream pop"}

	src.topTracks["ride"] = []TrackRef{
		{Artist: "Ride", Name: "Leave Them All Behind"},
	}
	src.trackTags[trackKey("Ride", "Leave Them All Behind")] = []string{"shoegaze", "dream pop"}

	src.art[trackKey("Lush", "Sweetness and Light")] = Artwork{Cover: "https://img/lush.jpg", Preview: "https://p/lush.mp3"}
	return src
}

func TestRecommendFullPipeline(t *testing.T) {
	src := fullFixture()
	off := &stubOffline{}
	eng := newTestEngine(t, src, off, func(c *Config) {
		c.SimilarArtistMinScore = 0.5
	})

	resp, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}})
	if err != nil {
		t.Fatalf("Recommend() = %v", err)
	}

	// With an empty vocabulary the similarity blend reduces to its Jaccard
	// term, so every expected score is computable by hand:
	//   Vapour Trail  0.7*0.8 + 0.3*1.0 + 0.015 = 0.875 (similar artist)
	//   Sweetness     0.7*0.9 + 0.3*0.5         = 0.78
	//   Leave Them    0.6*1.0 + 0.015           = 0.615
	//   Pearl         0.6*1.0                   = 0.6
	//   Myth          0.6*0.5                   = 0.3
	want := []struct {
		artist string
		name   string
		score  float64
	}{
		{"Ride", "Vapour Trail", 0.875},
		{"Lush", "Sweetness and Light", 0.78},
		{"Ride", "Leave Them All Behind", 0.615},
		{"Chapterhouse", "Pearl", 0.6},
		{"Beach House", "Myth", 0.3},
	}
	if len(resp.Candidates) != len(want) {
		t.Fatalf("got %d candidates, want %d: %+v", len(resp.Candidates), len(want), resp.Candidates)
	}
	for i, w := range want {
		c := resp.Candidates[i]
		if c.Artist != w.artist || c.Name != w.name {
			t.Errorf("candidate[%d] = %s - %s, want %s - %s", i, c.Artist, c.Name, w.artist, w.name)
		}
		if c.FinalScore != w.score {
			t.Errorf("candidate[%d] %s score = %v, want %v", i, w.name, c.FinalScore, w.score)
		}
	}

	// Low-overlap pool tracks fall below the score floor.
	for _, c := range resp.Candidates {
		if c.Artist == "Darkthrone" {
			t.Error("candidate below the minimum tag score was kept")
		}
	}

	// Primary candidates carry the provider score; fallback ones do not.
	if resp.Candidates[0].MatchScore == nil || *resp.Candidates[0].MatchScore != 0.8 {
		t.Errorf("primary candidate lost its provider score: %+v", resp.Candidates[0].MatchScore)
	}
	if resp.Candidates[2].MatchScore != nil {
		t.Error("fallback candidate has a provider score")
	}

	if got := resp.Candidates[2].Explanation; got != "From a similar artist to Slowdive." {
		t.Errorf("similar artist explanation = %q", got)
	}

	if resp.Candidates[1].AlbumCover != "https://img/lush.jpg" || resp.Candidates[1].Preview != "https://p/lush.mp3" {
		t.Errorf("artwork not applied: %+v", resp.Candidates[1])
	}

	if off.wasCalled() {
		t.Error("offline catalog consulted although the tag pool had tracks")
	}

	md := resp.Metadata
	if md.SeedCount != 1 || md.PrimaryCount != 2 || md.UsedOffline || md.CacheHit {
		t.Errorf("metadata = %+v", md)
	}
	if md.RequestID == "" {
		t.Error("request ID not assigned")
	}
}

func TestSimilarArtistTracksUseArtistTagsWhenUntagged(t *testing.T) {
	src := newStubSource()
	src.infos[1] = TrackInfo{ID: 1, Title: "Alison", Artist: "Slowdive"}
	src.trackTags[trackKey("Slowdive", "Alison")] = []string{"shoegaze", "dream pop"}
	src.artists["slowdive"] = ArtistInfo{Name: "Slowdive", Similar: []string{"Ride"}}
	src.artists["ride"] = ArtistInfo{Name: "Ride", Tags: []string{"shoegaze", "dream pop"}}
	src.tagPool["shoegaze"] = []TrackRef{{Artist: "Chapterhouse", Name: "Pearl"}}
	src.trackTags[trackKey("Chapterhouse", "Pearl")] = []string{"shoegaze"}

	// No trackTags entry for the top track: scoring must fall back to the
	// artist's own tags.
	src.topTracks["ride"] = []TrackRef{{Artist: "Ride", Name: "Unfamiliar"}}

	eng := newTestEngine(t, src, &stubOffline{}, func(c *Config) {
		c.SimilarArtistMinScore = 0.5
	})

	resp, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}})
	if err != nil {
		t.Fatalf("Recommend() = %v", err)
	}

	var found *Candidate
	for i := range resp.Candidates {
		if resp.Candidates[i].Name == "Unfamiliar" {
			found = &resp.Candidates[i]
		}
	}
	if found == nil {
		t.Fatalf("untagged top track dropped: %+v", resp.Candidates)
	}
	// Jaccard 1.0 against the seed union plus the artist boost.
	if found.FinalScore != 0.615 {
		t.Errorf("score = %v, want 0.615", found.FinalScore)
	}
}

func TestRecommendOfflineTrigger(t *testing.T) {
	src := newStubSource()
	src.infos[1] = TrackInfo{ID: 1, Title: "Alison", Artist: "Slowdive"}
	src.trackTags[trackKey("Slowdive", "Alison")] = []string{"shoegaze", "dream pop"}
	src.artists["slowdive"] = ArtistInfo{Name: "Slowdive"}
	// No similar tracks, no tag pool: the live sources are dry.

	off := &stubOffline{recs: []offline.Recommendation{
		{Track: offline.Track{Artist: "Low", Name: "Sunflower", Tags: []string{"slowcore", "indie"}}, Score: 0.42},
	}}
	eng := newTestEngine(t, src, off, nil)

	resp, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}, Popularity: TierObscure})
	if err != nil {
		t.Fatalf("Recommend() = %v", err)
	}

	if !off.wasCalled() {
		t.Fatal("offline catalog not consulted although the tag pool was empty")
	}
	if !resp.Metadata.UsedOffline {
		t.Error("metadata does not report offline use")
	}
	if len(resp.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(resp.Candidates))
	}

	c := resp.Candidates[0]
	if c.Artist != "Low" || c.Name != "Sunflower" {
		t.Errorf("candidate = %s - %s", c.Artist, c.Name)
	}
	if c.MatchScore != nil {
		t.Error("offline candidate has a provider score")
	}
	if c.FinalScore != 0.42 {
		t.Errorf("score = %v, want 0.42", c.FinalScore)
	}
	if c.Explanation != "Related in spirit, blending slowcore with your pick." {
		t.Errorf("explanation = %q", c.Explanation)
	}

	if off.params.Tier != "obscure" {
		t.Errorf("offline tier = %q, want obscure", off.params.Tier)
	}
	if len(off.params.SeedTags) != 2 {
		t.Errorf("offline seed tags = %v", off.params.SeedTags)
	}
}

func TestRecommendOfflineSkippedWithoutSeedTags(t *testing.T) {
	src := newStubSource()
	src.infos[1] = TrackInfo{ID: 1, Title: "Untagged", Artist: "Nobody"}
	// No artist info, no tags: the seed resolves but yields no profile.

	off := &stubOffline{recs: []offline.Recommendation{
		{Track: offline.Track{Artist: "Low", Name: "Sunflower"}, Score: 0.5},
	}}
	eng := newTestEngine(t, src, off, nil)

	resp, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}})
	if err != nil {
		t.Fatalf("Recommend() = %v", err)
	}
	if off.wasCalled() {
		t.Error("offline catalog consulted without seed tags")
	}
	if len(resp.Candidates) != 0 {
		t.Errorf("got %d candidates, want 0", len(resp.Candidates))
	}
}

func TestRecommendOfflineSkippedWhenPoolScoresBelowFloor(t *testing.T) {
	src := newStubSource()
	src.infos[1] = TrackInfo{ID: 1, Title: "Alison", Artist: "Slowdive"}
	src.trackTags[trackKey("Slowdive", "Alison")] = []string{"shoegaze", "dream pop"}
	src.artists["slowdive"] = ArtistInfo{Name: "Slowdive"}

	// The tag pool has tracks, but none shares a tag with the seed, so all
	// of them score below the floor. A non-empty pool keeps the offline
	// catalog out even when nothing from it survives scoring.
	src.tagPool["shoegaze"] = []TrackRef{
		{Artist: "Darkthrone", Name: "Transilvanian Hunger"},
	}
	src.trackTags[trackKey("Darkthrone", "Transilvanian Hunger")] = []string{"black metal"}

	off := &stubOffline{recs: []offline.Recommendation{
		{Track: offline.Track{Artist: "Low", Name: "Sunflower"}, Score: 0.5},
	}}
	eng := newTestEngine(t, src, off, nil)

	resp, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}})
	if err != nil {
		t.Fatalf("Recommend() = %v", err)
	}
	if off.wasCalled() {
		t.Error("offline catalog consulted although the tag pool had tracks")
	}
	if resp.Metadata.UsedOffline {
		t.Error("metadata reports offline use")
	}
	if len(resp.Candidates) != 0 {
		t.Errorf("got %d candidates, want 0: %+v", len(resp.Candidates), resp.Candidates)
	}
}

func TestTagPoolFloorComparesUnroundedScore(t *testing.T) {
	src := newStubSource()
	src.infos[1] = TrackInfo{ID: 1, Title: "Alison", Artist: "Slowdive"}
	seedTags := []string{"shoegaze", "dream pop", "ethereal", "ambient", "post-rock", "indie rock"}
	src.trackTags[trackKey("Slowdive", "Alison")] = seedTags
	src.artists["slowdive"] = ArtistInfo{Name: "Slowdive"}

	src.tagPool["shoegaze"] = []TrackRef{
		{Artist: "Whirr", Name: "Drain"},
		{Artist: "Cocteau Twins", Name: "Cherry-coloured Funk"},
	}
	// Jaccard 5/7 gives a raw score of 0.6*5/7 = 0.42857..., which rounds
	// to 0.4286. With the floor at 0.4286 the raw value is below and the
	// rounded value is not; only the raw comparison drops the track.
	src.trackTags[trackKey("Whirr", "Drain")] = []string{"shoegaze", "dream pop", "ethereal", "ambient", "post-rock", "slowcore"}
	src.trackTags[trackKey("Cocteau Twins", "Cherry-coloured Funk")] = seedTags

	eng := newTestEngine(t, src, nil, func(c *Config) {
		c.MinTagScore = 0.4286
	})

	resp, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}})
	if err != nil {
		t.Fatalf("Recommend() = %v", err)
	}
	if len(resp.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(resp.Candidates), resp.Candidates)
	}
	c := resp.Candidates[0]
	if c.Artist != "Cocteau Twins" {
		t.Errorf("kept candidate = %s - %s, want the full-overlap track", c.Artist, c.Name)
	}
	if c.FinalScore != 0.6 {
		t.Errorf("score = %v, want 0.6", c.FinalScore)
	}
}

func TestRecommendPopularityPaging(t *testing.T) {
	makeSrc := func() *stubSource {
		src := newStubSource()
		src.infos[1] = TrackInfo{ID: 1, Title: "Alison", Artist: "Slowdive"}
		src.trackTags[trackKey("Slowdive", "Alison")] = []string{"shoegaze", "dream pop"}
		src.artists["slowdive"] = ArtistInfo{Name: "Slowdive"}

		refs := make([]TrackRef, 20)
		for i := range refs {
			refs[i] = TrackRef{Artist: "Artist", Name: "Track " + string(rune('A'+i)), MatchScore: 0.9}
		}
		src.similar[trackKey("Slowdive", "Alison")] = refs
		return src
	}

	tests := []struct {
		tier        PopularityTier
		wantPage    int
		wantPrimary int
		firstName   string
	}{
		{TierAny, 1, 6, "Track A"},
		{TierDeepCuts, 8, 6, "Track H"},
		{TierObscure, 16, 5, "Track P"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier)+"/"+tt.firstName, func(t *testing.T) {
			src := makeSrc()
			eng := newTestEngine(t, src, nil, nil)

			resp, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}, Popularity: tt.tier})
			if err != nil {
				t.Fatalf("Recommend() = %v", err)
			}
			if resp.Metadata.PrimaryCount != tt.wantPrimary {
				t.Errorf("primary count = %d, want %d", resp.Metadata.PrimaryCount, tt.wantPrimary)
			}

			src.mu.Lock()
			page := src.poolPages["shoegaze"]
			src.mu.Unlock()
			if page != tt.wantPage {
				t.Errorf("tag pool page = %d, want %d", page, tt.wantPage)
			}

			found := false
			for _, c := range resp.Candidates {
				if c.Name == tt.firstName {
					found = true
				}
			}
			if !found {
				t.Errorf("window start %q missing from candidates", tt.firstName)
			}
		})
	}
}

func TestRecommendCache(t *testing.T) {
	src := fullFixture()
	eng := newTestEngine(t, src, nil, func(c *Config) {
		c.CacheSize = 8
	})

	first, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}})
	if err != nil {
		t.Fatalf("first Recommend() = %v", err)
	}
	if first.Metadata.CacheHit {
		t.Error("first run reported a cache hit")
	}

	second, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{1}})
	if err != nil {
		t.Fatalf("second Recommend() = %v", err)
	}
	if !second.Metadata.CacheHit {
		t.Error("second run missed the cache")
	}
	if len(second.Candidates) != len(first.Candidates) {
		t.Errorf("cached run returned %d candidates, want %d", len(second.Candidates), len(first.Candidates))
	}
	if second.Metadata.RequestID == first.Metadata.RequestID {
		t.Error("cached response reused the previous request ID")
	}
}

func TestRecommendSeedErrors(t *testing.T) {
	src := fullFixture()
	eng := newTestEngine(t, src, nil, nil)

	if _, err := eng.Recommend(context.Background(), Request{}); !errors.Is(err, ErrNoSeeds) {
		t.Errorf("empty request error = %v, want ErrNoSeeds", err)
	}

	// Unresolvable seeds are not an error; the caller sees an empty list.
	resp, err := eng.Recommend(context.Background(), Request{TrackIDs: []int64{404}})
	if err != nil {
		t.Fatalf("unknown seed Recommend() = %v", err)
	}
	if resp.Candidates == nil || len(resp.Candidates) != 0 {
		t.Errorf("candidates = %#v, want empty non-nil list", resp.Candidates)
	}
	if resp.Metadata.SeedCount != 0 {
		t.Errorf("seed count = %d, want 0", resp.Metadata.SeedCount)
	}
	if resp.Metadata.RequestID == "" {
		t.Error("request ID not assigned on empty result")
	}

	// A bad seed next to a good one is skipped, not fatal.
	resp, err = eng.Recommend(context.Background(), Request{TrackIDs: []int64{404, 1}})
	if err != nil {
		t.Fatalf("mixed seeds Recommend() = %v", err)
	}
	if resp.Metadata.SeedCount != 1 {
		t.Errorf("seed count = %d, want 1", resp.Metadata.SeedCount)
	}
}

func TestNewEngineValidation(t *testing.T) {
	src := newStubSource()
	scorer := similarity.NewScorer(noVocab{}, flatFreq{})

	cfg := DefaultConfig()
	cfg.Alpha = 2
	if _, err := NewEngine(cfg, Providers{Metadata: src, Tags: src, Similar: src, TagPool: src, Artists: src}, scorer, zerolog.Nop()); err == nil {
		t.Error("invalid config accepted")
	}

	if _, err := NewEngine(DefaultConfig(), Providers{Tags: src, Similar: src, TagPool: src, Artists: src}, scorer, zerolog.Nop()); err == nil {
		t.Error("missing metadata provider accepted")
	}

	if _, err := NewEngine(DefaultConfig(), Providers{Metadata: src, Tags: src, Similar: src, TagPool: src, Artists: src}, nil, zerolog.Nop()); err == nil {
		t.Error("nil scorer accepted")
	}
}
