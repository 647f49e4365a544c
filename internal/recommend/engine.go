// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/nexttrack/internal/cache"
	"github.com/tomtom215/nexttrack/internal/metrics"
	"github.com/tomtom215/nexttrack/internal/recommend/offline"
	"github.com/tomtom215/nexttrack/internal/recommend/similarity"
	"github.com/tomtom215/nexttrack/internal/tags"
)

// scoredTagWorkers bounds the fan-out that scores tag-pool candidates.
// The pool can hold hundreds of tracks; each needs one upstream tag fetch.
const scoredTagWorkers = 32

// Engine runs the staged recommendation pipeline: a primary similar-tracks
// pass per seed, an unconditional tag-pool fallback, and a local offline
// catalog pass when every live source comes back empty. Results are
// deduplicated, ranked, explained, and art-enriched before return.
//
// The engine owns no transport or persistence; everything external enters
// through Providers. Per-item provider failures are logged and dropped,
// never escalated: a recommendation run degrades, it does not abort.
type Engine struct {
	cfg       Config
	providers Providers
	scorer    *similarity.Scorer
	logger    zerolog.Logger
	respCache *cache.LRU[*Response]
}

// NewEngine validates the configuration and wiring and returns a ready
// engine.
func NewEngine(cfg Config, providers Providers, scorer *similarity.Scorer, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := providers.validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, errMissingProvider("similarity scorer")
	}

	e := &Engine{
		cfg:       cfg,
		providers: providers,
		scorer:    scorer,
		logger:    logger.With().Str("component", "engine").Logger(),
	}
	if cfg.CacheSize > 0 {
		e.respCache = cache.NewLRU[*Response](cfg.CacheSize, cfg.CacheTTL)
	}
	return e, nil
}

// Recommend executes the full pipeline for one request.
//
// Stage order is fixed: primary candidates come first in the pooled list,
// then similar-artist tracks, then scored tag-pool candidates, then (only
// when the live sources produced nothing) offline catalog rows. Because
// deduplication keeps the first occurrence, earlier stages win ties.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	if len(req.TrackIDs) == 0 {
		return nil, ErrNoSeeds
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	start := time.Now()

	key := req.CacheKey()
	if e.respCache != nil {
		if cached, ok := e.respCache.Get(key); ok {
			metrics.RecordCacheLookup("response", true)
			metrics.RecordPipelineRun("cache_hit", time.Since(start))
			resp := *cached
			resp.Metadata.RequestID = req.RequestID
			resp.Metadata.CacheHit = true
			resp.Metadata.ElapsedMS = time.Since(start).Milliseconds()
			return &resp, nil
		}
		metrics.RecordCacheLookup("response", false)
	}

	sc, primary := e.primaryStage(ctx, &req)
	if len(sc.seeds) == 0 {
		e.logger.Warn().Str("request_id", req.RequestID).Msg("no seed track resolved, returning empty result")
		metrics.RecordPipelineRun("no_seeds", time.Since(start))
		return &Response{
			Candidates: []Candidate{},
			Metadata: Metadata{
				RequestID: req.RequestID,
				ElapsedMS: time.Since(start).Milliseconds(),
			},
		}, nil
	}

	pooled := primary
	fallback, hasFallback := e.tagFallbackStage(ctx, sc)
	pooled = append(pooled, fallback...)

	usedOffline := false
	if !hasFallback && len(sc.tags) > 0 && e.providers.Offline != nil {
		offlineCands := e.offlineStage(sc)
		pooled = append(pooled, offlineCands...)
		usedOffline = true
		metrics.OfflineFallbacks.Inc()
		metrics.RecordStage("offline", len(offlineCands))
	}
	metrics.RecordStage("primary", len(primary))
	metrics.RecordStage("fallback", len(fallback))

	final := Dedupe(pooled)
	sort.SliceStable(final, func(i, j int) bool {
		return final[i].FinalScore > final[j].FinalScore
	})
	e.enrichArtwork(ctx, final)

	resp := &Response{
		Candidates: final,
		Metadata: Metadata{
			RequestID:    req.RequestID,
			SeedCount:    len(sc.seeds),
			PrimaryCount: len(primary),
			UsedOffline:  usedOffline,
			ElapsedMS:    time.Since(start).Milliseconds(),
		},
	}

	e.logger.Info().
		Str("request_id", req.RequestID).
		Int("seeds", len(sc.seeds)).
		Int("primary", len(primary)).
		Int("fallback", len(fallback)).
		Bool("offline", usedOffline).
		Int("total", len(final)).
		Dur("elapsed", time.Since(start)).
		Msg("recommendation run complete")

	metrics.RecordPipelineRun("ok", time.Since(start))
	if e.respCache != nil {
		e.respCache.Set(key, resp)
	}
	return resp, nil
}

// primaryStage resolves every seed, builds the shared seed context, and
// produces directly-similar candidates. Seeds that fail to resolve are
// skipped; the run proceeds with whatever resolved.
func (e *Engine) primaryStage(ctx context.Context, req *Request) (*seedContext, []Candidate) {
	sc := &seedContext{
		similarArtists: make(ArtistSet),
		similarSources: make(map[string]string),
		fallbackPage:   req.Popularity.FallbackPage(),
		subgenre:       fold(req.Subgenre),
		tier:           req.Popularity,
	}

	var primary []Candidate
	for _, id := range req.TrackIDs {
		info, err := e.providers.Metadata.TrackInfo(ctx, id)
		if err != nil {
			e.logger.Warn().Err(err).Int64("track_id", id).Msg("seed lookup failed, skipping")
			continue
		}

		seedTags := e.resolveSeedProfile(ctx, sc, info)
		sc.seeds = append(sc.seeds, seedTrack{info: *info, tags: seedTags})
		sc.tags = tags.Union(sc.tags, seedTags)

		primary = append(primary, e.similarTrackCandidates(ctx, sc, info, seedTags)...)
	}
	return sc, primary
}

// resolveSeedProfile builds the tag profile for one seed and records the
// seed's similar artists. Track-level tags are preferred; a thin result
// falls back to artist-level tags.
func (e *Engine) resolveSeedProfile(ctx context.Context, sc *seedContext, info *TrackInfo) []string {
	var artist *ArtistInfo
	if a, err := e.providers.Artists.ArtistInfo(ctx, info.Artist); err != nil {
		e.logger.Debug().Err(err).Str("artist", info.Artist).Msg("artist info unavailable")
	} else {
		artist = a
		for _, sim := range a.Similar {
			if sc.similarArtists.Contains(sim) {
				continue
			}
			sc.similarArtists.Add(sim)
			sc.similarOrdered = append(sc.similarOrdered, sim)
			sc.similarSources[fold(sim)] = info.Artist
		}
	}

	raw, err := e.providers.Tags.TrackTags(ctx, info.Artist, info.Title)
	if err != nil {
		e.logger.Debug().Err(err).Str("artist", info.Artist).Str("track", info.Title).Msg("track tags unavailable")
	}
	seedTags := tags.Filter(tags.Normalize(raw))
	if len(seedTags) < 2 && artist != nil {
		seedTags = tags.Filter(tags.Normalize(artist.Tags))
	}
	return tags.Cap(seedTags, e.cfg.MaxSeedTags)
}

// similarTrackCandidates fetches the provider's similar tracks for one
// seed, slices the popularity window, and scores each candidate.
func (e *Engine) similarTrackCandidates(ctx context.Context, sc *seedContext, info *TrackInfo, seedTags []string) []Candidate {
	refs, err := e.providers.Similar.SimilarTracks(ctx, info.Artist, info.Title, e.cfg.SimilarTracksLimit)
	if err != nil {
		e.logger.Warn().Err(err).Str("artist", info.Artist).Str("track", info.Title).Msg("similar tracks fetch failed")
		return nil
	}

	window := pageWindow(refs, sc.fallbackPage, e.cfg.SimilarTracksWindow)
	if len(window) > e.cfg.PrimaryLimit {
		window = window[:e.cfg.PrimaryLimit]
	}

	results := fanOut(ctx, window, 0, func(ctx context.Context, ref TrackRef) (Candidate, error) {
		return e.scorePrimaryCandidate(ctx, sc, ref, info.Artist, seedTags), nil
	})

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			continue
		}
		out = append(out, r.value)
	}
	return out
}

// scorePrimaryCandidate blends the provider match score with tag overlap.
// A failed tag fetch degrades to an unscored wild card, not a dropped row.
func (e *Engine) scorePrimaryCandidate(ctx context.Context, sc *seedContext, ref TrackRef, seedArtist string, seedTags []string) Candidate {
	raw, err := e.providers.Tags.TrackTags(ctx, ref.Artist, ref.Name)
	if err != nil {
		e.logger.Debug().Err(err).Str("artist", ref.Artist).Str("track", ref.Name).Msg("candidate tags unavailable")
	}
	ctags := tags.Filter(tags.Normalize(raw))

	score := similarity.MatchBlend(ref.MatchScore, seedTags, ctags)
	artistSim := sc.similarArtists.Contains(ref.Artist)
	if artistSim {
		score = similarity.Round4(clamp01(score + e.cfg.ArtistBoost))
	}

	display := tags.Cap(ctags, e.cfg.CandidateTagLimit)
	provider := ref.MatchScore
	return Candidate{
		Artist:      ref.Artist,
		Name:        ref.Name,
		URL:         ref.URL,
		MatchScore:  &provider,
		Tags:        display,
		FinalScore:  score,
		Explanation: Explain(display, &score, seedTags, artistSim, seedArtist),
	}
}

// tagFallbackStage fans out over the seed tag union, pools each tag's top
// tracks at the popularity page, and scores the pool. It also pulls top
// tracks from similar artists. The boolean reports whether the live tag
// pool produced anything at all; when false the caller may try the offline
// catalog.
func (e *Engine) tagFallbackStage(ctx context.Context, sc *seedContext) ([]Candidate, bool) {
	fbTags := tags.Cap(sc.tags, e.cfg.MaxFallbackTags)
	if len(fbTags) == 0 {
		return nil, false
	}

	results := fanOut(ctx, fbTags, 0, func(ctx context.Context, tag string) ([]TrackRef, error) {
		return e.providers.TagPool.TopTracksByTag(ctx, tag, e.cfg.MaxPerTag, sc.fallbackPage)
	})

	var pool []TrackRef
	seen := make(map[string]struct{})
	for i, r := range results {
		if r.err != nil {
			e.logger.Warn().Err(r.err).Str("tag", fbTags[i]).Msg("tag pool fetch failed")
			continue
		}
		for _, ref := range r.value {
			key := fold(ref.Artist) + "\x00" + fold(ref.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			pool = append(pool, ref)
			if len(pool) >= e.cfg.MaxTagCandidates {
				break
			}
		}
		if len(pool) >= e.cfg.MaxTagCandidates {
			break
		}
	}

	if len(pool) == 0 {
		return nil, false
	}

	out := e.similarArtistCandidates(ctx, sc)
	out = append(out, e.scoreTagPool(ctx, sc, pool)...)
	return out, true
}

// scoreTagPool fetches tags for every pooled track and keeps those scoring
// at or above the floor, ranked descending and capped.
func (e *Engine) scoreTagPool(ctx context.Context, sc *seedContext, pool []TrackRef) []Candidate {
	type scored struct {
		cand Candidate
		keep bool
	}

	results := fanOut(ctx, pool, scoredTagWorkers, func(ctx context.Context, ref TrackRef) (scored, error) {
		raw, err := e.providers.Tags.TrackTags(ctx, ref.Artist, ref.Name)
		if err != nil {
			return scored{}, err
		}
		ctags := tags.Filter(tags.Normalize(raw))

		score := e.scorer.TagSimilarity(sc.tags, ctags, e.cfg.Alpha, sc.subgenre)
		artistSim := sc.similarArtists.Contains(ref.Artist)
		if artistSim {
			score = clamp01(score + e.cfg.ArtistBoost)
		}
		// The floor sees the raw score; rounding is for display only.
		if score < e.cfg.MinTagScore {
			return scored{}, nil
		}
		score = similarity.Round4(score)

		overlap := tags.Cap(sharedTags(ctags, sc.tags), e.cfg.CandidateTagLimit)
		return scored{
			keep: true,
			cand: Candidate{
				Artist:      ref.Artist,
				Name:        ref.Name,
				URL:         ref.URL,
				Tags:        overlap,
				AllTags:     tags.Cap(ctags, e.cfg.FallbackTagLimit),
				FinalScore:  score,
				Explanation: Explain(overlap, &score, sc.tags, artistSim, seedArtistFor(sc, ref.Artist)),
			},
		}, nil
	})

	out := make([]Candidate, 0, len(results))
	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		if r.value.keep {
			out = append(out, r.value.cand)
		}
	}
	if failed > 0 {
		e.logger.Debug().Int("failed", failed).Int("pooled", len(pool)).Msg("tag pool candidates dropped on fetch failure")
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	if len(out) > e.cfg.MaxFallbackResults {
		out = out[:e.cfg.MaxFallbackResults]
	}
	return out
}

// similarArtistCandidates pulls top tracks from the first few similar
// artists and keeps only strong tag matches. Skipped entirely when no top
// tracks provider is wired.
func (e *Engine) similarArtistCandidates(ctx context.Context, sc *seedContext) []Candidate {
	if e.providers.TopTracks == nil || len(sc.similarOrdered) == 0 {
		return nil
	}
	artists := sc.similarOrdered
	if len(artists) > e.cfg.SimilarArtistLimit {
		artists = artists[:e.cfg.SimilarArtistLimit]
	}

	results := fanOut(ctx, artists, 0, func(ctx context.Context, artist string) ([]Candidate, error) {
		refs, err := e.providers.TopTracks.ArtistTopTracks(ctx, artist, e.cfg.TopTracksPerArtist)
		if err != nil {
			return nil, err
		}

		// Fetched once per artist; tracks without track-level tags fall
		// back to these.
		var artistTags []string
		if info, err := e.providers.Artists.ArtistInfo(ctx, artist); err == nil {
			artistTags = tags.Filter(tags.Normalize(info.Tags))
		}

		var cands []Candidate
		for _, ref := range refs {
			raw, err := e.providers.Tags.TrackTags(ctx, ref.Artist, ref.Name)
			if err != nil {
				continue
			}
			ctags := tags.Filter(tags.Normalize(raw))
			if len(ctags) == 0 {
				ctags = artistTags
			}

			score := e.scorer.TagSimilarity(sc.tags, ctags, e.cfg.Alpha, sc.subgenre)
			score = similarity.Round4(clamp01(score + e.cfg.ArtistBoost))
			if score < e.cfg.SimilarArtistMinScore {
				continue
			}

			display := tags.Cap(ctags, e.cfg.CandidateTagLimit)
			cands = append(cands, Candidate{
				Artist:      ref.Artist,
				Name:        ref.Name,
				URL:         ref.URL,
				Tags:        display,
				AllTags:     tags.Cap(ctags, e.cfg.FallbackTagLimit),
				FinalScore:  score,
				Explanation: Explain(display, &score, sc.tags, true, seedArtistFor(sc, artist)),
			})
		}
		return cands, nil
	})

	var out []Candidate
	for i, r := range results {
		if r.err != nil {
			e.logger.Debug().Err(r.err).Str("artist", artists[i]).Msg("similar artist top tracks unavailable")
			continue
		}
		out = append(out, r.value...)
	}
	return out
}

// offlineStage ranks the local embedding catalog against the seed tag
// union. It runs only when the live tag pool produced nothing.
func (e *Engine) offlineStage(sc *seedContext) []Candidate {
	recs := e.providers.Offline.Recommend(e.scorer, offline.Params{
		SeedTags:    sc.tags,
		Subgenre:    sc.subgenre,
		Tier:        string(sc.tier),
		TopN:        e.cfg.OfflineTopN,
		TopSemantic: e.cfg.OfflineTopSemantic,
	})

	out := make([]Candidate, 0, len(recs))
	for _, rec := range recs {
		score := similarity.Round4(clamp01(rec.Score))
		display := tags.Cap(rec.Track.Tags, e.cfg.CandidateTagLimit)
		out = append(out, Candidate{
			Artist:      rec.Track.Artist,
			Name:        rec.Track.Name,
			Tags:        display,
			AllTags:     tags.Cap(rec.Track.Tags, e.cfg.FallbackTagLimit),
			FinalScore:  score,
			Explanation: Explain(display, &score, sc.tags, false, ""),
		})
	}
	e.logger.Info().Int("count", len(out)).Msg("offline catalog fallback used")
	return out
}

// enrichArtwork resolves album art for every candidate with a bounded
// worker pool. Failures leave the candidate without art.
func (e *Engine) enrichArtwork(ctx context.Context, cands []Candidate) {
	if e.providers.Artwork == nil || len(cands) == 0 {
		return
	}

	idxs := make([]int, len(cands))
	for i := range idxs {
		idxs[i] = i
	}
	results := fanOut(ctx, idxs, e.cfg.ArtworkWorkers, func(ctx context.Context, i int) (*Artwork, error) {
		return e.providers.Artwork.AlbumArt(ctx, cands[i].Artist, cands[i].Name)
	})

	for i, r := range results {
		if r.err != nil || r.value == nil {
			continue
		}
		cands[i].AlbumCover = r.value.Cover
		cands[i].Preview = r.value.Preview
	}
}

// pageWindow slices refs to the page-indexed window [page-1, page-1+width),
// clamped to the available range.
func pageWindow(refs []TrackRef, page, width int) []TrackRef {
	lo := page - 1
	if lo < 0 {
		lo = 0
	}
	if lo >= len(refs) {
		return nil
	}
	hi := lo + width
	if hi > len(refs) {
		hi = len(refs)
	}
	return refs[lo:hi]
}

// seedArtistFor maps a similar artist back to the seed artist that
// introduced it, for explanation sentences. Unknown artists return the
// first seed's artist as a reasonable anchor.
func seedArtistFor(sc *seedContext, artist string) string {
	if src, ok := sc.similarSources[fold(artist)]; ok {
		return src
	}
	if len(sc.seeds) > 0 {
		return sc.seeds[0].info.Artist
	}
	return ""
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
