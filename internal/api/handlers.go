// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/nexttrack/internal/logging"
	"github.com/tomtom215/nexttrack/internal/recommend"
)

// Recommender produces recommendation sets. Implemented by
// recommend.Engine.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
}

// TrackSearcher resolves freeform queries to seed track candidates.
// Implemented by sources.Deezer.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]recommend.TrackInfo, error)
}

// Handler holds the collaborators behind the HTTP endpoints.
type Handler struct {
	engine    Recommender
	searcher  TrackSearcher
	logger    zerolog.Logger
	startedAt time.Time
}

// NewHandler creates the API handler. Searcher may be nil, which disables
// the search endpoint with a 503.
func NewHandler(engine Recommender, searcher TrackSearcher, logger zerolog.Logger) (*Handler, error) {
	if engine == nil {
		return nil, fmt.Errorf("api: recommender is required")
	}
	return &Handler{
		engine:    engine,
		searcher:  searcher,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}, nil
}

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 64 << 10

// RecommendationsGet serves GET /api/v1/recommendations. Seed IDs arrive
// as a comma-separated track_ids query parameter.
func (h *Handler) RecommendationsGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := r.URL.Query()
	raw := q.Get("track_ids")
	if raw == "" {
		rw.BadRequest("track_ids query parameter is required")
		return
	}
	ids, err := parseTrackIDs(raw)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	req := RecommendationsRequest{
		TrackIDs:   ids,
		Popularity: q.Get("popularity"),
		Subgenre:   q.Get("subgenre"),
	}
	h.recommend(rw, r, req)
}

// RecommendationsPost serves POST /api/v1/recommendations with a JSON body.
func (h *Handler) RecommendationsPost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RecommendationsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}
	h.recommend(rw, r, req)
}

func (h *Handler) recommend(rw *ResponseWriter, r *http.Request, req RecommendationsRequest) {
	if len(req.TrackIDs) > maxSeedTracks {
		rw.BadRequest(fmt.Sprintf("at most %d seed tracks are allowed", maxSeedTracks))
		return
	}
	if verrs := validateRequest(&req); verrs != nil {
		rw.ValidationFailed("invalid recommendation request", verrs)
		return
	}

	resp, err := h.engine.Recommend(r.Context(), recommend.Request{
		TrackIDs:   req.TrackIDs,
		Popularity: recommend.ParseTier(req.Popularity),
		Subgenre:   req.Subgenre,
	})
	if err != nil {
		h.recommendError(rw, r, err)
		return
	}
	rw.Success(resp)
}

func (h *Handler) recommendError(rw *ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrNoSeeds):
		rw.BadRequest("at least one seed track ID is required")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeExternalServiceFail, "request timed out")
	default:
		h.logger.Error().Err(err).
			Str("request_id", logging.RequestIDFromContext(r.Context())).
			Msg("recommendation pipeline failed")
		rw.UpstreamFailed("recommendation providers are unavailable")
	}
}

// SearchResult is one track search hit, tagged with the subquery that
// produced it.
type SearchResult struct {
	recommend.TrackInfo
	SearchedQuery string `json:"searched_query"`
}

// maxSearchQueries bounds the comma-separated fan-out on one search call.
const maxSearchQueries = 3

// Search serves GET /api/v1/search, resolving freeform queries to seed
// track candidates. The query parameter accepts up to three
// comma-separated queries; results carry the subquery that found them.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.searcher == nil {
		rw.ServiceUnavailable("track search is not configured")
		return
	}

	q := r.URL.Query()
	req := SearchRequest{
		Query: q.Get("query"),
		Limit: intParam(q.Get("limit"), 10),
	}
	if verrs := validateRequest(&req); verrs != nil {
		rw.ValidationFailed("invalid search request", verrs)
		return
	}

	queries := splitQueries(req.Query, maxSearchQueries)
	results := make([]SearchResult, 0, len(queries)*req.Limit)
	var lastErr error
	for _, sub := range queries {
		tracks, err := h.searcher.SearchTracks(r.Context(), sub, req.Limit)
		if err != nil {
			// One failing subquery does not sink the others.
			h.logger.Warn().Err(err).Str("query", sub).Msg("track search subquery failed")
			lastErr = err
			continue
		}
		for _, t := range tracks {
			results = append(results, SearchResult{TrackInfo: t, SearchedQuery: sub})
		}
	}
	if len(results) == 0 && lastErr != nil {
		rw.UpstreamFailed("track search providers are unavailable")
		return
	}

	rw.Success(map[string]interface{}{
		"tracks": results,
		"count":  len(results),
	})
}

// splitQueries splits a comma-separated query string, dropping empties and
// capping the fan-out.
func splitQueries(raw string, max int) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == max {
			break
		}
	}
	return out
}

// HealthLive serves the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady serves the readiness probe. The engine is constructed before
// the server starts listening, so readiness follows liveness here; the
// endpoint exists so orchestrators can distinguish the two probes.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ready"})
}

// Health serves a human-oriented status summary.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"search_enabled": h.searcher != nil,
	})
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
