// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Command server runs the NextTrack recommendation service: it loads
// configuration, wires the upstream catalog clients and the offline
// embedding catalog into the engine, and serves the HTTP API under a
// suture supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/nexttrack/internal/api"
	"github.com/tomtom215/nexttrack/internal/config"
	"github.com/tomtom215/nexttrack/internal/logging"
	"github.com/tomtom215/nexttrack/internal/recommend"
	"github.com/tomtom215/nexttrack/internal/recommend/offline"
	"github.com/tomtom215/nexttrack/internal/recommend/similarity"
	"github.com/tomtom215/nexttrack/internal/sources"
	"github.com/tomtom215/nexttrack/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("catalog_url", cfg.Providers.Catalog.BaseURL).
		Str("offline_catalog", cfg.Catalog.Path).
		Msg("Starting NextTrack")

	logger := logging.Logger()

	// Upstream clients.
	catalog, err := sources.NewCatalog(sources.CatalogOptions{
		BaseURL:         cfg.Providers.Catalog.BaseURL,
		APIKey:          cfg.Providers.Catalog.APIKey,
		Timeout:         cfg.Providers.Catalog.Timeout,
		RatePerSecond:   cfg.Providers.Catalog.RatePerSecond,
		RateBurst:       cfg.Providers.Catalog.RateBurst,
		BreakerFailures: cfg.Providers.Catalog.BreakerFailures,
		BreakerCooldown: cfg.Providers.Catalog.BreakerCooldown,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build catalog client")
	}

	deezer, err := sources.NewDeezer(sources.DeezerOptions{
		BaseURL: cfg.Providers.Artwork.PrimaryURL,
		Timeout: cfg.Providers.Artwork.Timeout,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build metadata client")
	}

	var secondary recommend.ArtworkProvider
	if cfg.Providers.Artwork.SecondaryURL != "" {
		itunes, err := sources.NewITunes(sources.ITunesOptions{
			BaseURL: cfg.Providers.Artwork.SecondaryURL,
			Timeout: cfg.Providers.Artwork.Timeout,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to build fallback artwork client")
		}
		secondary = itunes
	}

	artwork := sources.NewArtworkResolver(
		deezer,
		secondary,
		cfg.Providers.Artwork.CacheSize,
		cfg.Providers.Artwork.CacheTTL,
		logger,
	)

	// Offline embedding catalog. The service runs without it; the offline
	// fallback stage is simply skipped.
	scorer, offlineCatalog, closeStore := loadOfflineCatalog(cfg.Catalog.Path)
	defer closeStore()

	providers := recommend.Providers{
		Metadata:  deezer,
		Tags:      catalog,
		Similar:   catalog,
		TagPool:   catalog,
		Artists:   catalog,
		TopTracks: catalog,
		Artwork:   artwork,
		Offline:   offlineCatalog,
	}

	engine, err := recommend.NewEngine(cfg.Engine, providers, scorer, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build recommendation engine")
	}

	handler, err := api.NewHandler(engine, deezer, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build API handler")
	}
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimitReqs:   cfg.Server.RateLimitReqs,
		RateLimitWindow: cfg.Server.RateLimitWindow,
		MetricsEndpoint: true,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Supervision tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	if sweeper := artworkSweeper(artwork); sweeper != nil {
		tree.AddMaintenanceService(supervisor.NewCacheSweepService("artwork", sweeper, 10*time.Minute, logger))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped gracefully")
}

// loadOfflineCatalog opens the sqlite catalog at path and builds the
// scorer from its vocabulary and frequency table. An empty path, or a
// missing file, degrades to an empty vocabulary with no offline stage.
func loadOfflineCatalog(path string) (*similarity.Scorer, recommend.OfflineCatalog, func()) {
	noop := func() {}
	empty := similarity.NewScorer(emptyVocabulary{}, offline.Frequencies(nil))

	if path == "" {
		logging.Info().Msg("Offline catalog not configured, fallback stage disabled")
		return empty, nil, noop
	}
	if _, err := os.Stat(path); err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Offline catalog unavailable, fallback stage disabled")
		return empty, nil, noop
	}

	store, err := offline.OpenStore(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Failed to open offline catalog, fallback stage disabled")
		return empty, nil, noop
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing offline catalog")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vocab, err := store.LoadVocabulary(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load embedding vocabulary, fallback stage disabled")
		closeStore()
		return empty, nil, noop
	}
	freqs, err := store.LoadFrequencies(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load tag frequencies, fallback stage disabled")
		closeStore()
		return empty, nil, noop
	}
	catalog, err := store.LoadCatalog(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load offline catalog, fallback stage disabled")
		closeStore()
		return similarity.NewScorer(vocab, freqs), nil, noop
	}

	logging.Info().
		Int("vocabulary", vocab.Size()).
		Msg("Offline catalog loaded")
	return similarity.NewScorer(vocab, freqs), catalog, closeStore
}

// emptyVocabulary is the embedder used when no offline catalog is
// configured. Every lookup misses, so tag similarity reduces to its
// jaccard component.
type emptyVocabulary struct{}

func (emptyVocabulary) Lookup(string) (similarity.Vector, bool) { return nil, false }
func (emptyVocabulary) Dimensions() int                         { return 1 }

// artworkSweeper exposes the resolver's cache for periodic sweeping, or
// nil when caching is disabled.
func artworkSweeper(r *sources.ArtworkResolver) supervisor.Sweeper {
	if c := r.CacheSweeper(); c != nil {
		return c
	}
	return nil
}
