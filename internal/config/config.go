// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package config defines the NextTrack service configuration and its
// layered loading: built-in defaults, an optional YAML file, then
// environment variables, each layer overriding the last.
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/nexttrack/internal/recommend"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Logging   LoggingConfig    `koanf:"logging"`
	Engine    recommend.Config `koanf:"engine"`
	Providers ProvidersConfig  `koanf:"providers"`
	Catalog   CatalogConfig    `koanf:"catalog"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ProvidersConfig wires the upstream music catalogs.
type ProvidersConfig struct {
	// Catalog is the tag and similarity catalog (audioscrobbler API shape).
	Catalog UpstreamConfig `koanf:"catalog"`

	// Artwork resolves album covers and preview clips.
	Artwork ArtworkConfig `koanf:"artwork"`
}

// UpstreamConfig is the client configuration for one upstream HTTP API.
type UpstreamConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	// RatePerSecond and RateBurst shape the client-side token bucket.
	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`

	// BreakerFailures consecutive failures open the circuit for
	// BreakerCooldown.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// ArtworkConfig configures the two-source album art resolver.
type ArtworkConfig struct {
	PrimaryURL   string        `koanf:"primary_url"`
	SecondaryURL string        `koanf:"secondary_url"`
	Timeout      time.Duration `koanf:"timeout"`
	CacheSize    int           `koanf:"cache_size"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// CatalogConfig locates the offline embedding catalog. An empty path
// disables the offline fallback stage.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: recommend.DefaultConfig(),
		Providers: ProvidersConfig{
			Catalog: UpstreamConfig{
				BaseURL:         "https://ws.audioscrobbler.com/2.0/",
				Timeout:         10 * time.Second,
				RatePerSecond:   5,
				RateBurst:       10,
				BreakerFailures: 5,
				BreakerCooldown: 30 * time.Second,
			},
			Artwork: ArtworkConfig{
				PrimaryURL:   "https://api.deezer.com",
				SecondaryURL: "https://itunes.apple.com",
				Timeout:      8 * time.Second,
				CacheSize:    2048,
				CacheTTL:     24 * time.Hour,
			},
		},
		Catalog: CatalogConfig{
			Path: "/data/nexttrack/catalog.db",
		},
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}
	for _, p := range []struct {
		name string
		val  time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"providers.catalog.timeout", c.Providers.Catalog.Timeout},
		{"providers.artwork.timeout", c.Providers.Artwork.Timeout},
	} {
		if p.val <= 0 {
			return fmt.Errorf("%s must be positive, got %v", p.name, p.val)
		}
	}
	if c.Server.RateLimitReqs <= 0 || c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("server rate limit must be positive, got %d per %v",
			c.Server.RateLimitReqs, c.Server.RateLimitWindow)
	}
	if c.Providers.Catalog.BaseURL == "" {
		return fmt.Errorf("providers.catalog.base_url is required")
	}
	if c.Providers.Catalog.RatePerSecond <= 0 || c.Providers.Catalog.RateBurst <= 0 {
		return fmt.Errorf("providers.catalog rate limit must be positive")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}
