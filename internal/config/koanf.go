// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nexttrack/config.yaml",
	"/etc/nexttrack/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from three layers, later layers winning:
//
//  1. built-in defaults
//  2. an optional YAML config file
//  3. environment variables
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are loaded from env vars as comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			if err := k.Set(path, parts); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings translates flat operator-facing variable names to config
// paths. Unknown variables are ignored so ambient environment noise never
// reaches the config tree.
var envMappings = map[string]string{
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"http_idle_timeout":   "server.idle_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"catalog_api_url":          "providers.catalog.base_url",
	"catalog_api_key":          "providers.catalog.api_key",
	"catalog_api_timeout":      "providers.catalog.timeout",
	"catalog_rate_per_second":  "providers.catalog.rate_per_second",
	"catalog_rate_burst":       "providers.catalog.rate_burst",
	"catalog_breaker_failures": "providers.catalog.breaker_failures",
	"catalog_breaker_cooldown": "providers.catalog.breaker_cooldown",

	"artwork_primary_url":   "providers.artwork.primary_url",
	"artwork_secondary_url": "providers.artwork.secondary_url",
	"artwork_timeout":       "providers.artwork.timeout",
	"artwork_cache_size":    "providers.artwork.cache_size",
	"artwork_cache_ttl":     "providers.artwork.cache_ttl",

	"offline_catalog_path": "catalog.path",

	"engine_alpha":           "engine.alpha",
	"engine_min_tag_score":   "engine.min_tag_score",
	"engine_artist_boost":    "engine.artist_boost",
	"engine_cache_size":      "engine.cache_size",
	"engine_cache_ttl":       "engine.cache_ttl",
	"engine_artwork_workers": "engine.artwork_workers",
	"engine_offline_top_n":   "engine.offline_top_n",
}

func envTransform(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
