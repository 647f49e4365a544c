// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nexttrack/internal/recommend"
)

// DeezerOptions configures the track metadata client.
type DeezerOptions struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Deezer resolves seed track IDs, searches the track index, and serves as
// the primary album art source.
type Deezer struct {
	baseURL string
	doer    *httpDoer
	logger  zerolog.Logger
}

// NewDeezer builds a metadata client. BaseURL is required.
func NewDeezer(opts DeezerOptions, logger zerolog.Logger) (*Deezer, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("sources: metadata base URL is required")
	}
	return &Deezer{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		doer: newHTTPDoer(doerSettings{
			Name:            "deezer",
			Timeout:         opts.Timeout,
			BreakerFailures: opts.BreakerFailures,
			BreakerCooldown: opts.BreakerCooldown,
		}),
		logger: logger.With().Str("component", "deezer").Logger(),
	}, nil
}

type deezerTrack struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Preview string `json:"preview"`
	Artist  struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title       string `json:"title"`
		CoverMedium string `json:"cover_medium"`
		CoverBig    string `json:"cover_big"`
	} `json:"album"`
}

type deezerError struct {
	Error struct {
		Type    string `json:"type"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (t *deezerTrack) cover() string {
	if t.Album.CoverBig != "" {
		return t.Album.CoverBig
	}
	return t.Album.CoverMedium
}

// TrackInfo implements recommend.MetadataProvider.
func (d *Deezer) TrackInfo(ctx context.Context, id int64) (*recommend.TrackInfo, error) {
	u := fmt.Sprintf("%s/track/%d", d.baseURL, id)

	var body struct {
		deezerTrack
		deezerError
	}
	if err := d.doer.getJSON(ctx, "track_info", u, &body); err != nil {
		return nil, err
	}
	// Unknown IDs come back as a 200 with an error object.
	if body.Error.Code != 0 || body.Title == "" {
		return nil, ErrNotFound
	}

	return &recommend.TrackInfo{
		ID:     body.ID,
		Title:  body.Title,
		Artist: body.Artist.Name,
		Album:  body.Album.Title,
		Cover:  body.cover(),
		URL:    body.Link,
	}, nil
}

// SearchTracks queries the track index. The query accepts the freeform
// "artist track" form the search endpoint exposes to clients.
func (d *Deezer) SearchTracks(ctx context.Context, query string, limit int) ([]recommend.TrackInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	p := url.Values{}
	p.Set("q", query)
	p.Set("limit", fmt.Sprintf("%d", limit))
	u := buildURL(d.baseURL+"/search/track", p)

	var body struct {
		Data []deezerTrack `json:"data"`
	}
	if err := d.doer.getJSON(ctx, "search_tracks", u, &body); err != nil {
		return nil, err
	}

	results := make([]recommend.TrackInfo, 0, len(body.Data))
	for _, t := range body.Data {
		if t.Title == "" || t.Artist.Name == "" {
			continue
		}
		results = append(results, recommend.TrackInfo{
			ID:     t.ID,
			Title:  t.Title,
			Artist: t.Artist.Name,
			Album:  t.Album.Title,
			Cover:  t.cover(),
			URL:    t.Link,
		})
	}
	return results, nil
}

// AlbumArt looks up artwork and a preview clip for a track. Search results
// rank fuzzily, so the artist on the hit must actually match before the
// artwork is trusted.
func (d *Deezer) AlbumArt(ctx context.Context, artist, track string) (*recommend.Artwork, error) {
	p := url.Values{}
	p.Set("q", fmt.Sprintf(`artist:"%s" track:"%s"`, artist, track))
	p.Set("limit", "3")
	u := buildURL(d.baseURL+"/search/track", p)

	var body struct {
		Data []deezerTrack `json:"data"`
	}
	if err := d.doer.getJSON(ctx, "album_art", u, &body); err != nil {
		return nil, err
	}

	want := foldName(artist)
	for _, t := range body.Data {
		got := foldName(t.Artist.Name)
		if got == "" || (got != want && !strings.Contains(got, want) && !strings.Contains(want, got)) {
			continue
		}
		cover := t.cover()
		if cover == "" && t.Preview == "" {
			continue
		}
		return &recommend.Artwork{Cover: cover, Preview: t.Preview}, nil
	}
	d.logger.Debug().Str("artist", artist).Str("track", track).Msg("no artwork match")
	return nil, ErrNotFound
}

// foldName normalizes artist names for fuzzy comparison.
func foldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", "and")
	return strings.Join(strings.Fields(s), " ")
}
