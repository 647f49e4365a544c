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

	"github.com/tomtom215/nexttrack/internal/recommend"
)

// ITunesOptions configures the secondary artwork client.
type ITunesOptions struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// ITunes is the fallback album art source.
type ITunes struct {
	baseURL string
	doer    *httpDoer
}

// NewITunes builds the fallback artwork client. BaseURL is required.
func NewITunes(opts ITunesOptions) (*ITunes, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("sources: itunes base URL is required")
	}
	return &ITunes{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		doer: newHTTPDoer(doerSettings{
			Name:            "itunes",
			Timeout:         opts.Timeout,
			BreakerFailures: opts.BreakerFailures,
			BreakerCooldown: opts.BreakerCooldown,
		}),
	}, nil
}

// AlbumArt implements recommend.ArtworkProvider. The search index serves
// 100x100 thumbnails; the CDN accepts any size in the path so the URL is
// rewritten to a usable resolution.
func (i *ITunes) AlbumArt(ctx context.Context, artist, track string) (*recommend.Artwork, error) {
	p := url.Values{}
	p.Set("term", strings.TrimSpace(artist+" "+track))
	p.Set("entity", "song")
	p.Set("media", "music")
	p.Set("limit", "1")
	u := buildURL(i.baseURL+"/search", p)

	var body struct {
		Results []struct {
			ArtistName    string `json:"artistName"`
			ArtworkURL100 string `json:"artworkUrl100"`
			PreviewURL    string `json:"previewUrl"`
		} `json:"results"`
	}
	if err := i.doer.getJSON(ctx, "album_art", u, &body); err != nil {
		return nil, err
	}

	for _, r := range body.Results {
		if r.ArtworkURL100 == "" {
			continue
		}
		cover := strings.Replace(r.ArtworkURL100, "100x100", "600x600", 1)
		return &recommend.Artwork{Cover: cover, Preview: r.PreviewURL}, nil
	}
	return nil, ErrNotFound
}
